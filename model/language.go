package model

import "fmt"

// Language defines a supported programming language. Every fact a
// downstream stage needs (source name, compile command, run command)
// derives from the catalogue, never stored independently.
type Language int

// The closed language catalogue
const (
	LangInvalid Language = iota
	LangC
	LangCpp
	LangCpp11
	LangCpp14
	LangCpp17
	LangCpp20
	LangPython2
	LangPython3
	LangJava
	LangRust
	LangGo
	LangJavaScript
	LangTypeScript
)

var languageToString = []string{
	"invalid",
	"c",
	"cpp",
	"cpp11",
	"cpp14",
	"cpp17",
	"cpp20",
	"python2",
	"python3",
	"java",
	"rust",
	"go",
	"javascript",
	"typescript",
}

var languageDisplay = []string{
	"Invalid",
	"C",
	"C++",
	"C++11",
	"C++14",
	"C++17",
	"C++20",
	"Python 2",
	"Python 3",
	"Java",
	"Rust",
	"Go",
	"JavaScript",
	"TypeScript",
}

var stringToLanguage = make(map[string]Language)

func init() {
	for i, v := range languageToString {
		stringToLanguage[v] = Language(i)
	}
}

func (l Language) valid() bool {
	return l > LangInvalid && int(l) < len(languageToString)
}

func (l Language) String() string {
	if !l.valid() {
		return languageDisplay[0]
	}
	return languageDisplay[l]
}

// MarshalText implements encoding.TextMarshaler
func (l Language) MarshalText() ([]byte, error) {
	if !l.valid() {
		return nil, fmt.Errorf("language: invalid value %d", int(l))
	}
	return []byte(languageToString[l]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *Language) UnmarshalText(text []byte) error {
	v, ok := stringToLanguage[string(text)]
	if !ok || v == LangInvalid {
		return fmt.Errorf("language: unknown language %q", string(text))
	}
	*l = v
	return nil
}

// Ext returns the source file extension
func (l Language) Ext() string {
	switch l {
	case LangC:
		return "c"
	case LangCpp, LangCpp11, LangCpp14, LangCpp17, LangCpp20:
		return "cpp"
	case LangPython2, LangPython3:
		return "py"
	case LangJava:
		return "java"
	case LangRust:
		return "rs"
	case LangGo:
		return "go"
	case LangJavaScript:
		return "js"
	case LangTypeScript:
		return "ts"
	}
	return ""
}

// SourceFileName returns the canonical name the source is staged under
func (l Language) SourceFileName() string {
	if l == LangJava {
		// javac requires the file name to match the public class
		return "Main.java"
	}
	return "main." + l.Ext()
}

// NeedsCompile reports whether the language has a compile step
func (l Language) NeedsCompile() bool {
	switch l {
	case LangC, LangCpp, LangCpp11, LangCpp14, LangCpp17, LangCpp20,
		LangJava, LangRust, LangGo:
		return true
	}
	return false
}

// CompileFlags returns the default compiler flags
func (l Language) CompileFlags() []string {
	switch l {
	case LangC:
		return []string{"-O2", "-Wall"}
	case LangCpp, LangCpp11:
		return []string{"-O2", "-Wall", "-std=c++11"}
	case LangCpp14:
		return []string{"-O2", "-Wall", "-std=c++14"}
	case LangCpp17:
		return []string{"-O2", "-Wall", "-std=c++17"}
	case LangCpp20:
		return []string{"-O2", "-Wall", "-std=c++20"}
	case LangJava:
		return []string{"-Xlint:all"}
	case LangRust:
		return []string{"-O"}
	}
	return nil
}

// CompileCommand returns the full compile argv, or nil for interpreted
// languages. extra flags are appended after the defaults.
func (l Language) CompileCommand(extra []string) []string {
	if !l.NeedsCompile() {
		return nil
	}
	var compiler string
	switch l {
	case LangC:
		compiler = "gcc"
	case LangCpp, LangCpp11, LangCpp14, LangCpp17, LangCpp20:
		compiler = "g++"
	case LangJava:
		compiler = "javac"
	case LangRust:
		compiler = "rustc"
	case LangGo:
		return append([]string{"go", "build", "-o", "main", l.SourceFileName()}, extra...)
	}
	args := append([]string{compiler}, l.CompileFlags()...)
	args = append(args, extra...)
	switch l {
	case LangC, LangCpp, LangCpp11, LangCpp14, LangCpp17, LangCpp20:
		args = append(args, "-o", "main")
	case LangRust:
		args = append(args, "-o", "main")
	}
	return append(args, l.SourceFileName())
}

// RunCommand returns the run argv. extra arguments are appended.
func (l Language) RunCommand(extra []string) []string {
	var args []string
	switch l {
	case LangC, LangCpp, LangCpp11, LangCpp14, LangCpp17, LangCpp20,
		LangRust, LangGo:
		args = []string{"./main"}
	case LangPython2:
		args = []string{"python2", l.SourceFileName()}
	case LangPython3:
		args = []string{"python3", l.SourceFileName()}
	case LangJava:
		args = []string{"java", "Main"}
	case LangJavaScript:
		args = []string{"node", l.SourceFileName()}
	case LangTypeScript:
		args = []string{"ts-node", l.SourceFileName()}
	default:
		return nil
	}
	return append(args, extra...)
}
