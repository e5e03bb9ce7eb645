package model

import (
	"encoding/json"
	"testing"
)

var allLanguages = []Language{
	LangC, LangCpp, LangCpp11, LangCpp14, LangCpp17, LangCpp20,
	LangPython2, LangPython3, LangJava, LangRust, LangGo,
	LangJavaScript, LangTypeScript,
}

func TestLanguageCatalogue(t *testing.T) {
	for _, l := range allLanguages {
		if l.Ext() == "" {
			t.Errorf("%v: empty extension", l)
		}
		if len(l.RunCommand(nil)) == 0 {
			t.Errorf("%v: empty run command", l)
		}
		if l.NeedsCompile() && len(l.CompileCommand(nil)) == 0 {
			t.Errorf("%v: compiled language without compile command", l)
		}
		if !l.NeedsCompile() && l.CompileCommand(nil) != nil {
			t.Errorf("%v: interpreted language with compile command", l)
		}
	}
}

func TestLanguageFacts(t *testing.T) {
	if got := LangCpp17.Ext(); got != "cpp" {
		t.Errorf("cpp17 ext: %q", got)
	}
	if !LangCpp17.NeedsCompile() {
		t.Error("cpp17 needs compilation")
	}
	if LangPython3.NeedsCompile() {
		t.Error("python3 is interpreted")
	}
	if got := LangPython3.RunCommand(nil); got[0] != "python3" {
		t.Errorf("python3 run command: %v", got)
	}
	if got := LangJava.SourceFileName(); got != "Main.java" {
		t.Errorf("java source name: %q", got)
	}
	cc := LangC.CompileCommand([]string{"-static"})
	want := []string{"gcc", "-O2", "-Wall", "-static", "-o", "main", "main.c"}
	if len(cc) != len(want) {
		t.Fatalf("c compile command: %v", cc)
	}
	for i := range want {
		if cc[i] != want[i] {
			t.Fatalf("c compile command: %v", cc)
		}
	}
}

func TestLanguageRoundTrip(t *testing.T) {
	for _, l := range allLanguages {
		b, err := json.Marshal(l)
		if err != nil {
			t.Fatalf("marshal %v: %v", l, err)
		}
		var got Language
		if err := json.Unmarshal(b, &got); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if got != l {
			t.Errorf("round trip %v: got %v", l, got)
		}
	}
	var l Language
	if err := l.UnmarshalText([]byte("cobol")); err == nil {
		t.Error("expected error for unknown language")
	}
}
