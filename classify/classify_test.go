package classify

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/sys/unix"

	"github.com/codequay/judgecore/container"
	"github.com/codequay/judgecore/model"
)

var testLimits = Limits{Time: time.Second, Memory: 256 * model.MiB}

func TestClassifyPriorityTable(t *testing.T) {
	cases := []struct {
		name     string
		res      container.Result
		phase    Phase
		expected string
		want     model.Status
	}{
		{
			name: "cancelled beats everything",
			res:  container.Result{Cancelled: true, TimedOut: true, Signaled: true, Signal: 11},
			want: model.Cancelled,
		},
		{
			name: "forced timeout beats signal",
			res:  container.Result{TimedOut: true, Signaled: true, Signal: 9},
			want: model.TimeLimitExceeded,
		},
		{
			name: "memory breach beats output cap and clean exit",
			res:  container.Result{Memory: 256 * model.MiB, OutputExceeded: true},
			want: model.MemoryLimitExceeded,
		},
		{
			name: "memory breach on oom kill",
			res:  container.Result{Memory: 300 * model.MiB, Signaled: true, Signal: 9},
			want: model.MemoryLimitExceeded,
		},
		{
			name: "output cap beats signal",
			res:  container.Result{OutputExceeded: true, Signaled: true, Signal: 9},
			want: model.OutputLimitExceeded,
		},
		{
			name: "sigsegv is a segmentation fault regardless of stdout",
			res: container.Result{
				Signaled: true,
				Signal:   int(unix.SIGSEGV),
				Stdout:   []byte("some correct-looking output"),
			},
			expected: "some correct-looking output",
			want:     model.RuntimeError(model.RuntimeErrorSegmentationFault),
		},
		{
			name: "sigsegv with stack overflow signature",
			res: container.Result{
				Signaled: true,
				Signal:   int(unix.SIGSEGV),
				Stderr:   []byte("thread 'main' has overflowed its stack\nstack overflow"),
			},
			want: model.RuntimeError(model.RuntimeErrorStackOverflow),
		},
		{
			name: "sigfpe",
			res:  container.Result{Signaled: true, Signal: int(unix.SIGFPE)},
			want: model.RuntimeError(model.RuntimeErrorFloatingPointException),
		},
		{
			name: "sigfpe from division",
			res: container.Result{
				Signaled: true,
				Signal:   int(unix.SIGFPE),
				Stderr:   []byte("integer division by zero"),
			},
			want: model.RuntimeError(model.RuntimeErrorDivisionByZero),
		},
		{
			name: "sigabrt is an assertion failure",
			res:  container.Result{Signaled: true, Signal: int(unix.SIGABRT)},
			want: model.RuntimeError(model.RuntimeErrorAssertionFailed),
		},
		{
			name: "sigsys is a restricted operation",
			res:  container.Result{Signaled: true, Signal: int(unix.SIGSYS)},
			want: model.RestrictedOperation,
		},
		{
			name: "unrecognized signal",
			res:  container.Result{Signaled: true, Signal: int(unix.SIGTERM)},
			want: model.RuntimeError(model.RuntimeErrorOther),
		},
		{
			name: "nonzero exit at run phase",
			res:  container.Result{ExitCode: 1},
			want: model.RuntimeError(model.RuntimeErrorOther),
		},
		{
			name:  "nonzero exit at compile phase",
			res:   container.Result{ExitCode: 1, Stderr: []byte("main.c:5: error")},
			phase: PhaseCompile,
			want:  model.CompileError,
		},
		{
			name: "nonzero exit with null pointer signature",
			res: container.Result{
				ExitCode: 1,
				Stderr:   []byte("Exception in thread \"main\" java.lang.NullPointerException"),
			},
			want: model.RuntimeError(model.RuntimeErrorNullDereference),
		},
		{
			name: "nonzero exit with zero division signature",
			res: container.Result{
				ExitCode: 1,
				Stderr:   []byte("ZeroDivisionError: division by zero"),
			},
			want: model.RuntimeError(model.RuntimeErrorDivisionByZero),
		},
		{
			name: "nonzero exit with permission signature",
			res: container.Result{
				ExitCode: 1,
				Stderr:   []byte("bash: /etc/shadow: permission denied"),
			},
			want: model.RuntimeError(model.RuntimeErrorPermissionDenied),
		},
		{
			name: "nonzero exit with file signature",
			res: container.Result{
				ExitCode: 2,
				Stderr:   []byte("open data.txt: No such file or directory"),
			},
			want: model.RuntimeError(model.RuntimeErrorFileOperation),
		},
		{
			name:     "clean exit matching output",
			res:      container.Result{Stdout: []byte("42\n")},
			expected: "42\n",
			want:     model.Accepted,
		},
		{
			name:     "clean exit wrong output",
			res:      container.Result{Stdout: []byte("43\n")},
			expected: "42\n",
			want:     model.WrongAnswer,
		},
		{
			name:  "clean compile",
			res:   container.Result{},
			phase: PhaseCompile,
			want:  model.Accepted,
		},
	}

	c := New(nil)
	for _, tc := range cases {
		got, _ := c.Classify(&tc.res, tc.phase, testLimits, []byte(tc.expected))
		if got != tc.want {
			t.Errorf("%s: got %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestCompileErrorAttachesStderrVerbatim(t *testing.T) {
	diag := "main.c: In function 'main':\nmain.c:5:5: error: expected ';'"
	c := New(nil)
	st, info := c.Classify(&container.Result{ExitCode: 1, Stderr: []byte(diag)}, PhaseCompile, testLimits, nil)
	if st != model.CompileError {
		t.Fatalf("status: %v", st)
	}
	if info == nil || info.Stderr != diag {
		t.Errorf("compile diagnostic not attached verbatim: %+v", info)
	}
}

func TestErrorInfoExcerptCapped(t *testing.T) {
	big := strings.Repeat("x", int(diagnosticCap)+100)
	c := New(nil)
	_, info := c.Classify(&container.Result{ExitCode: 1, Stderr: []byte(big)}, PhaseRun, testLimits, nil)
	if info == nil {
		t.Fatal("expected error info")
	}
	if model.Size(len(info.Stderr)) > diagnosticCap {
		t.Errorf("stderr excerpt over cap: %d bytes", len(info.Stderr))
	}
	if info.Message == "" {
		t.Error("message must be human readable, not empty")
	}
}
