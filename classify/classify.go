// Package classify maps raw sandbox outcomes onto the verdict taxonomy.
package classify

import (
	"bytes"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"github.com/codequay/judgecore/container"
	"github.com/codequay/judgecore/model"
)

// Phase distinguishes a compile invocation from a run invocation; a
// non-zero exit during compilation is CompileError, not RuntimeError.
type Phase int

const (
	PhaseRun Phase = iota
	PhaseCompile
)

// Limits are the effective per-invocation ceilings used by the rules
type Limits struct {
	Time   time.Duration
	Memory model.Size
}

// diagnosticCap bounds the stream excerpt attached to ErrorInfo for
// human-readable diagnostics. Compile errors attach stderr in full (up
// to the capture cap) because it is the user's only feedback.
const diagnosticCap = 4 * model.KiB

// Classifier applies the rule table. The comparator is fixed at
// construction (deployment policy).
type Classifier struct {
	Compare Comparator
}

// New creates a classifier with the given comparison policy; nil
// selects the default trailing-whitespace-insensitive policy.
func New(cmp Comparator) Classifier {
	if cmp == nil {
		cmp = IgnoreTrailingSpace
	}
	return Classifier{Compare: cmp}
}

// Classify produces the verdict for one raw result, in strict priority
// order: cancellation, deadline, memory, output cap, fault signal,
// non-zero exit, then output comparison.
func (c Classifier) Classify(res *container.Result, phase Phase, lim Limits, expected []byte) (model.Status, *model.ErrorInfo) {
	switch {
	case res.Cancelled:
		return model.Cancelled, nil

	case res.TimedOut:
		return model.TimeLimitExceeded, &model.ErrorInfo{
			Message: fmt.Sprintf("time limit exceeded: ran over %v", lim.Time),
		}

	// checked before signal and exit rules: a narrowly-avoided OOM kill
	// can exceed the limit in accounting terms even on a clean exit
	case lim.Memory > 0 && res.Memory >= lim.Memory:
		return model.MemoryLimitExceeded, &model.ErrorInfo{
			Message: fmt.Sprintf("memory limit exceeded: used %v of %v", res.Memory, lim.Memory),
		}

	case res.OutputExceeded:
		return model.OutputLimitExceeded, &model.ErrorInfo{
			Message: "output limit exceeded",
		}

	case res.Signaled:
		return c.classifySignal(res)

	case res.ExitCode != 0:
		if phase == PhaseCompile {
			return model.CompileError, &model.ErrorInfo{
				Message:  "compilation failed",
				Stderr:   string(res.Stderr),
				ExitCode: res.ExitCode,
			}
		}
		kind := kindFromStderr(res.Stderr)
		return model.RuntimeError(kind), &model.ErrorInfo{
			Message:  fmt.Sprintf("%s (exit status %d)", kind, res.ExitCode),
			Stderr:   excerpt(res.Stderr),
			Stdout:   excerpt(res.Stdout),
			ExitCode: res.ExitCode,
		}
	}

	if phase == PhaseCompile {
		return model.Accepted, nil
	}
	if c.Compare(expected, res.Stdout) {
		return model.Accepted, nil
	}
	return model.WrongAnswer, nil
}

func (c Classifier) classifySignal(res *container.Result) (model.Status, *model.ErrorInfo) {
	sig := unix.Signal(res.Signal)
	if sig == unix.SIGSYS {
		return model.RestrictedOperation, &model.ErrorInfo{
			Message: "restricted operation: denied system call",
			Stderr:  excerpt(res.Stderr),
			Signal:  res.Signal,
		}
	}
	kind := kindFromSignal(sig, res.Stderr)
	return model.RuntimeError(kind), &model.ErrorInfo{
		Message: fmt.Sprintf("%s (signal: %s)", kind, unix.SignalName(sig)),
		Stderr:  excerpt(res.Stderr),
		Stdout:  excerpt(res.Stdout),
		Signal:  res.Signal,
	}
}

func kindFromSignal(sig unix.Signal, stderr []byte) model.RuntimeErrorKind {
	switch sig {
	case unix.SIGSEGV:
		if bytes.Contains(stderr, []byte("stack overflow")) {
			return model.RuntimeErrorStackOverflow
		}
		return model.RuntimeErrorSegmentationFault
	case unix.SIGBUS:
		return model.RuntimeErrorSegmentationFault
	case unix.SIGFPE:
		if bytes.Contains(stderr, []byte("divi")) {
			return model.RuntimeErrorDivisionByZero
		}
		return model.RuntimeErrorFloatingPointException
	case unix.SIGABRT:
		return model.RuntimeErrorAssertionFailed
	default:
		return model.RuntimeErrorOther
	}
}

// kindFromStderr refines a plain non-zero exit using well-known runtime
// fault signatures emitted by managed languages.
func kindFromStderr(stderr []byte) model.RuntimeErrorKind {
	switch {
	case bytes.Contains(stderr, []byte("NullPointerException")),
		bytes.Contains(stderr, []byte("nil pointer dereference")),
		bytes.Contains(stderr, []byte("null pointer")):
		return model.RuntimeErrorNullDereference
	case bytes.Contains(stderr, []byte("ZeroDivisionError")),
		bytes.Contains(stderr, []byte("integer divide by zero")),
		bytes.Contains(stderr, []byte("division by zero")):
		return model.RuntimeErrorDivisionByZero
	case bytes.Contains(stderr, []byte("StackOverflowError")),
		bytes.Contains(stderr, []byte("maximum recursion depth")),
		bytes.Contains(stderr, []byte("stack overflow")):
		return model.RuntimeErrorStackOverflow
	case bytes.Contains(stderr, []byte("AssertionError")),
		bytes.Contains(stderr, []byte("assertion failed")):
		return model.RuntimeErrorAssertionFailed
	case bytes.Contains(stderr, []byte("PermissionError")),
		bytes.Contains(stderr, []byte("permission denied")):
		return model.RuntimeErrorPermissionDenied
	case bytes.Contains(stderr, []byte("FileNotFoundError")),
		bytes.Contains(stderr, []byte("No such file or directory")):
		return model.RuntimeErrorFileOperation
	default:
		return model.RuntimeErrorOther
	}
}

func excerpt(b []byte) string {
	if model.Size(len(b)) > diagnosticCap {
		b = b[:diagnosticCap]
	}
	return string(b)
}
