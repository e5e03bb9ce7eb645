package model

import (
	"fmt"
	"strings"
)

// StatusCode enumerates the verdict taxonomy. It is a closed set:
// classification relies on exhaustive matching over these values.
type StatusCode int

const (
	CodeInvalid StatusCode = iota

	CodeAccepted
	CodeWrongAnswer
	CodeTimeLimitExceeded
	CodeMemoryLimitExceeded
	CodeRuntimeError
	CodeCompileError
	CodeRestrictedOperation
	CodeOutputLimitExceeded
	CodeSystemError

	// non-final states
	CodePending
	CodeJudging

	CodeCancelled
)

// RuntimeErrorKind is the payload carried by the runtime-error verdict.
type RuntimeErrorKind int

const (
	RuntimeErrorSegmentationFault RuntimeErrorKind = iota
	RuntimeErrorFloatingPointException
	RuntimeErrorDivisionByZero
	RuntimeErrorAssertionFailed
	RuntimeErrorStackOverflow
	RuntimeErrorNullDereference
	RuntimeErrorFileOperation
	RuntimeErrorPermissionDenied
	RuntimeErrorOther
)

// Status is the verdict for a judgement or a single test case. Only the
// runtime-error variant carries a payload; for every other code the Kind
// field is zero and ignored.
type Status struct {
	Code StatusCode
	Kind RuntimeErrorKind
}

// Verdict values without payload
var (
	Invalid             = Status{Code: CodeInvalid}
	Accepted            = Status{Code: CodeAccepted}
	WrongAnswer         = Status{Code: CodeWrongAnswer}
	TimeLimitExceeded   = Status{Code: CodeTimeLimitExceeded}
	MemoryLimitExceeded = Status{Code: CodeMemoryLimitExceeded}
	CompileError        = Status{Code: CodeCompileError}
	RestrictedOperation = Status{Code: CodeRestrictedOperation}
	OutputLimitExceeded = Status{Code: CodeOutputLimitExceeded}
	SystemError         = Status{Code: CodeSystemError}
	Pending             = Status{Code: CodePending}
	Judging             = Status{Code: CodeJudging}
	Cancelled           = Status{Code: CodeCancelled}
)

// RuntimeError builds the runtime-error verdict with the given kind
func RuntimeError(kind RuntimeErrorKind) Status {
	return Status{Code: CodeRuntimeError, Kind: kind}
}

var statusCodeToShort = []string{
	"IV",
	"AC",
	"WA",
	"TLE",
	"MLE",
	"RE",
	"CE",
	"RO",
	"OLE",
	"SE",
	"PD",
	"JG",
	"CN",
}

var statusCodeToString = []string{
	"Invalid",
	"Accepted",
	"Wrong Answer",
	"Time Limit Exceeded",
	"Memory Limit Exceeded",
	"Runtime Error",
	"Compile Error",
	"Restricted Operation",
	"Output Limit Exceeded",
	"System Error",
	"Pending",
	"Judging",
	"Cancelled",
}

var kindToString = []string{
	"segfault",
	"fpe",
	"divzero",
	"assert",
	"stackoverflow",
	"nullptr",
	"fileop",
	"permission",
	"other",
}

var kindDisplay = []string{
	"Segmentation fault",
	"Floating point exception",
	"Division by zero",
	"Assertion failed",
	"Stack overflow",
	"Null pointer dereference",
	"File operation error",
	"Permission denied",
	"Unknown runtime error",
}

var (
	shortToStatusCode = make(map[string]StatusCode)
	stringToKind      = make(map[string]RuntimeErrorKind)
)

func init() {
	for i, v := range statusCodeToShort {
		shortToStatusCode[v] = StatusCode(i)
	}
	for i, v := range kindToString {
		stringToKind[v] = RuntimeErrorKind(i)
	}
}

func (c StatusCode) valid() bool {
	return c >= 0 && int(c) < len(statusCodeToString)
}

func (k RuntimeErrorKind) valid() bool {
	return k >= 0 && int(k) < len(kindToString)
}

func (k RuntimeErrorKind) String() string {
	if !k.valid() {
		return kindDisplay[RuntimeErrorOther]
	}
	return kindDisplay[k]
}

// IsAccepted reports whether the verdict is Accepted
func (s Status) IsAccepted() bool {
	return s.Code == CodeAccepted
}

// IsFinal reports whether the verdict is terminal. Pending and Judging
// are the only non-final states.
func (s Status) IsFinal() bool {
	return s.Code != CodePending && s.Code != CodeJudging && s.Code != CodeInvalid
}

// IsError reports whether the verdict is a failure other than WrongAnswer
func (s Status) IsError() bool {
	switch s.Code {
	case CodeTimeLimitExceeded, CodeMemoryLimitExceeded, CodeRuntimeError,
		CodeCompileError, CodeRestrictedOperation, CodeOutputLimitExceeded,
		CodeSystemError:
		return true
	}
	return false
}

// IsRuntimeError reports whether the verdict carries a runtime-error kind
func (s Status) IsRuntimeError() bool {
	return s.Code == CodeRuntimeError
}

func (s Status) String() string {
	if !s.Code.valid() {
		return statusCodeToString[CodeInvalid]
	}
	if s.Code == CodeRuntimeError {
		return statusCodeToString[s.Code] + ": " + s.Kind.String()
	}
	return statusCodeToString[s.Code]
}

// Short returns the stable short code ("AC", "WA", "RE:segfault", ...)
// used on the wire and by the presentation collaborator.
func (s Status) Short() string {
	if !s.Code.valid() {
		return statusCodeToShort[CodeInvalid]
	}
	if s.Code == CodeRuntimeError && s.Kind.valid() {
		return statusCodeToShort[s.Code] + ":" + kindToString[s.Kind]
	}
	return statusCodeToShort[s.Code]
}

// MarshalText implements encoding.TextMarshaler
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.Short()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (s *Status) UnmarshalText(text []byte) error {
	code, kind, ok := strings.Cut(string(text), ":")
	c, found := shortToStatusCode[code]
	if !found {
		return fmt.Errorf("status: unknown status %q", string(text))
	}
	st := Status{Code: c}
	if c == CodeRuntimeError {
		st.Kind = RuntimeErrorOther
		if ok {
			k, found := stringToKind[kind]
			if !found {
				return fmt.Errorf("status: unknown runtime error kind %q", kind)
			}
			st.Kind = k
		}
	} else if ok {
		return fmt.Errorf("status: unexpected payload on %q", string(text))
	}
	*s = st
	return nil
}
