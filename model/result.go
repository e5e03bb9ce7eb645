package model

import (
	"time"

	"github.com/google/uuid"
)

// ErrorInfo carries the diagnostic detail attached to a failed outcome.
// Captured streams are attached only up to the capture cap.
type ErrorInfo struct {
	Message  string `json:"message"`
	Code     string `json:"code,omitempty"`
	Line     int    `json:"line,omitempty"`
	Column   int    `json:"column,omitempty"`
	Stdout   string `json:"stdout,omitempty"`
	Stderr   string `json:"stderr,omitempty"`
	ExitCode int    `json:"exitCode,omitempty"`
	Signal   int    `json:"signal,omitempty"`
}

// TestCaseResult is the verdict for a single test case
type TestCaseResult struct {
	ID     string `json:"id"`
	Status Status `json:"status"`

	Time   time.Duration `json:"time"`
	Memory Size          `json:"memory"`

	Input    string `json:"input,omitempty"`
	Expected string `json:"expectedOutput,omitempty"`
	Actual   string `json:"actualOutput,omitempty"`

	ErrorInfo *ErrorInfo `json:"errorInfo,omitempty"`
}

// JudgeResult is the overall verdict for one judge task. It is created
// Pending, moves to Judging when evaluation starts, accumulates test
// case results in task order, and is finalized exactly once.
type JudgeResult struct {
	Status Status `json:"status"`

	// Time and Memory are the maximum across test cases, the binding
	// constraint a user must fix, not the sum
	Time   time.Duration `json:"time"`
	Memory Size          `json:"memory"`

	ErrorInfo *ErrorInfo       `json:"errorInfo,omitempty"`
	TestCases []TestCaseResult `json:"testCases"`

	SubmissionID uuid.UUID `json:"submissionId"`
	ProblemID    uuid.UUID `json:"problemId"`
	UserID       uuid.UUID `json:"userId"`

	JudgedAt time.Time `json:"judgedAt"`

	// Score in [0, 100], the weighted fraction of passed cases
	Score float64 `json:"score"`
}

// NewJudgeResult creates an empty Pending result for a submission
func NewJudgeResult(sub *Submission) *JudgeResult {
	return &JudgeResult{
		Status:       Pending,
		SubmissionID: sub.ID,
		ProblemID:    sub.ProblemID,
		UserID:       sub.UserID,
	}
}

// AddTestCase appends one per-case result, keeping task order
func (r *JudgeResult) AddTestCase(tc TestCaseResult) {
	r.TestCases = append(r.TestCases, tc)
}

// PassedTestCases counts the accepted cases
func (r *JudgeResult) PassedTestCases() int {
	n := 0
	for i := range r.TestCases {
		if r.TestCases[i].Status.IsAccepted() {
			n++
		}
	}
	return n
}

// TotalTestCases counts all recorded cases
func (r *JudgeResult) TotalTestCases() int {
	return len(r.TestCases)
}
