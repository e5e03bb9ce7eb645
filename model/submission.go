package model

import (
	"time"

	"github.com/google/uuid"
)

// Submission is one piece of untrusted source code queued for judgement
type Submission struct {
	ID        uuid.UUID  `json:"id"`
	ProblemID uuid.UUID  `json:"problemId"`
	UserID    uuid.UUID  `json:"userId"`
	ContestID *uuid.UUID `json:"contestId,omitempty"`

	Language Language  `json:"language"`
	Source   string    `json:"source"`
	CreatedAt time.Time `json:"createdAt"`

	TimeLimit   time.Duration `json:"timeLimit"`
	MemoryLimit Size          `json:"memoryLimit"`

	// Priority is consumed by the scheduling collaborator only
	Priority int `json:"priority"`
}

// NewSubmission creates a submission with a fresh identity
func NewSubmission(problemID, userID uuid.UUID, lang Language, source string, timeLimit time.Duration, memoryLimit Size) *Submission {
	return &Submission{
		ID:          uuid.New(),
		ProblemID:   problemID,
		UserID:      userID,
		Language:    lang,
		Source:      source,
		CreatedAt:   time.Now(),
		TimeLimit:   timeLimit,
		MemoryLimit: memoryLimit,
	}
}

// NewContestSubmission creates a submission attached to a contest with
// elevated scheduling priority
func NewContestSubmission(problemID, userID, contestID uuid.UUID, lang Language, source string, timeLimit time.Duration, memoryLimit Size) *Submission {
	s := NewSubmission(problemID, userID, lang, source, timeLimit, memoryLimit)
	s.ContestID = &contestID
	s.Priority = 10
	return s
}

// SourceFileName returns the file name the source is staged under,
// derived from the language catalogue
func (s *Submission) SourceFileName() string {
	return s.Language.SourceFileName()
}

// NeedsCompile derives the compile requirement from the language
func (s *Submission) NeedsCompile() bool {
	return s.Language.NeedsCompile()
}

// TestCase is one input / expected-output pair with optional per-case
// limit overrides. Zero limits mean "use the submission's limit".
type TestCase struct {
	ID       string `json:"id"`
	Input    string `json:"input"`
	Expected string `json:"expectedOutput"`

	TimeLimit   time.Duration `json:"timeLimit,omitempty"`
	MemoryLimit Size          `json:"memoryLimit,omitempty"`

	// Hidden marks cases whose data the presentation layer must not show
	Hidden bool    `json:"hidden,omitempty"`
	Weight float64 `json:"weight"`
}

// NewTestCase creates a visible test case with unit weight
func NewTestCase(id, input, expected string) TestCase {
	return TestCase{ID: id, Input: input, Expected: expected, Weight: 1}
}

// EffectiveTimeLimit resolves the per-case override against the default
func (c *TestCase) EffectiveTimeLimit(def time.Duration) time.Duration {
	if c.TimeLimit > 0 {
		return c.TimeLimit
	}
	return def
}

// EffectiveMemoryLimit resolves the per-case override against the default
func (c *TestCase) EffectiveMemoryLimit(def Size) Size {
	if c.MemoryLimit > 0 {
		return c.MemoryLimit
	}
	return def
}

// JudgeTask is one judgement attempt: a submission plus its ordered test
// cases. Immutable after creation.
type JudgeTask struct {
	Submission Submission `json:"submission"`
	Cases      []TestCase `json:"testCases"`

	// NeedsCompile derives from the language at creation time
	NeedsCompile bool `json:"needsCompile"`

	// UseSandbox is always true: there is no non-sandboxed execution path
	UseSandbox bool `json:"useSandbox"`

	ExtraCompileArgs []string `json:"extraCompileArgs,omitempty"`
	ExtraRunArgs     []string `json:"extraRunArgs,omitempty"`
}

// NewJudgeTask derives a judge task from a submission and its test cases
func NewJudgeTask(sub *Submission, cases []TestCase) *JudgeTask {
	return &JudgeTask{
		Submission:   *sub,
		Cases:        cases,
		NeedsCompile: sub.NeedsCompile(),
		UseSandbox:   true,
	}
}

// CaseCount returns the number of test cases
func (t *JudgeTask) CaseCount() int {
	return len(t.Cases)
}

// TotalWeight sums the weight over all test cases
func (t *JudgeTask) TotalWeight() float64 {
	var w float64
	for i := range t.Cases {
		w += t.Cases[i].Weight
	}
	return w
}

// MaxTimeLimit returns the largest effective time limit among the cases
func (t *JudgeTask) MaxTimeLimit() time.Duration {
	m := t.Submission.TimeLimit
	for i := range t.Cases {
		if l := t.Cases[i].EffectiveTimeLimit(t.Submission.TimeLimit); l > m {
			m = l
		}
	}
	return m
}

// MaxMemoryLimit returns the largest effective memory limit among the cases
func (t *JudgeTask) MaxMemoryLimit() Size {
	m := t.Submission.MemoryLimit
	for i := range t.Cases {
		if l := t.Cases[i].EffectiveMemoryLimit(t.Submission.MemoryLimit); l > m {
			m = l
		}
	}
	return m
}
