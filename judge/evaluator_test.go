package judge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/codequay/judgecore/container"
	"github.com/codequay/judgecore/model"
)

// fakeRunner scripts one outcome per invocation in call order. The first
// scripted outcome answers the compile invocation when the task compiles.
type fakeRunner struct {
	mu       sync.Mutex
	outcomes []fakeOutcome
	calls    []container.Command
}

type fakeOutcome struct {
	res *container.Result
	err error
}

func (f *fakeRunner) Run(_ context.Context, cmd container.Command) (*container.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, cmd)
	if len(f.outcomes) == 0 {
		return &container.Result{}, nil
	}
	o := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	return o.res, o.err
}

func ok(stdout string) fakeOutcome {
	return fakeOutcome{res: &container.Result{Stdout: []byte(stdout)}}
}

func newEvaluator(t *testing.T, r Runner, mod func(*Config)) *Evaluator {
	t.Helper()
	conf := Config{
		Runner:         r,
		WorkRoot:       t.TempDir(),
		MaxConcurrency: 2,
	}
	if mod != nil {
		mod(&conf)
	}
	e, err := New(conf)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func pythonTask(cases ...model.TestCase) *model.JudgeTask {
	sub := model.NewSubmission(uuid.New(), uuid.New(), model.LangPython3,
		"print(input())", time.Second, 64*model.MiB)
	return model.NewJudgeTask(sub, cases)
}

func cTask(cases ...model.TestCase) *model.JudgeTask {
	sub := model.NewSubmission(uuid.New(), uuid.New(), model.LangC,
		"int main(){return 0;}", time.Second, 64*model.MiB)
	return model.NewJudgeTask(sub, cases)
}

func TestJudgeAllAccepted(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{ok("1\n"), ok("2\n")}}
	e := newEvaluator(t, r, nil)

	task := pythonTask(
		model.NewTestCase("1", "1", "1"),
		model.NewTestCase("2", "2", "2"),
	)
	res := e.Judge(context.Background(), task)

	if res.Status != model.Accepted {
		t.Fatalf("status = %v, want Accepted", res.Status)
	}
	if res.Score != 100 {
		t.Errorf("score = %v, want 100", res.Score)
	}
	if res.PassedTestCases() != 2 || res.TotalTestCases() != 2 {
		t.Errorf("passed/total = %d/%d, want 2/2",
			res.PassedTestCases(), res.TotalTestCases())
	}
	if res.JudgedAt.IsZero() {
		t.Error("JudgedAt not set")
	}
}

func TestJudgeHalfWrongScoresFifty(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{ok("1\n"), ok("wrong\n")}}
	e := newEvaluator(t, r, nil)

	task := pythonTask(
		model.NewTestCase("1", "1", "1"),
		model.NewTestCase("2", "2", "2"),
	)
	res := e.Judge(context.Background(), task)

	if res.Status != model.WrongAnswer {
		t.Fatalf("status = %v, want WrongAnswer", res.Status)
	}
	if res.Score != 50 {
		t.Errorf("score = %v, want 50", res.Score)
	}
	if res.TotalTestCases() != 2 {
		t.Errorf("total cases = %d, want 2", res.TotalTestCases())
	}
}

func TestJudgeWeightedPartialCredit(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{ok("a\n"), ok("nope\n"), ok("c\n")}}
	e := newEvaluator(t, r, nil)

	c1 := model.NewTestCase("1", "", "a")
	c1.Weight = 1
	c2 := model.NewTestCase("2", "", "b")
	c2.Weight = 2
	c3 := model.NewTestCase("3", "", "c")
	c3.Weight = 3
	res := e.Judge(context.Background(), pythonTask(c1, c2, c3))

	// 4 of 6 weight passed
	if res.Score != 66.67 {
		t.Errorf("score = %v, want 66.67", res.Score)
	}
	if res.Status != model.WrongAnswer {
		t.Errorf("status = %v, want WrongAnswer", res.Status)
	}
}

func TestJudgeOverallIsFirstFailureInTaskOrder(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{
		ok("a\n"),
		{res: &container.Result{TimedOut: true}},
		{res: &container.Result{Stdout: []byte("x\n")}}, // wrong for case 3
	}}
	e := newEvaluator(t, r, nil)

	task := pythonTask(
		model.NewTestCase("1", "", "a"),
		model.NewTestCase("2", "", "b"),
		model.NewTestCase("3", "", "c"),
	)
	res := e.Judge(context.Background(), task)

	if res.Status != model.TimeLimitExceeded {
		t.Errorf("status = %v, want TimeLimitExceeded", res.Status)
	}
}

func TestJudgeCompileFailureShortCircuits(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{
		{res: &container.Result{ExitCode: 1, Stderr: []byte("main.c:1: error: expected ';'")}},
	}}
	e := newEvaluator(t, r, nil)

	task := cTask(model.NewTestCase("1", "", ""))
	res := e.Judge(context.Background(), task)

	if res.Status != model.CompileError {
		t.Fatalf("status = %v, want CompileError", res.Status)
	}
	if res.Score != 0 {
		t.Errorf("score = %v, want 0", res.Score)
	}
	if res.TotalTestCases() != 0 {
		t.Errorf("test cases = %d, want 0", res.TotalTestCases())
	}
	if res.ErrorInfo == nil || res.ErrorInfo.Stderr != "main.c:1: error: expected ';'" {
		t.Errorf("compile stderr not attached verbatim: %+v", res.ErrorInfo)
	}
	if len(r.calls) != 1 {
		t.Errorf("runner called %d times, want 1 (compile only)", len(r.calls))
	}
}

func TestJudgeCompileSuccessRunsCases(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{ok(""), ok("hi\n")}}
	e := newEvaluator(t, r, nil)

	task := cTask(model.NewTestCase("1", "", "hi"))
	res := e.Judge(context.Background(), task)

	if res.Status != model.Accepted {
		t.Fatalf("status = %v, want Accepted", res.Status)
	}
	if len(r.calls) != 2 {
		t.Fatalf("runner called %d times, want 2", len(r.calls))
	}
	if r.calls[0].Args[0] != "gcc" {
		t.Errorf("first call args = %v, want compile command", r.calls[0].Args)
	}
	if r.calls[1].Args[0] != "./main" {
		t.Errorf("second call args = %v, want run command", r.calls[1].Args)
	}
	if r.calls[0].WorkDir != r.calls[1].WorkDir {
		t.Error("compile and run must share the workspace")
	}
}

func TestJudgeRetriesOnceOnSystemError(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{
		{err: context.DeadlineExceeded},
		ok("1\n"),
	}}
	e := newEvaluator(t, r, func(c *Config) { c.RetrySystemError = true })

	task := pythonTask(model.NewTestCase("1", "1", "1"))
	res := e.Judge(context.Background(), task)

	if res.Status != model.Accepted {
		t.Fatalf("status = %v, want Accepted after retry", res.Status)
	}
	if len(r.calls) != 2 {
		t.Errorf("runner called %d times, want 2", len(r.calls))
	}
}

func TestJudgeNoRetryForProgramFailure(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{ok("wrong\n")}}
	e := newEvaluator(t, r, func(c *Config) { c.RetrySystemError = true })

	task := pythonTask(model.NewTestCase("1", "1", "1"))
	res := e.Judge(context.Background(), task)

	if res.Status != model.WrongAnswer {
		t.Fatalf("status = %v, want WrongAnswer", res.Status)
	}
	if len(r.calls) != 1 {
		t.Errorf("runner called %d times, want 1", len(r.calls))
	}
}

func TestJudgeCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &fakeRunner{}
	e := newEvaluator(t, r, func(c *Config) { c.RetrySystemError = true })

	task := pythonTask(model.NewTestCase("1", "1", "1"))
	res := e.Judge(ctx, task)

	if res.Status != model.Cancelled {
		t.Fatalf("status = %v, want Cancelled", res.Status)
	}
	if len(r.calls) != 0 {
		t.Errorf("runner called %d times after cancellation, want 0", len(r.calls))
	}
}

func TestJudgeFailFastSkipsRemainingCases(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{ok("wrong\n"), ok("b\n")}}
	e := newEvaluator(t, r, func(c *Config) { c.FailFast = true })

	task := pythonTask(
		model.NewTestCase("1", "", "a"),
		model.NewTestCase("2", "", "b"),
	)
	res := e.Judge(context.Background(), task)

	if res.Status != model.WrongAnswer {
		t.Fatalf("status = %v, want WrongAnswer", res.Status)
	}
	if res.TotalTestCases() != 1 {
		t.Errorf("test cases = %d, want 1", res.TotalTestCases())
	}
	if len(r.calls) != 1 {
		t.Errorf("runner called %d times, want 1", len(r.calls))
	}
}

func TestJudgeAggregatesAreMaxima(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{
		{res: &container.Result{Stdout: []byte("a\n"), Time: 100 * time.Millisecond, Memory: 8 * model.MiB}},
		{res: &container.Result{Stdout: []byte("b\n"), Time: 300 * time.Millisecond, Memory: 4 * model.MiB}},
	}}
	e := newEvaluator(t, r, nil)

	task := pythonTask(
		model.NewTestCase("1", "", "a"),
		model.NewTestCase("2", "", "b"),
	)
	res := e.Judge(context.Background(), task)

	if res.Time != 300*time.Millisecond {
		t.Errorf("time = %v, want 300ms", res.Time)
	}
	if res.Memory != 8*model.MiB {
		t.Errorf("memory = %v, want 8 MiB", res.Memory)
	}
}

func TestJudgePerCaseLimitOverrides(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{ok("a\n")}}
	e := newEvaluator(t, r, nil)

	c := model.NewTestCase("1", "", "a")
	c.TimeLimit = 5 * time.Second
	c.MemoryLimit = 256 * model.MiB
	e.Judge(context.Background(), pythonTask(c))

	if len(r.calls) != 1 {
		t.Fatalf("runner called %d times, want 1", len(r.calls))
	}
	if r.calls[0].TimeLimit != 5*time.Second {
		t.Errorf("time limit = %v, want override 5s", r.calls[0].TimeLimit)
	}
	if r.calls[0].MemoryLimit != 256*model.MiB {
		t.Errorf("memory limit = %v, want override 256 MiB", r.calls[0].MemoryLimit)
	}
}

func TestJudgeObserverSeesEveryCase(t *testing.T) {
	r := &fakeRunner{outcomes: []fakeOutcome{ok("a\n"), ok("wrong\n")}}
	var seen []model.Status
	e := newEvaluator(t, r, func(c *Config) {
		c.CaseObserver = func(tc model.TestCaseResult) { seen = append(seen, tc.Status) }
	})

	task := pythonTask(
		model.NewTestCase("1", "", "a"),
		model.NewTestCase("2", "", "b"),
	)
	e.Judge(context.Background(), task)

	if len(seen) != 2 || seen[0] != model.Accepted || seen[1].Code != model.WrongAnswer.Code {
		t.Errorf("observed statuses = %v", seen)
	}
}
