// Package judge orchestrates one sandboxed execution per test case and
// aggregates the per-case verdicts into a final judge result.
package judge

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/codequay/judgecore/classify"
	"github.com/codequay/judgecore/container"
	"github.com/codequay/judgecore/model"
	"github.com/codequay/judgecore/rootfs"
)

const (
	defaultCompileTimeLimit   = 10 * time.Second
	defaultCompileMemoryLimit = model.GiB
)

// Runner runs one command inside a fresh sandbox instance. Satisfied by
// *container.Invoker.
type Runner interface {
	Run(ctx context.Context, cmd container.Command) (*container.Result, error)
}

// Config defines evaluator configuration
type Config struct {
	Runner Runner

	// WorkRoot holds one staging workspace per in-flight task
	WorkRoot string

	// Compare is the deployment-wide output comparison policy;
	// nil selects the default trailing-whitespace-insensitive policy
	Compare classify.Comparator

	// MaxConcurrency caps concurrently live sandbox instances on this
	// host; acquiring a slot may block until capacity frees
	MaxConcurrency int64

	// FailFast stops running further cases after the first non-accepted
	// one; partial credit is forfeited for the skipped cases
	FailFast bool

	// RetrySystemError re-attempts the whole task once when the failure
	// is environmental, never when it is program-caused
	RetrySystemError bool

	CompileTimeLimit   time.Duration
	CompileMemoryLimit model.Size

	// ExtraCompileArgs / ExtraRunArgs are appended to every task
	ExtraCompileArgs []string
	ExtraRunArgs     []string

	// CaseObserver sees every finished test case result
	CaseObserver func(model.TestCaseResult)

	Logger *zap.Logger
}

// Evaluator judges tasks
type Evaluator struct {
	runner     Runner
	workRoot   string
	classifier classify.Classifier
	sem        *semaphore.Weighted
	failFast   bool
	retrySE    bool

	compileTimeLimit   time.Duration
	compileMemoryLimit model.Size
	extraCompileArgs   []string
	extraRunArgs       []string

	caseObserver func(model.TestCaseResult)
	logger       *zap.Logger
}

// New creates an evaluator
func New(conf Config) (*Evaluator, error) {
	if conf.Runner == nil {
		return nil, fmt.Errorf("judge: runner is required")
	}
	if conf.WorkRoot == "" {
		return nil, fmt.Errorf("judge: work root is required")
	}
	if conf.MaxConcurrency <= 0 {
		conf.MaxConcurrency = 1
	}
	if conf.CompileTimeLimit == 0 {
		conf.CompileTimeLimit = defaultCompileTimeLimit
	}
	if conf.CompileMemoryLimit == 0 {
		conf.CompileMemoryLimit = defaultCompileMemoryLimit
	}
	if conf.Logger == nil {
		conf.Logger = zap.NewNop()
	}
	return &Evaluator{
		runner:             conf.Runner,
		workRoot:           conf.WorkRoot,
		classifier:         classify.New(conf.Compare),
		sem:                semaphore.NewWeighted(conf.MaxConcurrency),
		failFast:           conf.FailFast,
		retrySE:            conf.RetrySystemError,
		compileTimeLimit:   conf.CompileTimeLimit,
		compileMemoryLimit: conf.CompileMemoryLimit,
		extraCompileArgs:   conf.ExtraCompileArgs,
		extraRunArgs:       conf.ExtraRunArgs,
		caseObserver:       conf.CaseObserver,
		logger:             conf.Logger,
	}, nil
}

// Judge evaluates one task to a final result. Environment failures are
// retried once when configured; program-caused statuses never are.
func (e *Evaluator) Judge(ctx context.Context, task *model.JudgeTask) *model.JudgeResult {
	res := e.judgeOnce(ctx, task)
	if res.Status == model.SystemError && e.retrySE && ctx.Err() == nil {
		e.logger.Warn("retrying task after system error",
			zap.Stringer("submission", task.Submission.ID),
			zap.String("error", errMessage(res)))
		res = e.judgeOnce(ctx, task)
	}
	return res
}

func (e *Evaluator) judgeOnce(ctx context.Context, task *model.JudgeTask) *model.JudgeResult {
	result := model.NewJudgeResult(&task.Submission)
	result.Status = model.Judging

	ws, err := rootfs.NewWorkspace(e.workRoot, task.Submission.ID.String())
	if err != nil {
		return e.systemError(result, err)
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			e.logger.Warn("workspace removal failed", zap.Error(err))
		}
	}()

	source := task.Submission.SourceFileName()
	if err := ws.WriteFile(source, []byte(task.Submission.Source)); err != nil {
		return e.systemError(result, err)
	}

	if task.NeedsCompile {
		status, info := e.compile(ctx, task, ws)
		if !status.IsAccepted() {
			result.Status = status
			result.ErrorInfo = info
			result.JudgedAt = time.Now()
			// compile failure short-circuits: no test cases run, score 0
			return result
		}
	}

	for i := range task.Cases {
		if ctx.Err() != nil {
			result.Status = model.Cancelled
			break
		}
		tcr := e.runCase(ctx, task, &task.Cases[i], ws)
		result.AddTestCase(tcr)
		if e.caseObserver != nil {
			e.caseObserver(tcr)
		}
		if tcr.Status == model.SystemError {
			result.Status = model.SystemError
			result.ErrorInfo = tcr.ErrorInfo
			break
		}
		if tcr.Status == model.Cancelled {
			result.Status = model.Cancelled
			break
		}
		if e.failFast && !tcr.Status.IsAccepted() {
			break
		}
	}

	e.finalize(result, task)
	return result
}

// finalize computes the aggregate exactly once: weighted score, overall
// status by first non-accepted case in task order, and max time/memory.
func (e *Evaluator) finalize(result *model.JudgeResult, task *model.JudgeTask) {
	var passedWeight float64
	for i := range result.TestCases {
		tc := &result.TestCases[i]
		if tc.Status.IsAccepted() {
			passedWeight += task.Cases[i].Weight
		}
		if tc.Time > result.Time {
			result.Time = tc.Time
		}
		if tc.Memory > result.Memory {
			result.Memory = tc.Memory
		}
	}
	if total := task.TotalWeight(); total > 0 {
		result.Score = math.Round(passedWeight/total*100*100) / 100
	}

	if result.Status == model.Judging {
		result.Status = model.Accepted
		for i := range result.TestCases {
			if !result.TestCases[i].Status.IsAccepted() {
				result.Status = result.TestCases[i].Status
				break
			}
		}
	}
	result.JudgedAt = time.Now()
}

func (e *Evaluator) compile(ctx context.Context, task *model.JudgeTask, ws *rootfs.Workspace) (model.Status, *model.ErrorInfo) {
	extra := append(append([]string{}, e.extraCompileArgs...), task.ExtraCompileArgs...)
	args := task.Submission.Language.CompileCommand(extra)

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return model.Cancelled, nil
	}
	defer e.sem.Release(1)

	res, err := e.runner.Run(ctx, container.Command{
		Args:        args,
		WorkDir:     ws.Path(),
		TimeLimit:   e.compileTimeLimit,
		MemoryLimit: e.compileMemoryLimit,
	})
	if err != nil {
		if ctx.Err() != nil {
			return model.Cancelled, nil
		}
		return model.SystemError, environmentErrorInfo(err)
	}
	return e.classifier.Classify(res, classify.PhaseCompile, classify.Limits{
		Time:   e.compileTimeLimit,
		Memory: e.compileMemoryLimit,
	}, nil)
}

func (e *Evaluator) runCase(ctx context.Context, task *model.JudgeTask, tc *model.TestCase, ws *rootfs.Workspace) model.TestCaseResult {
	timeLimit := tc.EffectiveTimeLimit(task.Submission.TimeLimit)
	memoryLimit := tc.EffectiveMemoryLimit(task.Submission.MemoryLimit)

	out := model.TestCaseResult{
		ID:       tc.ID,
		Input:    tc.Input,
		Expected: tc.Expected,
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		out.Status = model.Cancelled
		return out
	}
	defer e.sem.Release(1)

	extra := append(append([]string{}, e.extraRunArgs...), task.ExtraRunArgs...)
	res, err := e.runner.Run(ctx, container.Command{
		Args:        task.Submission.Language.RunCommand(extra),
		Stdin:       tc.Input,
		WorkDir:     ws.Path(),
		TimeLimit:   timeLimit,
		MemoryLimit: memoryLimit,
	})
	if err != nil {
		if ctx.Err() != nil {
			out.Status = model.Cancelled
			return out
		}
		e.logger.Error("sandbox invocation failed",
			zap.String("case", tc.ID), zap.Error(err))
		out.Status = model.SystemError
		out.ErrorInfo = environmentErrorInfo(err)
		return out
	}

	status, info := e.classifier.Classify(res, classify.PhaseRun, classify.Limits{
		Time:   timeLimit,
		Memory: memoryLimit,
	}, []byte(tc.Expected))

	out.Status = status
	out.Time = res.Time
	out.Memory = res.Memory
	out.Actual = string(res.Stdout)
	out.ErrorInfo = info
	return out
}

func (e *Evaluator) systemError(result *model.JudgeResult, err error) *model.JudgeResult {
	e.logger.Error("environment failure", zap.Error(err))
	result.Status = model.SystemError
	result.ErrorInfo = environmentErrorInfo(err)
	result.JudgedAt = time.Now()
	return result
}

func environmentErrorInfo(err error) *model.ErrorInfo {
	return &model.ErrorInfo{Message: "judging environment failure: " + err.Error()}
}

func errMessage(r *model.JudgeResult) string {
	if r.ErrorInfo != nil {
		return r.ErrorInfo.Message
	}
	return ""
}
