package container

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	specs "github.com/opencontainers/runtime-spec/specs-go"
	"go.uber.org/zap"

	"github.com/codequay/judgecore/model"
	"github.com/codequay/judgecore/ocispec"
	"github.com/codequay/judgecore/rootfs"
)

const (
	defaultOutputLimit    = 64 * model.MiB
	defaultGracePeriod    = time.Second
	defaultSampleInterval = 100 * time.Millisecond
)

// Config defines invoker configuration
type Config struct {
	Backend Backend

	// Root holds one bundle directory per in-flight instance
	Root string

	// Mounts / Seccomp / HostUID / HostGID feed spec generation
	Mounts  *ocispec.Mounts
	Seccomp *specs.LinuxSeccomp
	HostUID uint32
	HostGID uint32

	// OutputLimit caps stdout and stderr capture independently
	OutputLimit model.Size

	// GracePeriod is added to the effective time limit to form the
	// forced-termination deadline
	GracePeriod time.Duration

	// SampleInterval is the memory usage polling period
	SampleInterval time.Duration

	Logger *zap.Logger
}

// Command describes one sandboxed execution
type Command struct {
	Args  []string
	Env   []string
	Stdin string

	// WorkDir is the host directory bound read-write at /workspace
	WorkDir string

	TimeLimit   time.Duration
	MemoryLimit model.Size

	// OutputLimit overrides the invoker default when non-zero
	OutputLimit model.Size
}

// Result is the raw observed outcome of one sandboxed execution,
// consumed by the outcome classifier.
type Result struct {
	ExitCode int
	Signal   int
	Signaled bool

	Time   time.Duration // wall clock
	Memory model.Size    // peak observed

	Stdout []byte
	Stderr []byte

	OutputExceeded bool
	TimedOut       bool
	Cancelled      bool
}

// Invoker runs commands inside fresh, single-use sandbox instances
type Invoker struct {
	backend Backend
	root    string

	mounts  *ocispec.Mounts
	seccomp *specs.LinuxSeccomp
	hostUID uint32
	hostGID uint32

	outputLimit    model.Size
	gracePeriod    time.Duration
	sampleInterval time.Duration

	logger *zap.Logger
}

// New creates an invoker
func New(conf Config) (*Invoker, error) {
	if conf.Backend == nil {
		return nil, fmt.Errorf("container: backend is required")
	}
	if conf.Root == "" {
		return nil, fmt.Errorf("container: root directory is required")
	}
	if conf.OutputLimit == 0 {
		conf.OutputLimit = defaultOutputLimit
	}
	if conf.GracePeriod == 0 {
		conf.GracePeriod = defaultGracePeriod
	}
	if conf.SampleInterval == 0 {
		conf.SampleInterval = defaultSampleInterval
	}
	if conf.Logger == nil {
		conf.Logger = zap.NewNop()
	}
	if err := os.MkdirAll(conf.Root, 0o755); err != nil {
		return nil, fmt.Errorf("container: create root: %w", err)
	}
	return &Invoker{
		backend:        conf.Backend,
		root:           conf.Root,
		mounts:         conf.Mounts,
		seccomp:        conf.Seccomp,
		hostUID:        conf.HostUID,
		hostGID:        conf.HostGID,
		outputLimit:    conf.OutputLimit,
		gracePeriod:    conf.GracePeriod,
		sampleInterval: conf.SampleInterval,
		logger:         conf.Logger,
	}, nil
}

// Run provisions a bundle under a freshly generated instance identity,
// starts the isolated process and waits for it under the deadline.
// Instance state and the bundle tree are removed on every exit path;
// cleanup failures are logged, never returned, so they cannot mask an
// already-determined outcome. The returned error reports environment
// failures only.
func (v *Invoker) Run(ctx context.Context, cmd Command) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return &Result{Cancelled: true}, nil
	}
	// identity is single-use: generated here, threaded through spec
	// generation, invocation and cleanup, never reused
	id := uuid.NewString()
	bundle := filepath.Join(v.root, id)

	rfs, err := rootfs.Provision(filepath.Join(bundle, "rootfs"), id)
	if err != nil {
		return nil, err
	}
	defer v.cleanup(id, bundle, rfs)

	if _, err := ocispec.Generate(bundle, ocispec.Params{
		Args:         cmd.Args,
		Env:          cmd.Env,
		MemoryLimit:  cmd.MemoryLimit,
		WorkspaceDir: cmd.WorkDir,
		Mounts:       v.mounts,
		Seccomp:      v.seccomp,
		HostUID:      v.hostUID,
		HostGID:      v.hostGID,
	}); err != nil {
		return nil, err
	}

	outputLimit := cmd.OutputLimit
	if outputLimit == 0 {
		outputLimit = v.outputLimit
	}

	killCh := make(chan struct{})
	var killOnce sync.Once
	kill := func() { killOnce.Do(func() { close(killCh) }) }

	stdout := newCappedBuffer(outputLimit, kill)
	stderr := newCappedBuffer(outputLimit, kill)

	start := time.Now()
	proc, err := v.backend.Start(ctx, id, bundle, Stdio{
		Stdin:  strings.NewReader(cmd.Stdin),
		Stdout: stdout,
		Stderr: stderr,
	})
	if err != nil {
		return nil, err
	}

	sampleDone := make(chan struct{})
	peakCh := make(chan model.Size, 1)
	go v.sampleMemory(id, sampleDone, peakCh)

	waitCh := make(chan waitOutcome, 1)
	go func() {
		st, err := proc.Wait()
		waitCh <- waitOutcome{state: st, err: err}
	}()

	deadline := cmd.TimeLimit + v.gracePeriod
	timer := time.NewTimer(deadline)
	defer timer.Stop()

	res := &Result{}
	var w waitOutcome
	select {
	case w = <-waitCh:
	case <-timer.C:
		res.TimedOut = true
		w = v.terminate(ctx, id, proc, waitCh)
	case <-ctx.Done():
		res.Cancelled = true
		w = v.terminate(ctx, id, proc, waitCh)
	case <-killCh:
		res.OutputExceeded = true
		w = v.terminate(ctx, id, proc, waitCh)
	}
	res.Time = time.Since(start)

	close(sampleDone)
	res.Memory = <-peakCh

	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	if stdout.Overflowed() || stderr.Overflowed() {
		res.OutputExceeded = true
	}

	if w.err != nil {
		if res.TimedOut || res.Cancelled || res.OutputExceeded {
			// forced termination makes the wait error expected
			v.logger.Debug("wait after forced termination",
				zap.String("id", id), zap.Error(w.err))
		} else {
			return nil, w.err
		}
	}
	res.ExitCode = w.state.ExitCode
	res.Signal = w.state.Signal
	res.Signaled = w.state.Signaled
	return res, nil
}

type waitOutcome struct {
	state ExitState
	err   error
}

// terminate force-kills the instance and bounds the wait for its exit,
// so a stuck backend can never block the evaluator indefinitely.
func (v *Invoker) terminate(ctx context.Context, id string, proc Process, waitCh <-chan waitOutcome) waitOutcome {
	proc.Terminate()
	killCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.gracePeriod)
	defer cancel()
	if err := v.backend.Kill(killCtx, id); err != nil {
		v.logger.Debug("backend kill", zap.String("id", id), zap.Error(err))
	}
	select {
	case w := <-waitCh:
		return w
	case <-time.After(v.gracePeriod):
		v.logger.Warn("process did not exit after forced termination",
			zap.String("id", id))
		return waitOutcome{}
	}
}

// sampleMemory polls the backend's memory accounting until told to stop
// and reports the peak observed.
func (v *Invoker) sampleMemory(id string, done <-chan struct{}, peakCh chan<- model.Size) {
	var peak uint64
	ticker := time.NewTicker(v.sampleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			peakCh <- model.Size(peak)
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), v.sampleInterval)
			u, err := v.backend.Stats(ctx, id)
			cancel()
			if err != nil {
				continue
			}
			if u.Memory > peak {
				peak = u.Memory
			}
			if u.MemoryMax > peak {
				peak = u.MemoryMax
			}
		}
	}
}

// cleanup releases the instance on every exit path: backend state first,
// then the bundle tree. Failures are logged and never propagated.
func (v *Invoker) cleanup(id, bundle string, rfs *rootfs.Rootfs) {
	ctx, cancel := context.WithTimeout(context.Background(), v.gracePeriod)
	defer cancel()
	if err := v.backend.Delete(ctx, id); err != nil {
		v.logger.Debug("backend delete", zap.String("id", id), zap.Error(err))
	}
	if err := rfs.Remove(); err != nil {
		v.logger.Warn("rootfs removal failed", zap.String("id", id), zap.Error(err))
	}
	if err := os.RemoveAll(bundle); err != nil {
		v.logger.Warn("bundle removal failed", zap.String("id", id), zap.Error(err))
	}
}
