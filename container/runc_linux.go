package container

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Runc drives the runc CLI: run --bundle for create-and-start-and-wait,
// kill --all for termination and delete --force for state removal.
type Runc struct {
	path string
}

// NewRunc creates a backend using the given runc binary, or "runc" from
// PATH when empty
func NewRunc(path string) *Runc {
	if path == "" {
		path = "runc"
	}
	return &Runc{path: path}
}

var _ Backend = (*Runc)(nil)

// Start launches `runc run` in the foreground in its own process group,
// so Terminate can sweep forked children with one signal.
func (r *Runc) Start(_ context.Context, id, bundle string, stdio Stdio) (Process, error) {
	cmd := exec.Command(r.path, "run", "--bundle", bundle, id)
	cmd.Stdin = stdio.Stdin
	cmd.Stdout = stdio.Stdout
	cmd.Stderr = stdio.Stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("runc: start %s: %w", id, err)
	}
	return &runcProcess{cmd: cmd}, nil
}

// Kill terminates all processes of the instance inside the backend
func (r *Runc) Kill(ctx context.Context, id string) error {
	out, err := exec.CommandContext(ctx, r.path, "kill", "--all", id, "KILL").CombinedOutput()
	if err != nil {
		return fmt.Errorf("runc: kill %s: %w: %s", id, err, bytes.TrimSpace(out))
	}
	return nil
}

// Delete removes the instance registration
func (r *Runc) Delete(ctx context.Context, id string) error {
	out, err := exec.CommandContext(ctx, r.path, "delete", "--force", id).CombinedOutput()
	if err != nil {
		return fmt.Errorf("runc: delete %s: %w: %s", id, err, bytes.TrimSpace(out))
	}
	return nil
}

// runcEvent is the subset of `runc events --stats` output we consume
type runcEvent struct {
	Type string `json:"type"`
	Data struct {
		Memory struct {
			Usage struct {
				Usage uint64 `json:"usage"`
				Max   uint64 `json:"max"`
			} `json:"usage"`
		} `json:"memory"`
	} `json:"data"`
}

// Stats samples the instance's memory accounting
func (r *Runc) Stats(ctx context.Context, id string) (Usage, error) {
	out, err := exec.CommandContext(ctx, r.path, "events", "--stats", id).Output()
	if err != nil {
		return Usage{}, fmt.Errorf("runc: events %s: %w", id, err)
	}
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		var ev runcEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			continue
		}
		if ev.Type == "stats" {
			return Usage{
				Memory:    ev.Data.Memory.Usage.Usage,
				MemoryMax: ev.Data.Memory.Usage.Max,
			}, nil
		}
	}
	return Usage{}, fmt.Errorf("runc: events %s: no stats event", id)
}

type runcProcess struct {
	cmd *exec.Cmd
}

func (p *runcProcess) Wait() (ExitState, error) {
	err := p.cmd.Wait()
	if err == nil {
		return ExitState{}, nil
	}
	var ee *exec.ExitError
	if !errors.As(err, &ee) {
		return ExitState{}, fmt.Errorf("runc: wait: %w", err)
	}
	ws, ok := ee.Sys().(syscall.WaitStatus)
	if !ok {
		return ExitState{ExitCode: ee.ExitCode()}, nil
	}
	return decodeWaitStatus(ws), nil
}

func (p *runcProcess) Terminate() {
	if p.cmd.Process == nil {
		return
	}
	// negative pid signals the whole process group
	unix.Kill(-p.cmd.Process.Pid, unix.SIGKILL)
}

// decodeWaitStatus maps the wait status of the runc process onto the
// container process outcome. runc run forwards a death-by-signal of the
// contained process as exit status 128+signal.
func decodeWaitStatus(ws syscall.WaitStatus) ExitState {
	if ws.Signaled() {
		return ExitState{Signal: int(ws.Signal()), Signaled: true}
	}
	code := ws.ExitStatus()
	if code > 128 {
		return ExitState{Signal: code - 128, Signaled: true}
	}
	return ExitState{ExitCode: code}
}
