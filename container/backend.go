// Package container invokes the external isolation backend: it
// provisions a bundle per execution, starts the sandboxed process,
// enforces the wall-clock deadline and the output cap, and tears the
// instance down on every exit path.
package container

import (
	"context"
	"io"
)

// Backend is the command contract with the external isolation engine:
// create-and-start from a bundle, wait for completion, forcibly
// terminate, and delete by identity. Implementations must be safe for
// concurrent use across distinct instance ids.
type Backend interface {
	// Start creates and starts the container described by the bundle
	// under the given fresh identity
	Start(ctx context.Context, id, bundle string, stdio Stdio) (Process, error)

	// Kill forcibly terminates every process of the instance
	Kill(ctx context.Context, id string) error

	// Delete removes the instance state from the backend
	Delete(ctx context.Context, id string) error

	// Stats samples current resource usage of the instance
	Stats(ctx context.Context, id string) (Usage, error)
}

// Stdio carries the process streams. Stdout and Stderr are written to
// by the backend as output is produced.
type Stdio struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Process is one started container process
type Process interface {
	// Wait blocks until the process exits. The returned error reports
	// backend failures only; program exits of any kind are ExitState.
	Wait() (ExitState, error)

	// Terminate force-kills the process and every child it forked.
	// Safe to call multiple times and after exit.
	Terminate()
}

// ExitState is the raw process outcome
type ExitState struct {
	ExitCode int
	Signal   int  // terminating signal number
	Signaled bool // true when the process died from a signal
}

// Usage is a point-in-time resource usage sample
type Usage struct {
	Memory    uint64 // current usage in bytes
	MemoryMax uint64 // peak usage in bytes as accounted by the backend
}
