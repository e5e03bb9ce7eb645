package rootfs

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace is the host-side staging directory for one judge task. It is
// bind-mounted read-write at /workspace inside every execution of the
// task, so compile artifacts written by one invocation are visible to
// the next.
type Workspace struct {
	path string
}

// NewWorkspace creates a private staging directory for taskID under root
func NewWorkspace(root, taskID string) (*Workspace, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("workspace: create root %s: %w", root, err)
	}
	p, err := os.MkdirTemp(root, taskID+"-*")
	if err != nil {
		return nil, fmt.Errorf("workspace: create: %w", err)
	}
	// world-accessible so the unprivileged mapped user can write artifacts
	if err := os.Chmod(p, 0o777); err != nil {
		os.RemoveAll(p)
		return nil, fmt.Errorf("workspace: chmod: %w", err)
	}
	return &Workspace{path: p}, nil
}

// Path returns the host path of the workspace
func (w *Workspace) Path() string {
	return w.path
}

func (w *Workspace) resolve(name string) (string, error) {
	if name == "" || !filepath.IsLocal(name) {
		return "", fmt.Errorf("workspace: invalid file name %q", name)
	}
	return filepath.Join(w.path, name), nil
}

// WriteFile stages a file into the workspace. name must stay inside the
// workspace; escaping paths are rejected.
func (w *Workspace) WriteFile(name string, data []byte) error {
	p, err := w.resolve(name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(p, data, 0o666); err != nil {
		return fmt.Errorf("workspace: write %s: %w", name, err)
	}
	return nil
}

// ReadFile collects a file out of the workspace
func (w *Workspace) ReadFile(name string) ([]byte, error) {
	p, err := w.resolve(name)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("workspace: read %s: %w", name, err)
	}
	return b, nil
}

// Remove deletes the workspace and everything staged in it
func (w *Workspace) Remove() error {
	if err := os.RemoveAll(w.path); err != nil {
		return fmt.Errorf("workspace: remove %s: %w", w.path, err)
	}
	return nil
}
