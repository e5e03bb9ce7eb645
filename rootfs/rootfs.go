// Package rootfs provisions the minimal filesystem skeleton one isolated
// execution needs and stages files into the host-side workspace bound
// into the sandbox.
package rootfs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// skeleton lists the mount points and scratch directories an isolated
// process expects to find inside its root.
var skeleton = []string{
	"bin",
	"usr/bin",
	"lib",
	"lib64",
	"usr/lib",
	"usr/lib64",
	"etc",
	"proc",
	"sys",
	"dev",
	"dev/pts",
	"dev/shm",
	"workspace",
	"tmp",
}

// markerName records which instance owns a provisioned tree. Finding a
// marker from another instance means a prior environment was not cleaned
// up; merging state silently would be a correctness bug.
const markerName = ".provisioned"

// ErrInUse reports a rootfs path already owned by another instance
var ErrInUse = errors.New("rootfs: tree owned by another instance")

// Rootfs is one provisioned filesystem tree, exclusively owned by a
// single in-flight execution.
type Rootfs struct {
	path       string
	instanceID string
}

// Provision creates the skeleton under path on behalf of instanceID.
// Re-invocation by the same instance succeeds; a tree owned by a
// different instance fails fast with ErrInUse.
func Provision(path, instanceID string) (*Rootfs, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("rootfs: create %s: %w", path, err)
	}
	marker := filepath.Join(path, markerName)
	if prev, err := os.ReadFile(marker); err == nil {
		if string(prev) != instanceID {
			return nil, fmt.Errorf("%w: %s held by %s", ErrInUse, path, strings.TrimSpace(string(prev)))
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("rootfs: read marker: %w", err)
	}
	for _, d := range skeleton {
		if err := os.MkdirAll(filepath.Join(path, d), 0o755); err != nil {
			return nil, fmt.Errorf("rootfs: create %s: %w", d, err)
		}
	}
	if err := os.WriteFile(marker, []byte(instanceID), 0o644); err != nil {
		return nil, fmt.Errorf("rootfs: write marker: %w", err)
	}
	return &Rootfs{path: path, instanceID: instanceID}, nil
}

// Path returns the root of the provisioned tree
func (r *Rootfs) Path() string {
	return r.path
}

// InstanceID returns the owning instance identity
func (r *Rootfs) InstanceID() string {
	return r.instanceID
}

// Remove deletes the whole tree. It is safe to call after the backend
// has torn the container down.
func (r *Rootfs) Remove() error {
	if err := os.RemoveAll(r.path); err != nil {
		return fmt.Errorf("rootfs: remove %s: %w", r.path, err)
	}
	return nil
}
