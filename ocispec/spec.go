package ocispec

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	specs "github.com/opencontainers/runtime-spec/specs-go"

	"github.com/codequay/judgecore/model"
)

// ConfigFileName is the spec document name inside a bundle
const ConfigFileName = "config.json"

// WorkDir is the working directory of the sandboxed process
const WorkDir = "/workspace"

const (
	hostname = "sandbox"

	devTmpfsData       = "mode=755,size=65536k"
	workspaceTmpfsData = "size=1048576k"
	tmpTmpfsData       = "size=65536k"

	defaultHostID       = 1000
	defaultOpenFileSoft = 256

	// process ceiling bounds; scaled by the memory limit in between
	minPidsLimit = 64
	maxPidsLimit = 256
)

// Params describes one sandboxed process execution
type Params struct {
	Args []string
	Env  []string
	Cwd  string // default /workspace

	// MemoryLimit becomes the hard memory ceiling; the process-count
	// ceiling is derived from it
	MemoryLimit model.Size

	// WorkspaceDir is a host directory bind-mounted read-write at
	// /workspace. Empty means a private sized tmpfs instead.
	WorkspaceDir string

	// Mounts overrides the read-only host exposure; nil uses DefaultMounts
	Mounts *Mounts

	// Seccomp is attached verbatim when present
	Seccomp *specs.LinuxSeccomp

	// HostUID / HostGID back the single-entry user namespace mapping;
	// zero selects the default unprivileged identity
	HostUID uint32
	HostGID uint32
}

// PidsLimit maps a memory ceiling to a process/thread-count ceiling
func PidsLimit(mem model.Size) int64 {
	n := int64(minPidsLimit) + int64(mem/(8*model.MiB))
	if n < minPidsLimit {
		n = minPidsLimit
	}
	if n > maxPidsLimit {
		n = maxPidsLimit
	}
	return n
}

// New builds the runtime specification for one execution
func New(p Params) (*specs.Spec, error) {
	if len(p.Args) == 0 {
		return nil, fmt.Errorf("ocispec: empty command")
	}
	if p.Cwd == "" {
		p.Cwd = WorkDir
	}
	if p.Env == nil {
		p.Env = []string{
			"PATH=/bin:/usr/bin:/usr/local/bin",
			"HOME=/root",
			"TERM=xterm",
		}
	}
	hostUID, hostGID := p.HostUID, p.HostGID
	if hostUID == 0 {
		hostUID = defaultHostID
	}
	if hostGID == 0 {
		hostGID = defaultHostID
	}

	mounts := []specs.Mount{
		{
			Destination: "/proc",
			Type:        "proc",
			Source:      "proc",
		},
		{
			Destination: "/dev",
			Type:        "tmpfs",
			Source:      "tmpfs",
			Options:     append([]string{"nosuid", "strictatime"}, splitData(devTmpfsData)...),
		},
	}
	conf := p.Mounts
	if conf == nil {
		conf = DefaultMounts()
	}
	confMounts, err := conf.toOCI()
	if err != nil {
		return nil, err
	}
	mounts = append(mounts, confMounts...)
	if p.WorkspaceDir != "" {
		mounts = append(mounts, specs.Mount{
			Destination: WorkDir,
			Type:        "bind",
			Source:      p.WorkspaceDir,
			Options:     []string{"rbind", "rw", "nosuid", "nodev"},
		})
	} else {
		mounts = append(mounts, specs.Mount{
			Destination: WorkDir,
			Type:        "tmpfs",
			Source:      "tmpfs",
			Options:     append([]string{"rw", "nosuid", "nodev"}, splitData(workspaceTmpfsData)...),
		})
	}
	mounts = append(mounts, specs.Mount{
		Destination: "/tmp",
		Type:        "tmpfs",
		Source:      "tmpfs",
		Options:     append([]string{"rw", "nosuid", "nodev"}, splitData(tmpTmpfsData)...),
	})

	resources := &specs.LinuxResources{
		Devices: []specs.LinuxDeviceCgroup{
			{Allow: false, Access: "rwm"},
		},
	}
	if p.MemoryLimit > 0 {
		limit := int64(p.MemoryLimit)
		resources.Memory = &specs.LinuxMemory{
			Limit: &limit,
			Swap:  &limit, // no swap headroom beyond the ceiling
		}
		resources.Pids = &specs.LinuxPids{Limit: PidsLimit(p.MemoryLimit)}
	} else {
		resources.Pids = &specs.LinuxPids{Limit: minPidsLimit}
	}

	return &specs.Spec{
		Version: specs.Version,
		Process: &specs.Process{
			Terminal: false,
			User:     specs.User{UID: 0, GID: 0},
			Args:     p.Args,
			Env:      p.Env,
			Cwd:      p.Cwd,
			Capabilities: &specs.LinuxCapabilities{
				Bounding:    []string{},
				Effective:   []string{},
				Inheritable: []string{},
				Permitted:   []string{},
				Ambient:     []string{},
			},
			Rlimits: []specs.POSIXRlimit{
				{Type: "RLIMIT_NOFILE", Hard: defaultOpenFileSoft, Soft: defaultOpenFileSoft},
				{Type: "RLIMIT_CORE", Hard: 0, Soft: 0},
			},
			NoNewPrivileges: true,
		},
		Root: &specs.Root{
			Path:     "rootfs",
			Readonly: false,
		},
		Hostname: hostname,
		Mounts:   mounts,
		Linux: &specs.Linux{
			Resources: resources,
			Namespaces: []specs.LinuxNamespace{
				{Type: specs.PIDNamespace},
				{Type: specs.NetworkNamespace},
				{Type: specs.IPCNamespace},
				{Type: specs.UTSNamespace},
				{Type: specs.MountNamespace},
				{Type: specs.UserNamespace},
			},
			UIDMappings: []specs.LinuxIDMapping{
				{ContainerID: 0, HostID: hostUID, Size: 1},
			},
			GIDMappings: []specs.LinuxIDMapping{
				{ContainerID: 0, HostID: hostGID, Size: 1},
			},
			Seccomp: p.Seccomp,
		},
	}, nil
}

// Write persists the spec document into a bundle directory
func Write(bundle string, s *specs.Spec) error {
	b, err := json.MarshalIndent(s, "", "\t")
	if err != nil {
		return fmt.Errorf("ocispec: encode: %w", err)
	}
	p := filepath.Join(bundle, ConfigFileName)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		return fmt.Errorf("ocispec: write %s: %w", p, err)
	}
	return nil
}

// Generate builds the spec for p and persists it into bundle
func Generate(bundle string, p Params) (*specs.Spec, error) {
	s, err := New(p)
	if err != nil {
		return nil, err
	}
	if err := Write(bundle, s); err != nil {
		return nil, err
	}
	return s, nil
}

func splitData(data string) []string {
	return strings.Split(data, ",")
}
