package ocispec

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-yaml"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Mount defines a single configurable mount point.
// type could be bind / tmpfs
type Mount struct {
	Type     string `yaml:"type"`
	Source   string `yaml:"source"`
	Target   string `yaml:"target"`
	Readonly bool   `yaml:"readonly"`
	Data     string `yaml:"data"`
}

// Mounts defines the configurable mount points exposed to the sandbox,
// on top of the fixed proc / dev / workspace mounts.
type Mounts struct {
	Mount []Mount `yaml:"mount"`
}

// ReadMountConfig loads a mounts file. A missing file yields nil so the
// caller falls back to the built-in default set.
func ReadMountConfig(p string) (*Mounts, error) {
	d, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("mounts: read %s: %w", p, err)
	}
	var m Mounts
	if err := yaml.Unmarshal(d, &m); err != nil {
		return nil, fmt.Errorf("mounts: parse %s: %w", p, err)
	}
	return &m, nil
}

// DefaultMounts exposes the host toolchains and libraries read-only.
// /bin is mapped from /usr/bin for merged-usr hosts.
func DefaultMounts() *Mounts {
	ro := func(src, dst string) Mount {
		return Mount{Type: "bind", Source: src, Target: dst, Readonly: true}
	}
	return &Mounts{Mount: []Mount{
		ro("/usr/bin", "/bin"),
		ro("/usr/bin", "/usr/bin"),
		ro("/lib", "/lib"),
		ro("/lib64", "/lib64"),
		ro("/usr/lib", "/usr/lib"),
		ro("/usr/lib64", "/usr/lib64"),
	}}
}

func (m *Mounts) toOCI() ([]specs.Mount, error) {
	out := make([]specs.Mount, 0, len(m.Mount))
	for _, mt := range m.Mount {
		switch mt.Type {
		case "bind":
			opts := []string{"rbind", "nosuid", "nodev"}
			if mt.Readonly {
				opts = append(opts, "ro")
			}
			out = append(out, specs.Mount{
				Destination: mt.Target,
				Type:        "bind",
				Source:      mt.Source,
				Options:     opts,
			})
		case "tmpfs":
			opts := []string{"nosuid", "nodev"}
			if mt.Data != "" {
				opts = append(opts, strings.Split(mt.Data, ",")...)
			}
			out = append(out, specs.Mount{
				Destination: mt.Target,
				Type:        "tmpfs",
				Source:      "tmpfs",
				Options:     opts,
			})
		default:
			return nil, fmt.Errorf("mounts: invalid mount type %q", mt.Type)
		}
	}
	return out, nil
}
