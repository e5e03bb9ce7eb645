package ocispec

import (
	"fmt"
	"os"

	seccomp "github.com/elastic/go-seccomp-bpf"
	"github.com/elastic/go-ucfg/yaml"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// ReadSeccompConf loads a seccomp policy file and translates it into the
// declarative OCI seccomp section; the backend installs the filter.
// A missing file yields nil (no filter). Syscalls denied with a killing
// action surface as SIGSYS and classify as RestrictedOperation.
func ReadSeccompConf(name string) (*specs.LinuxSeccomp, error) {
	conf, err := yaml.NewConfigWithFile(name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("seccomp: read %s: %w", name, err)
	}

	var policy seccomp.Policy
	if err := conf.Unpack(&policy); err != nil {
		return nil, fmt.Errorf("seccomp: parse %s: %w", name, err)
	}
	return translatePolicy(&policy)
}

func translatePolicy(policy *seccomp.Policy) (*specs.LinuxSeccomp, error) {
	def, err := translateAction(policy.DefaultAction)
	if err != nil {
		return nil, err
	}
	out := &specs.LinuxSeccomp{DefaultAction: def}
	for _, g := range policy.Syscalls {
		act, err := translateAction(g.Action)
		if err != nil {
			return nil, err
		}
		out.Syscalls = append(out.Syscalls, specs.LinuxSyscall{
			Names:  g.Names,
			Action: act,
		})
	}
	return out, nil
}

func translateAction(a seccomp.Action) (specs.LinuxSeccompAction, error) {
	switch a {
	case seccomp.ActionAllow:
		return specs.ActAllow, nil
	case seccomp.ActionErrno:
		return specs.ActErrno, nil
	case seccomp.ActionTrap:
		return specs.ActTrap, nil
	case seccomp.ActionTrace:
		return specs.ActTrace, nil
	case seccomp.ActionLog:
		return specs.ActLog, nil
	case seccomp.ActionKillThread:
		return specs.ActKillThread, nil
	case seccomp.ActionKillProcess:
		return specs.ActKillProcess, nil
	default:
		return "", fmt.Errorf("seccomp: unsupported action %v", a)
	}
}
