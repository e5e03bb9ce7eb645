package container

import (
	"syscall"
	"testing"
)

// wait status encoding: exited -> code<<8, signaled -> signal number
func TestDecodeWaitStatus(t *testing.T) {
	cases := []struct {
		name string
		ws   syscall.WaitStatus
		want ExitState
	}{
		{"clean exit", syscall.WaitStatus(0), ExitState{}},
		{"exit 1", syscall.WaitStatus(1 << 8), ExitState{ExitCode: 1}},
		{"killed by sigsegv", syscall.WaitStatus(11), ExitState{Signal: 11, Signaled: true}},
		{"forwarded sigsegv", syscall.WaitStatus(139 << 8), ExitState{Signal: 11, Signaled: true}},
		{"forwarded sigkill", syscall.WaitStatus(137 << 8), ExitState{Signal: 9, Signaled: true}},
		{"exit 128", syscall.WaitStatus(128 << 8), ExitState{ExitCode: 128}},
	}
	for _, c := range cases {
		if got := decodeWaitStatus(c.ws); got != c.want {
			t.Errorf("%s: got %+v, want %+v", c.name, got, c.want)
		}
	}
}
