package container

import (
	"bytes"
	"sync"

	"github.com/codequay/judgecore/model"
)

// cappedBuffer captures a process stream up to a hard cap. The first
// write past the cap fires the overflow callback exactly once; further
// data is discarded so the draining copier never blocks the kill.
type cappedBuffer struct {
	mu         sync.Mutex
	buf        bytes.Buffer
	limit      int64
	overflowed bool

	once       sync.Once
	onOverflow func()
}

func newCappedBuffer(limit model.Size, onOverflow func()) *cappedBuffer {
	return &cappedBuffer{
		limit:      int64(limit),
		onOverflow: onOverflow,
	}
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	room := b.limit - int64(b.buf.Len())
	if room > 0 {
		n := int64(len(p))
		if n > room {
			n = room
		}
		b.buf.Write(p[:n])
	}
	if int64(len(p)) > room {
		b.overflowed = true
	}
	over := b.overflowed
	b.mu.Unlock()

	if over && b.onOverflow != nil {
		b.once.Do(b.onOverflow)
	}
	return len(p), nil
}

// Bytes returns the captured prefix of the stream
func (b *cappedBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, b.buf.Len())
	copy(out, b.buf.Bytes())
	return out
}

// Overflowed reports whether the stream hit the cap
func (b *cappedBuffer) Overflowed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.overflowed
}
