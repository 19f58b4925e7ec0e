package supervisor

import (
	"sync"
)

// Buffer accumulates a captured stream. Growth is unbounded; the optional
// threshold callback fires once when the buffer first exceeds warnAt bytes.
type Buffer struct {
	mu     sync.Mutex
	data   []byte
	warnAt int64
	warned bool
	onWarn func(size int64)
}

func newBuffer(warnAt int64, onWarn func(size int64)) *Buffer {
	return &Buffer{warnAt: warnAt, onWarn: onWarn}
}

// Write implements io.Writer. It never fails.
func (b *Buffer) Write(p []byte) (int, error) {
	if b == nil {
		return len(p), nil
	}
	b.mu.Lock()
	b.data = append(b.data, p...)
	size := int64(len(b.data))
	fire := b.warnAt > 0 && !b.warned && size > b.warnAt
	if fire {
		b.warned = true
	}
	b.mu.Unlock()

	if fire && b.onWarn != nil {
		b.onWarn(size)
	}
	return len(p), nil
}

// Bytes returns a copy of the bytes collected so far. A nil buffer yields nil.
func (b *Buffer) Bytes() []byte {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Len reports the number of bytes collected so far.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
