package localterm

import "sync"

// Buffer is a bounded output buffer. When the cap is exceeded the oldest
// bytes are discarded so a chatty pane cannot grow without limit.
type Buffer struct {
	mu   sync.Mutex
	data []byte
	max  int
}

// NewBuffer creates a buffer retaining at most max bytes.
func NewBuffer(max int) *Buffer {
	return &Buffer{max: max}
}

// Write appends p, evicting the oldest bytes if the cap is exceeded.
func (b *Buffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, p...)
	if len(b.data) > b.max {
		excess := len(b.data) - b.max
		b.data = b.data[excess:]
	}
	return len(p), nil
}

// Snapshot returns a copy of the current contents.
func (b *Buffer) Snapshot() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]byte, len(b.data))
	copy(out, b.data)
	return out
}

// Len returns the current content length.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}
