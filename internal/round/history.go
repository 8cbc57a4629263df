package round

import "sync"

// History is a bounded FIFO of recent outcomes. The newest entry is the
// outcome every settlement resolves against.
type History struct {
	mu    sync.RWMutex
	buf   []Outcome
	start int
	size  int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 1
	}
	return &History{buf: make([]Outcome, capacity)}
}

// Append adds o as the newest entry, evicting the oldest when full.
func (h *History) Append(o Outcome) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.appendLocked(o)
}

func (h *History) appendLocked(o Outcome) {
	capacity := len(h.buf)
	if h.size < capacity {
		h.buf[(h.start+h.size)%capacity] = o
		h.size++
		return
	}
	h.buf[h.start] = o
	h.start = (h.start + 1) % capacity
}

// AppendIfEmpty appends outcomes only when the buffer holds nothing yet and
// reports whether it did.
func (h *History) AppendIfEmpty(outcomes []Outcome) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.size > 0 {
		return false
	}
	for _, o := range outcomes {
		h.appendLocked(o)
	}
	return true
}

func (h *History) Latest() (Outcome, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.size == 0 {
		return Outcome{}, false
	}
	return h.buf[(h.start+h.size-1)%len(h.buf)], true
}

// Snapshot returns the entries oldest first.
func (h *History) Snapshot() []Outcome {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Outcome, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.start+i)%len(h.buf)]
	}
	return out
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *History) Cap() int {
	return len(h.buf)
}
