package sink

import (
	"sync"

	"ofi-stream-go/market"
)

const (
	DefaultRingSize = 200
	MinRingSize     = 50
	MaxRingSize     = 1000
)

// Ring keeps the most recent events for chart and web feeders.
// Oldest entries are evicted once the capacity is reached.
type Ring struct {
	mu   sync.RWMutex
	buf  []market.SignalEvent
	size int
}

func NewRing(size int) *Ring {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &Ring{size: size, buf: make([]market.SignalEvent, 0, size)}
}

// ClampRingSize bounds a user-supplied size to [MinRingSize, MaxRingSize].
func ClampRingSize(n int) int {
	if n < MinRingSize {
		return MinRingSize
	}
	if n > MaxRingSize {
		return MaxRingSize
	}
	return n
}

func (r *Ring) Name() string { return "ring" }

func (r *Ring) Consume(ev market.SignalEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buf = append(r.buf, ev)
	if over := len(r.buf) - r.size; over > 0 {
		r.buf = append(r.buf[:0], r.buf[over:]...)
	}
	return nil
}

// Snapshot returns a copy, oldest first.
func (r *Ring) Snapshot() []market.SignalEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]market.SignalEvent, len(r.buf))
	copy(out, r.buf)
	return out
}

// Last returns at most n of the newest events, oldest first.
func (r *Ring) Last(n int) []market.SignalEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || n > len(r.buf) {
		n = len(r.buf)
	}
	out := make([]market.SignalEvent, n)
	copy(out, r.buf[len(r.buf)-n:])
	return out
}

// Resize changes the capacity, dropping the oldest entries if it shrinks.
func (r *Ring) Resize(size int) {
	if size <= 0 {
		size = DefaultRingSize
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.size = size
	if over := len(r.buf) - size; over > 0 {
		r.buf = append(r.buf[:0], r.buf[over:]...)
	}
}

func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buf)
}

func (r *Ring) Cap() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

func (r *Ring) Close() error { return nil }
