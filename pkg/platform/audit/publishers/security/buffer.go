package security

import (
	"sync"

	audit "screener/pkg/platform/audit"
)

// ring is a fixed-size FIFO of pending security events. Pushing onto a full
// ring overwrites the oldest entry.
type ring struct {
	mu      sync.Mutex
	slots   []audit.SecurityEvent
	start   int
	size    int
	dropped int64
}

func newRing(capacity int) *ring {
	if capacity <= 0 {
		capacity = DefaultBufferSize
	}
	return &ring{slots: make([]audit.SecurityEvent, capacity)}
}

// push appends event and reports whether an older event was overwritten.
func (r *ring) push(event audit.SecurityEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.slots)
	if r.size == n {
		r.slots[r.start] = event
		r.start = (r.start + 1) % n
		r.dropped++
		return true
	}
	r.slots[(r.start+r.size)%n] = event
	r.size++
	return false
}

// take removes and returns up to max events, oldest first.
func (r *ring) take(max int) []audit.SecurityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.size == 0 {
		return nil
	}
	if max <= 0 || max > r.size {
		max = r.size
	}
	n := len(r.slots)
	out := make([]audit.SecurityEvent, max)
	for i := range out {
		out[i] = r.slots[r.start]
		r.slots[r.start] = audit.SecurityEvent{}
		r.start = (r.start + 1) % n
	}
	r.size -= max
	return out
}

func (r *ring) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

func (r *ring) droppedTotal() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}
