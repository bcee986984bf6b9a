package memory

import (
	"context"
	"sync"

	audit "screener/pkg/platform/audit"
)

// DefaultCapacity bounds the store when no capacity is given.
const DefaultCapacity = 10000

// InMemoryStore keeps the most recent audit events in process. Used when no
// audit database is configured and in tests. Once full, each append evicts
// the oldest event.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []audit.Event
	start  int
	size   int
}

// Option configures an InMemoryStore.
type Option func(*InMemoryStore)

// WithCapacity sets how many events are retained.
func WithCapacity(n int) Option {
	return func(s *InMemoryStore) {
		if n > 0 {
			s.events = make([]audit.Event, n)
		}
	}
}

func NewInMemoryStore(opts ...Option) *InMemoryStore {
	s := &InMemoryStore{events: make([]audit.Event, DefaultCapacity)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *InMemoryStore) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.events)
	if s.size == n {
		s.events[s.start] = event
		s.start = (s.start + 1) % n
		return nil
	}
	s.events[(s.start+s.size)%n] = event
	s.size++
	return nil
}

// ListAll returns the retained events in insertion order.
func (s *InMemoryStore) ListAll(_ context.Context) ([]audit.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]audit.Event, s.size)
	for i := range out {
		out[i] = s.events[(s.start+i)%len(s.events)]
	}
	return out, nil
}
