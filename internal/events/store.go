package events

import (
	"context"
	"sync"
)

// MemoryStore keeps the most recent events in a bounded in-memory log. It
// backs the bus in place of durable storage; the settlement workflow only
// needs a short audit window for the admin log endpoint.
type MemoryStore struct {
	mu     sync.Mutex
	max    int
	events []Event
}

// NewMemoryStore constructs a store retaining at most max events.
func NewMemoryStore(max int) *MemoryStore {
	if max <= 0 {
		max = 256
	}
	return &MemoryStore{max: max}
}

// Append records the event, evicting the oldest entry when full.
func (s *MemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	if len(s.events) > s.max {
		s.events = s.events[len(s.events)-s.max:]
	}
	return nil
}

// Recent returns up to n most recent events, newest first.
func (s *MemoryStore) Recent(n int) []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n <= 0 || n > len(s.events) {
		n = len(s.events)
	}
	out := make([]Event, 0, n)
	for i := len(s.events) - 1; i >= len(s.events)-n; i-- {
		out = append(out, s.events[i])
	}
	return out
}
