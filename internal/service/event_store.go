package service

import (
	"sort"
	"sync"
	"time"

	"github.com/errwatch/errwatch-backend/internal/domain"
)

// EventStore holds captured error events in memory, ordered by timestamp.
// It is append-mostly; the retention sweeper is the only deleter.
type EventStore struct {
	mu     sync.RWMutex
	byID   map[string]*domain.ErrorEvent
	sorted []*domain.ErrorEvent // ascending by Timestamp
}

// NewEventStore creates an empty event store
func NewEventStore() *EventStore {
	return &EventStore{
		byID: make(map[string]*domain.ErrorEvent),
	}
}

// Add inserts an event. Events normally arrive in timestamp order; a
// slightly out-of-order event is inserted at its sorted position.
func (s *EventStore) Add(event *domain.ErrorEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byID[event.ID] = event

	n := len(s.sorted)
	if n == 0 || !event.Timestamp.Before(s.sorted[n-1].Timestamp) {
		s.sorted = append(s.sorted, event)
		return
	}
	idx := sort.Search(n, func(i int) bool {
		return s.sorted[i].Timestamp.After(event.Timestamp)
	})
	s.sorted = append(s.sorted, nil)
	copy(s.sorted[idx+1:], s.sorted[idx:])
	s.sorted[idx] = event
}

// Get returns the event with the given ID
func (s *EventStore) Get(id string) (*domain.ErrorEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.byID[id]
	return ev, ok
}

// Since returns events with Timestamp >= start, oldest first
func (s *EventStore) Since(start time.Time) []*domain.ErrorEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := sort.Search(len(s.sorted), func(i int) bool {
		return !s.sorted[i].Timestamp.Before(start)
	})
	out := make([]*domain.ErrorEvent, len(s.sorted)-idx)
	copy(out, s.sorted[idx:])
	return out
}

// Around returns events within ±window of center, excluding excludeID
func (s *EventStore) Around(center time.Time, window time.Duration, excludeID string) []*domain.ErrorEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := center.Add(-window)
	end := center.Add(window)

	idx := sort.Search(len(s.sorted), func(i int) bool {
		return !s.sorted[i].Timestamp.Before(start)
	})
	var out []*domain.ErrorEvent
	for ; idx < len(s.sorted); idx++ {
		ev := s.sorted[idx]
		if ev.Timestamp.After(end) {
			break
		}
		if ev.ID == excludeID {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// PruneOlderThan removes events with Timestamp < cutoff and reports how many
func (s *EventStore) PruneOlderThan(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := sort.Search(len(s.sorted), func(i int) bool {
		return !s.sorted[i].Timestamp.Before(cutoff)
	})
	if idx == 0 {
		return 0
	}
	for _, ev := range s.sorted[:idx] {
		delete(s.byID, ev.ID)
	}
	s.sorted = append([]*domain.ErrorEvent(nil), s.sorted[idx:]...)
	return idx
}

// Len returns the number of stored events
func (s *EventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sorted)
}
