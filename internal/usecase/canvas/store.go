// Package canvas holds the authoritative canvas state and its mutation catalog.
package canvas

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"canvasd/internal/domain"
)

// Subscriber receives the committed snapshot after every state transition.
type Subscriber func(state domain.CanvasState)

type subEntry struct {
	id uint64
	fn Subscriber
}

// Store holds one CanvasState snapshot. The only mutation entry point is
// Update: a pure function over the previous snapshot, swapped in atomically.
// Reads always observe the latest committed snapshot; there is no
// partial-write visibility.
type Store struct {
	mu      sync.RWMutex
	state   domain.CanvasState
	subs    []subEntry
	nextSub uint64
	bus     domain.EventBus // nil allowed
}

// NewStore creates a store seeded with the given state. The bus, when
// non-nil, receives a canvas.state.changed event per committed transition.
func NewStore(initial domain.CanvasState, bus domain.EventBus) *Store {
	return &Store{state: initial.Clone(), bus: bus}
}

// State returns a copy of the latest committed snapshot.
func (s *Store) State() domain.CanvasState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// Update applies fn to the current snapshot and commits the result.
// Subscribers are notified in registration order with the committed value.
// Mutations are serialized by the store's lock, so transitions observe
// last-writer-wins ordering consistent with call order.
func (s *Store) Update(fn func(domain.CanvasState) domain.CanvasState) domain.CanvasState {
	s.mu.Lock()
	next := fn(s.state.Clone())
	s.state = next
	committed := next.Clone()
	subs := make([]subEntry, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(committed.Clone())
	}

	if s.bus != nil {
		payload, err := json.Marshal(committed.Project())
		if err == nil {
			s.bus.Publish(context.Background(), domain.Event{
				Type:      domain.EventStateChanged,
				Timestamp: time.Now(),
				Payload:   payload,
			})
		}
	}
	return committed
}

// Subscribe registers a snapshot subscriber. Returns an unsubscribe function.
func (s *Store) Subscribe(fn Subscriber) func() {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs = append(s.subs, subEntry{id: id, fn: fn})
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)
				return
			}
		}
	}
}
