package transport

import (
	"sync"

	"github.com/google/uuid"
)

// subscriptionSet is a refcounted set of room ids subscribed on one
// server connection. sub increments, unsub decrements and removes at
// zero; the set is also the source of truth replayed after a reconnect.
type subscriptionSet struct {
	mu    sync.Mutex
	count map[uuid.UUID]int
}

func newSubscriptionSet() *subscriptionSet {
	return &subscriptionSet{count: make(map[uuid.UUID]int)}
}

// add increments roomID's refcount and reports whether this was the first
// reference (i.e. a Sub control packet should actually be sent).
func (s *subscriptionSet) add(roomID uuid.UUID) (first bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count[roomID]++
	return s.count[roomID] == 1
}

// remove decrements roomID's refcount and reports whether it reached zero
// (i.e. an Unsub control packet should actually be sent).
func (s *subscriptionSet) remove(roomID uuid.UUID) (removed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.count[roomID]
	if !ok {
		return false
	}
	n--
	if n <= 0 {
		delete(s.count, roomID)
		return true
	}
	s.count[roomID] = n
	return false
}

// rooms returns a snapshot of every currently-subscribed room id, used to
// replay subscriptions after a reconnect.
func (s *subscriptionSet) rooms() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]uuid.UUID, 0, len(s.count))
	for id := range s.count {
		out = append(out, id)
	}
	return out
}

func (s *subscriptionSet) has(roomID uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.count[roomID]
	return ok
}
