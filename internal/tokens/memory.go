package tokens

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps tokens in process memory; they do not survive a restart.
// A zero TTL disables expiry and a zero capacity disables the size bound. When
// full, the oldest token is evicted to make room.
type MemoryStore struct {
	ttl      time.Duration
	capacity int
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // oldest first
}

type memEntry struct {
	id        string
	score     int
	expiresAt time.Time
}

func NewMemoryStore(ttl time.Duration, capacity int) *MemoryStore {
	return &MemoryStore{
		ttl:      ttl,
		capacity: capacity,
		now:      time.Now,
		entries:  make(map[string]*list.Element),
		order:    list.New(),
	}
}

func (s *MemoryStore) Issue(_ context.Context, score int) (string, error) {
	id := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.evictExpiredLocked()
	if s.capacity > 0 {
		for s.order.Len() >= s.capacity {
			s.removeLocked(s.order.Front())
		}
	}

	e := &memEntry{id: id, score: score}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.entries[id] = s.order.PushBack(e)
	return id, nil
}

func (s *MemoryStore) Redeem(_ context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[id]
	if !ok {
		return 0, ErrTokenNotFound
	}
	s.removeLocked(el)

	e := el.Value.(*memEntry)
	if s.expired(e) {
		return 0, ErrTokenNotFound
	}
	return e.score, nil
}

func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *MemoryStore) expired(e *memEntry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

// evictExpiredLocked relies on entries being ordered by issue time, which with
// a fixed TTL is also expiry order.
func (s *MemoryStore) evictExpiredLocked() {
	if s.ttl <= 0 {
		return
	}
	for el := s.order.Front(); el != nil; el = s.order.Front() {
		if !s.expired(el.Value.(*memEntry)) {
			return
		}
		s.removeLocked(el)
	}
}

func (s *MemoryStore) removeLocked(el *list.Element) {
	e := el.Value.(*memEntry)
	delete(s.entries, e.id)
	s.order.Remove(el)
}
