package cache

import (
	"sync"
	"time"
)

// Slot holds at most one value with an expiry. It is the unkeyed counterpart
// of Cache for values that only ever exist once per process.
type Slot[T any] struct {
	mutex   sync.Mutex
	data    T
	set     bool
	expires time.Time
	clock   Clock
}

// NewSlot returns an empty Slot. A nil clock means time.Now.
func NewSlot[T any](clock Clock) *Slot[T] {
	if clock == nil {
		clock = time.Now
	}
	return &Slot[T]{clock: clock}
}

// Get returns the held value if it has not expired. An expired value is
// cleared.
func (s *Slot[T]) Get() (T, bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	if !s.set {
		var zero T
		return zero, false
	}
	if !s.expires.After(s.clock()) {
		s.reset()
		var zero T
		return zero, false
	}
	return s.data, true
}

// Set replaces the held value, valid for ttl from now.
func (s *Slot[T]) Set(data T, ttl time.Duration) {
	s.mutex.Lock()
	s.data = data
	s.set = true
	s.expires = s.clock().Add(ttl)
	s.mutex.Unlock()
}

// Clear drops the held value.
func (s *Slot[T]) Clear() {
	s.mutex.Lock()
	s.reset()
	s.mutex.Unlock()
}

func (s *Slot[T]) reset() {
	var zero T
	s.data = zero
	s.set = false
	s.expires = time.Time{}
}
