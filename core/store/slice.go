// Package store holds the building blocks of the role domain stores.
//
// Every store field is a Slice: a value that is only ever replaced wholesale.
// Fetches take a Ticket before calling the API and Commit the response with it;
// a response whose ticket was superseded by a later Begin or Set is dropped, so a
// slow request can never overwrite newer data.
package store

import "sync"

// Ticket identifies one in-flight write to a Slice.
type Ticket uint64

type Slice[T any] struct {
	mu      sync.RWMutex
	val     T
	zero    func() T
	gen     uint64
	loading bool

	// fetches in flight, counted per Reset epoch
	inflight int
	epoch    uint64
}

// NewSlice returns a Slice whose initial (and cleared) value is zero().
// zero is called on every Reset, so collections never share backing arrays.
func NewSlice[T any](zero func() T) *Slice[T] {
	s := &Slice[T]{zero: zero}
	s.val = s.initial()
	return s
}

func (s *Slice[T]) initial() T {
	if s.zero == nil {
		var v T
		return v
	}
	return s.zero()
}

func (s *Slice[T]) Get() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.val
}

// Set replaces the value and supersedes every outstanding ticket.
func (s *Slice[T]) Set(v T) {
	s.mu.Lock()
	s.gen++
	s.val = v
	s.mu.Unlock()
}

// Update replaces the value with fn(current) atomically.
func (s *Slice[T]) Update(fn func(T) T) {
	s.mu.Lock()
	s.gen++
	s.val = fn(s.val)
	s.mu.Unlock()
}

// Begin issues a ticket for a new fetch; it supersedes every earlier ticket.
func (s *Slice[T]) Begin() Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	return Ticket(s.gen)
}

// Commit stores v if t is still the latest ticket and reports whether it did.
func (s *Slice[T]) Commit(t Ticket, v T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if uint64(t) != s.gen {
		return false
	}
	s.val = v
	return true
}

// Current reports whether t is still the latest ticket.
func (s *Slice[T]) Current(t Ticket) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(t) == s.gen
}

// Loading reports whether the flag is raised or a fetch is in flight.
func (s *Slice[T]) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading || s.inflight > 0
}

func (s *Slice[T]) SetLoading(loading bool) {
	s.mu.Lock()
	s.loading = loading
	s.mu.Unlock()
}

// track counts a fetch in flight until the returned func is called.
// Fetches started before a Reset no longer count once it has run.
func (s *Slice[T]) track() (done func()) {
	s.mu.Lock()
	s.inflight++
	epoch := s.epoch
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		if s.epoch == epoch && s.inflight > 0 {
			s.inflight--
		}
		s.mu.Unlock()
	}
}

// Reset restores the initial value, clears the loading flag and drops outstanding tickets.
func (s *Slice[T]) Reset() {
	s.mu.Lock()
	s.gen++
	s.epoch++
	s.val = s.initial()
	s.loading = false
	s.inflight = 0
	s.mu.Unlock()
}
