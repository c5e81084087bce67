// Package session keeps mounted scratch cards in memory and unmounts the ones
// a client abandoned.
package session

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/parcelace-scratch/internal/model"
	"github.com/fairyhunter13/parcelace-scratch/internal/scratch"
)

// Entry is a mounted card plus what the service needs to serve it.
// Mu serializes all access to Card and Layer.
type Entry struct {
	Mu      sync.Mutex
	ID      string
	UserID  string
	OfferID string
	Card    *scratch.Card
	Layer   *scratch.OcclusionLayer

	Title              string
	Description        string
	DiscountPercentage string

	// Reveal is set by the card's reveal callback; Persisted once it is stored.
	Reveal    *model.RevealRecord
	Persisted bool

	touched time.Time
}

// ErrFull is returned by Put when the store already holds its maximum number of cards.
var ErrFull = errors.New("session store is full")

// UnmountHook runs with e.Mu held before an idle or shut-down card is closed.
// Returning false keeps an idle card mounted until the next sweep; on Stop
// the card is closed regardless.
type UnmountHook func(e *Entry) bool

// Option configures a Store.
type Option func(*Store)

// WithMaxCards caps the number of mounted cards. n <= 0 means no cap.
func WithMaxCards(n int) Option {
	return func(s *Store) { s.maxCards = n }
}

// Store maps card ids to entries and evicts idle ones.
//
// Lock order is Entry.Mu before the store's own mutex.
type Store struct {
	mu        sync.Mutex
	entries   map[string]*Entry
	ttl       time.Duration
	maxCards  int
	onUnmount UnmountHook
	now       func() time.Time

	stop    chan struct{}
	done    chan struct{}
	stopped sync.Once
}

// NewStore creates a store. A janitor sweeps idle entries every interval
// until Stop is called; interval <= 0 disables it.
func NewStore(ttl, interval time.Duration, opts ...Option) *Store {
	s := &Store{
		entries: make(map[string]*Entry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if interval > 0 {
		go s.janitor(interval)
	} else {
		close(s.done)
	}
	return s
}

// SetUnmountHook installs fn, replacing any previous hook.
func (s *Store) SetUnmountHook(fn UnmountHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onUnmount = fn
}

func (s *Store) janitor(interval time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				log.Debug().Int("evicted", n).Msg("evicted idle scratch cards")
			}
		}
	}
}

// Put registers an entry. Returns ErrFull when the cap is reached.
func (s *Store) Put(e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entries[e.ID]; !exists && s.maxCards > 0 && len(s.entries) >= s.maxCards {
		return ErrFull
	}
	e.touched = s.now()
	s.entries[e.ID] = e
	return nil
}

// Get returns the entry and refreshes its idle timer.
func (s *Store) Get(id string) (*Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if ok {
		e.touched = s.now()
	}
	return e, ok
}

// Remove runs the unmount hook, then unmounts and forgets the entry.
func (s *Store) Remove(id string) (*Entry, bool) {
	s.mu.Lock()
	e, ok := s.entries[id]
	hook := s.onUnmount
	s.mu.Unlock()
	if !ok {
		return nil, false
	}

	e.Mu.Lock()
	defer e.Mu.Unlock()
	if hook != nil {
		hook(e)
	}
	return e, s.UnmountLocked(e)
}

// UnmountLocked forgets e and closes its card without running the hook.
// The caller holds e.Mu. It reports false if e was no longer mounted.
func (s *Store) UnmountLocked(e *Entry) bool {
	s.mu.Lock()
	mounted := s.entries[e.ID] == e
	if mounted {
		delete(s.entries, e.ID)
	}
	s.mu.Unlock()

	if e.Card != nil {
		e.Card.Close()
	}
	return mounted
}

// Len returns the number of mounted cards.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep unmounts entries idle for longer than the TTL and returns how many.
// Entries the hook declines stay mounted.
func (s *Store) Sweep() int {
	cutoff := s.now().Add(-s.ttl)

	s.mu.Lock()
	var idle []*Entry
	for _, e := range s.entries {
		if e.touched.Before(cutoff) {
			idle = append(idle, e)
		}
	}
	hook := s.onUnmount
	s.mu.Unlock()

	n := 0
	for _, e := range idle {
		if s.evict(e, cutoff, hook) {
			n++
		}
	}
	return n
}

func (s *Store) evict(e *Entry, cutoff time.Time, hook UnmountHook) bool {
	e.Mu.Lock()
	defer e.Mu.Unlock()

	s.mu.Lock()
	still := s.entries[e.ID] == e && e.touched.Before(cutoff)
	s.mu.Unlock()
	if !still {
		return false
	}
	if hook != nil && !hook(e) {
		return false
	}
	return s.UnmountLocked(e)
}

// Stop terminates the janitor and unmounts every card.
func (s *Store) Stop() {
	s.stopped.Do(func() {
		close(s.stop)
		<-s.done

		s.mu.Lock()
		entries := make([]*Entry, 0, len(s.entries))
		for _, e := range s.entries {
			entries = append(entries, e)
		}
		hook := s.onUnmount
		s.mu.Unlock()

		for _, e := range entries {
			e.Mu.Lock()
			if hook != nil && !hook(e) {
				log.Error().Str("card_id", e.ID).Msg("unmounting card with an unrecorded reveal")
			}
			s.UnmountLocked(e)
			e.Mu.Unlock()
		}
	})
}
