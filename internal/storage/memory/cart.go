// Package memory provides an in-process cart store for single-instance
// deployments and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/xenking/turfshop/internal/domain/cart"
)

var _ cart.Store = (*CartStore)(nil)

type entry struct {
	data    []byte
	expires time.Time
}

// CartStore keeps encoded snapshots in a map. Entries expire after ttl
// without a Load or Save; a zero ttl keeps them forever.
type CartStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// NewCartStore creates an empty CartStore.
func NewCartStore(ttl time.Duration) *CartStore {
	return &CartStore{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

// Load implements cart.Store. A hit extends the expiry.
func (s *CartStore) Load(_ context.Context, id string) (cart.Snapshot, error) {
	s.mu.Lock()
	e, ok := s.entries[id]
	switch {
	case ok && s.expired(e):
		delete(s.entries, id)
		ok = false
	case ok && s.ttl > 0:
		e.expires = s.now().Add(s.ttl)
		s.entries[id] = e
	}
	s.mu.Unlock()
	if !ok {
		return cart.Snapshot{}, cart.ErrNotFound
	}

	snap, err := cart.UnmarshalSnapshot(e.data)
	if err != nil {
		return cart.Snapshot{}, &cart.CorruptError{ID: id, Err: err}
	}
	return snap, nil
}

// Save implements cart.Store.
func (s *CartStore) Save(_ context.Context, snap cart.Snapshot) error {
	e := entry{data: cart.MarshalSnapshot(snap)}
	if s.ttl > 0 {
		e.expires = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.entries[snap.ID] = e
	s.mu.Unlock()
	return nil
}

// Delete implements cart.Store.
func (s *CartStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || s.expired(e) {
		delete(s.entries, id)
		return cart.ErrNotFound
	}
	delete(s.entries, id)
	return nil
}

// Sweep drops expired entries and returns how many were removed.
func (s *CartStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if s.expired(e) {
			delete(s.entries, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored entries, including expired ones not
// yet swept.
func (s *CartStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *CartStore) expired(e entry) bool {
	return !e.expires.IsZero() && !s.now().Before(e.expires)
}
