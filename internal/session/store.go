package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

// ErrNotFound is returned for unknown or expired session IDs.
var ErrNotFound = errors.New("session not found")

// ErrBusy is returned by Lock while another action holds the session.
var ErrBusy = errors.New("session busy")

// Store keeps sessions in memory with sliding expiry. Each live session has
// at most one action lock; the lock goes away with the session.
type Store struct {
	items *gocache.Cache
	ttl   time.Duration
	locks sync.Map // session ID -> *sync.Mutex
}

// NewStore creates a session store. Sessions idle for longer than ttl are
// dropped by a janitor running every cleanupInterval.
func NewStore(ttl, cleanupInterval time.Duration) *Store {
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if cleanupInterval <= 0 {
		cleanupInterval = 10 * time.Minute
	}
	s := &Store{
		items: gocache.New(ttl, cleanupInterval),
		ttl:   ttl,
	}
	// Fires on Delete and on janitor expiry, not on Set.
	s.items.OnEvicted(func(id string, _ interface{}) {
		s.locks.Delete(id)
	})
	return s
}

// Create starts a new session with default state.
func (s *Store) Create() *Session {
	sess := New(uuid.NewString())
	s.items.Set(sess.ID, sess.Clone(), s.ttl)
	return sess
}

// Get returns a copy of the session. Reading refreshes its expiry.
func (s *Store) Get(id string) (*Session, error) {
	v, ok := s.items.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	sess := v.(*Session)
	s.items.Set(id, sess, s.ttl)
	return sess.Clone(), nil
}

// Save stores a copy of a live session. A session deleted or expired in
// the meantime is not brought back.
func (s *Store) Save(sess *Session) error {
	if err := s.items.Replace(sess.ID, sess.Clone(), s.ttl); err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, sess.ID)
	}
	return nil
}

// Lock claims the action lock of a live session. It fails with ErrNotFound
// for unknown or expired IDs and with ErrBusy when the lock is held.
func (s *Store) Lock(id string) (unlock func(), err error) {
	if _, ok := s.items.Get(id); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	v, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	if !mu.TryLock() {
		return nil, ErrBusy
	}
	return mu.Unlock, nil
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.items.Delete(id)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	return s.items.ItemCount()
}
