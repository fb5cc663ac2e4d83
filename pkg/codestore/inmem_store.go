package codestore

import (
	"context"
	"crypto/subtle"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// InMemStore implements Store using an in-memory map. Expired entries are
// dropped lazily on access.
type InMemStore struct {
	entries map[string]entry
	mu      sync.Mutex
	now     func() time.Time
}

// NewInMemStore creates a new in-memory code store
func NewInMemStore() *InMemStore {
	return &InMemStore{
		entries: make(map[string]entry),
		now:     time.Now,
	}
}

// NewInMemStoreWithClock creates an in-memory code store that reads time from now
func NewInMemStoreWithClock(now func() time.Time) *InMemStore {
	s := NewInMemStore()
	s.now = now
	return s
}

// lookup must be called with mu held
func (s *InMemStore) lookup(key string) (entry, bool) {
	e, ok := s.entries[key]
	if !ok {
		return entry{}, false
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return entry{}, false
	}
	return e, true
}

func (s *InMemStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *InMemStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.lookup(key); ok {
		return false, nil
	}
	s.entries[key] = entry{value: value, expiresAt: s.now().Add(ttl)}
	return true, nil
}

func (s *InMemStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return "", ErrNotFound
	}
	return e.value, nil
}

func (s *InMemStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

func (s *InMemStore) CompareAndDelete(ctx context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.lookup(key)
	if !ok {
		return false, nil
	}
	if subtle.ConstantTimeCompare([]byte(e.value), []byte(value)) != 1 {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}
