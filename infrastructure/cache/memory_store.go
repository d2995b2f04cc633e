// Package cache provides ports.CacheStore implementations.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/ahrav/go-ahp/internal/ports"
)

var _ ports.CacheStore = (*MemoryStore)(nil)

// entry carries the per-key deadline requested through Set. The LRU
// enforces the store-wide TTL on top of it.
type entry struct {
	value     any
	expiresAt time.Time // zero means no per-entry expiry
}

func (e entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

// MemoryStore is a process-local CacheStore backed by a size-bounded,
// expiring LRU. When full, Set evicts the least recently used entry.
// Per-entry expirations passed to Set are honored lazily on access and by
// Sweep. It is safe for concurrent use.
type MemoryStore struct {
	lru *expirable.LRU[string, entry]
	now func() time.Time

	maxEntries int
	ttl        time.Duration
}

// Option configures a MemoryStore.
type Option func(*MemoryStore)

// WithClock replaces time.Now for per-entry expiry, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) { s.now = now }
}

// WithMaxEntries bounds the store; zero means unbounded.
func WithMaxEntries(n int) Option {
	return func(s *MemoryStore) { s.maxEntries = n }
}

// WithTTL caps every entry's lifetime regardless of the expiration passed
// to Set. Zero means entries live until evicted or their own deadline.
func WithTTL(ttl time.Duration) Option {
	return func(s *MemoryStore) { s.ttl = ttl }
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.maxEntries < 0 {
		s.maxEntries = 0
	}
	s.lru = expirable.NewLRU[string, entry](s.maxEntries, nil, s.ttl)
	return s
}

// Get returns the value for key if present and not expired.
func (s *MemoryStore) Get(ctx context.Context, key string) (any, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, ports.NewCacheError(key, "Get", err)
	}
	e, ok := s.lru.Get(key)
	if !ok {
		return nil, false, nil
	}
	if e.expired(s.now()) {
		s.removeIfExpired(key)
		return nil, false, nil
	}
	return e.value, true, nil
}

// Set stores value under key. A zero or negative expiration leaves only
// the store-wide TTL in force.
func (s *MemoryStore) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	if err := ctx.Err(); err != nil {
		return ports.NewCacheError(key, "Set", err)
	}
	e := entry{value: value}
	if expiration > 0 {
		e.expiresAt = s.now().Add(expiration)
	}
	s.lru.Add(key, e)
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return ports.NewCacheError(key, "Delete", err)
	}
	s.lru.Remove(key)
	return nil
}

// Clear removes every entry.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return ports.NewCacheError("*", "Clear", err)
	}
	s.lru.Purge()
	return nil
}

// Len reports the number of stored entries, including entries whose
// per-entry deadline has passed but that were not accessed since.
func (s *MemoryStore) Len() int { return s.lru.Len() }

// Sweep drops every entry past its per-entry deadline and returns how
// many were removed.
func (s *MemoryStore) Sweep() int {
	removed := 0
	for _, key := range s.lru.Keys() {
		if s.removeIfExpired(key) {
			removed++
		}
	}
	return removed
}

// removeIfExpired peeks so that checking expiry does not refresh recency.
func (s *MemoryStore) removeIfExpired(key string) bool {
	e, ok := s.lru.Peek(key)
	if !ok || !e.expired(s.now()) {
		return false
	}
	return s.lru.Remove(key)
}
