// Package cache provides the keyed stores behind the unit registry and the
// translator handle cache.
package cache

import (
	"sort"
	"sync"
	"time"
)

// entry holds a stored value with the time it was set.
type entry[V any] struct {
	value     V
	timestamp time.Time
}

// Store is a thread-safe map from string keys to values. Values never expire;
// they stay until deleted, cleared or drained.
type Store[V any] struct {
	entries map[string]entry[V]
	mu      sync.RWMutex
}

// New creates an empty store.
func New[V any]() *Store[V] {
	return &Store[V]{entries: make(map[string]entry[V])}
}

// Get retrieves a value. Returns the zero value and false if the key is absent.
func (s *Store[V]) Get(key string) (V, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	return e.value, ok
}

// Set stores a value, replacing any previous value for key.
func (s *Store[V]) Set(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = entry[V]{value: value, timestamp: time.Now()}
}

// Delete removes key and returns the value it held.
func (s *Store[V]) Delete(key string) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	return e.value, ok
}

// DeleteIf removes key only when match accepts the stored value.
// It reports whether an entry was removed.
func (s *Store[V]) DeleteIf(key string, match func(V) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || !match(e.value) {
		return false
	}
	delete(s.entries, key)
	return true
}

// Age returns how long ago key was set.
func (s *Store[V]) Age(key string) (time.Duration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok {
		return 0, false
	}
	return time.Since(e.timestamp), true
}

// Len returns the number of entries.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Keys returns the stored keys in sorted order.
func (s *Store[V]) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.entries))
	for key := range s.entries {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Clear removes all entries.
func (s *Store[V]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]entry[V])
}

// Drain removes all entries and returns them.
func (s *Store[V]) Drain() map[string]V {
	s.mu.Lock()
	old := s.entries
	s.entries = make(map[string]entry[V])
	s.mu.Unlock()

	result := make(map[string]V, len(old))
	for key, e := range old {
		result[key] = e.value
	}
	return result
}
