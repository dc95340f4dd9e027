package cog

import (
	"fmt"
	"maps"
	"sync"
)

// Store is the shared key-value context passed by reference through an entire
// flow run. Every node may read and write any key; mutations are visible to
// all subsequent nodes in the same run. The engine assumes nothing about the
// backing storage beyond these operations.
type Store interface {
	// Get retrieves a value by key.
	Get(key string) (value any, exists bool)

	// Set stores a value with the given key.
	Set(key string, value any)

	// Delete removes a key from the store.
	Delete(key string)

	// Update merges the given mapping into the store.
	Update(values map[string]any)

	// Has reports whether a key is present.
	Has(key string) bool

	// Snapshot returns an independent copy of the current mapping.
	Snapshot() map[string]any

	// Len returns the number of stored keys.
	Len() int
}

// store is the in-memory implementation with a mutex. Flow execution is
// strictly sequential, but the lock keeps inspection from other goroutines
// safe.
type store struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewStore creates an empty in-memory store.
func NewStore() Store {
	return &store{data: make(map[string]any)}
}

// NewStoreFrom creates a store seeded with a copy of the given mapping.
func NewStoreFrom(values map[string]any) Store {
	s := &store{data: make(map[string]any, len(values))}
	maps.Copy(s.data, values)
	return s
}

func (s *store) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *store) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
}

func (s *store) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *store) Update(values map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	maps.Copy(s.data, values)
}

func (s *store) Has(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[key]
	return ok
}

func (s *store) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

func (s *store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// GetOr returns the value for key asserted to T, or fallback when the key is
// missing or holds a different type.
func GetOr[T any](s Store, key string, fallback T) T {
	v, ok := s.Get(key)
	if !ok {
		return fallback
	}
	t, ok := v.(T)
	if !ok {
		return fallback
	}
	return t
}

// TypedStore provides type-safe storage operations over a Store.
type TypedStore[T any] interface {
	Get(key string) (T, bool, error)
	Set(key string, value T)
	Delete(key string)
}

// NewTypedStore creates a type-safe wrapper around a Store.
func NewTypedStore[T any](s Store) TypedStore[T] {
	return &typedStore[T]{store: s}
}

type typedStore[T any] struct {
	store Store
}

func (t *typedStore[T]) Get(key string) (T, bool, error) {
	var zero T
	v, ok := t.store.Get(key)
	if !ok {
		return zero, false, nil
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false, fmt.Errorf("type mismatch: expected %T, got %T", zero, v)
	}
	return typed, true, nil
}

func (t *typedStore[T]) Set(key string, value T) {
	t.store.Set(key, value)
}

func (t *typedStore[T]) Delete(key string) {
	t.store.Delete(key)
}
