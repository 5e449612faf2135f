// Package store provides the key-value abstraction used to hold rendered
// payloads between processing and output.
package store

import (
	"sort"
	"sync"
)

// Store is a string-keyed collection of values
type Store[V any] interface {
	// Get returns the value for key and whether it was present
	Get(key string) (V, bool)

	// Put stores value under key, replacing any previous value
	Put(key string, value V)

	// Delete removes key and reports whether it was present
	Delete(key string) bool

	// Keys returns every key in ascending order
	Keys() []string
}

// Memory is an in-process Store that lives as long as the value itself.
// It is safe for concurrent use.
type Memory[V any] struct {
	mu    sync.RWMutex
	items map[string]V
}

// NewMemory creates an empty in-memory store
func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{items: make(map[string]V)}
}

func (m *Memory[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.items[key]
	return v, ok
}

func (m *Memory[V]) Put(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = value
}

func (m *Memory[V]) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.items[key]
	delete(m.items, key)
	return ok
}

func (m *Memory[V]) Keys() []string {
	m.mu.RLock()
	keys := make([]string, 0, len(m.items))
	for k := range m.items {
		keys = append(keys, k)
	}
	m.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of stored values
func (m *Memory[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}
