// Package memslot implements the kvslot port in process memory. Contents
// are lost on restart.
package memslot

import (
	"bytes"
	"context"
	"sync"
)

// Store is a mutex-guarded map of slots.
type Store struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// New creates an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}

// Get returns a copy of the slot value.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(v), true, nil
}

// Put replaces the slot value.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	s.data[key] = bytes.Clone(value)
	s.mu.Unlock()
	return nil
}

// Delete removes the slot.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}
