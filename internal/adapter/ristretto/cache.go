// Package ristretto implements the kvslot port on dgraph-io/ristretto. It
// serves as the in-process L1 of the tiered store and as a bounded
// ephemeral slot store on its own.
package ristretto

import (
	"bytes"
	"context"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// Store wraps a ristretto cache.
type Store struct {
	c   *ristretto.Cache[string, []byte]
	ttl time.Duration
}

// New creates a ristretto-backed store. maxCostBytes is the maximum total
// size of stored values in bytes; ttl of 0 keeps entries until evicted.
func New(maxCostBytes int64, ttl time.Duration) (*Store, error) {
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c, ttl: ttl}, nil
}

// Get retrieves a value.
func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	val, found := s.c.Get(key)
	if !found {
		return nil, false, nil
	}
	return bytes.Clone(val), true, nil
}

// Put stores a value and waits until it is visible to Get. Ristretto may
// still refuse or evict values under cost pressure.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	v := bytes.Clone(value)
	s.c.SetWithTTL(key, v, int64(len(v))+1, s.ttl)
	s.c.Wait()
	return nil
}

// Delete removes a value.
func (s *Store) Delete(_ context.Context, key string) error {
	s.c.Del(key)
	return nil
}

// Close shuts down the cache and releases resources.
func (s *Store) Close() {
	s.c.Close()
}
