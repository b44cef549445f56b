// Package tiered implements a two-level (L1 + L2) kvslot adapter.
package tiered

import (
	"context"
	"log/slog"

	"github.com/Strob0t/AccessDesk/internal/port/kvslot"
)

// Store combines an L1 (in-process) and L2 (shared) slot store.
// Get checks L1 first, then L2 (backfilling L1 on L2 hit).
// Put and Delete write L2 first so L1 never holds a value L2 rejected.
type Store struct {
	l1 kvslot.Store
	l2 kvslot.Store
}

// New creates a tiered store with the given L1 and L2 backends.
func New(l1, l2 kvslot.Store) *Store {
	return &Store{l1: l1, l2: l2}
}

// Get checks L1, then L2. On L2 hit, backfills L1.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, found, err := s.l1.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if found {
		return val, true, nil
	}

	val, found, err = s.l2.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	if err := s.l1.Put(ctx, key, val); err != nil {
		slog.DebugContext(ctx, "l1 backfill failed", "key", key, "error", err)
	}
	return val, true, nil
}

// Put writes to L2, then L1.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.l2.Put(ctx, key, value); err != nil {
		return err
	}
	return s.l1.Put(ctx, key, value)
}

// Delete removes from L2, then L1.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.l2.Delete(ctx, key); err != nil {
		return err
	}
	return s.l1.Delete(ctx, key)
}
