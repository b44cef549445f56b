// Package natskv implements the kvslot port on a NATS JetStream KeyValue
// bucket, shared by every console instance connected to the same server.
package natskv

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Store wraps a NATS JetStream KeyValue bucket.
type Store struct {
	kv jetstream.KeyValue
}

// New creates a NATS KV-backed store.
func New(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Open creates or updates the bucket and returns a store on it. A ttl of 0
// keeps values until they are deleted.
func Open(ctx context.Context, js jetstream.JetStream, bucket string, ttl time.Duration) (*Store, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "AccessDesk slots",
		History:     1,
		TTL:         ttl,
	})
	if err != nil {
		return nil, fmt.Errorf("kv bucket %s: %w", bucket, err)
	}
	return New(kv), nil
}

// Get retrieves a value from the bucket.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := s.kv.Get(ctx, encodeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return entry.Value(), true, nil
}

// Put stores a value in the bucket. TTL is managed at bucket level.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	_, err := s.kv.Put(ctx, encodeKey(key), value)
	return err
}

// Delete removes a value from the bucket.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.kv.Delete(ctx, encodeKey(key))
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil
	}
	return err
}

// encodeKey maps characters NATS keys reject to '_'.
func encodeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.', r == '=', r == '/':
			return r
		default:
			return '_'
		}
	}, key)
}
