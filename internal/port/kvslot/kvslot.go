// Package kvslot defines the port for named byte slots: small documents
// read and replaced as a whole, like the audit history array.
package kvslot

import "context"

// Store holds byte values under string keys. A missing key is not an error.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
