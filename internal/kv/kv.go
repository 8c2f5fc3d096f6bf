// Package kv is the shared key-value substrate behind the generation lock and
// the clarify context. Independent server instances coordinate only through
// this store, so the compare-and-swap must be atomic - a bare read-then-write
// would let two instances both observe an idle lock and both admit.
package kv

import "context"

// Store is a durable key-value store with an atomic compare-and-swap.
type Store interface {
	// Get returns the value for key, or nil when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set unconditionally writes the value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes the key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// CompareAndSwap writes value only if the stored value equals old.
	// A nil old matches an absent key. Returns whether the swap happened.
	CompareAndSwap(ctx context.Context, key string, old, value []byte) (bool, error)
}
