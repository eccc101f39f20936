// Package store provides the key-value stores datasets are persisted in.
//
// Keys are slash-separated paths. Every Put is atomic: a concurrent or later
// Get observes either the previous value or the complete new one.
package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a key that holds no value.
var ErrNotFound = errors.New("key not found")

// Store is a flat namespace of byte values addressed by slash-separated keys.
type Store interface {
	// Get returns the value stored at key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put atomically replaces the value stored at key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Exists reports whether key holds a value.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns every key starting with prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// Close releases the store.
	Close() error
}
