package repository

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when a key or record is absent.
	ErrNotFound = errors.New("not found")
	// ErrCorrupt is returned when persisted data cannot be decoded.
	ErrCorrupt = errors.New("corrupt data")
)

// KeyValueStore is the string-valued storage the auth store persists into.
type KeyValueStore interface {
	Init(ctx context.Context) error
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
}
