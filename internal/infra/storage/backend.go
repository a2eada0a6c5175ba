package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no object exists under a key.
var ErrNotFound = errors.New("object not found")

// Backend is a flat key/value object store. Keys use forward slashes.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
	// List returns every key beginning with prefix, sorted.
	List(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
}
