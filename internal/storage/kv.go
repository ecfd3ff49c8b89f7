package storage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates the backend was not initialised.
	ErrNotConfigured = errors.New("storage: backend not configured")
	// ErrUnavailable wraps every failure to reach the backing store.
	ErrUnavailable = errors.New("storage: store unavailable")
)

// KV is the string-keyed byte store every backend implements.
// Get reports absence with found=false and a nil error.
type KV interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) (int, error)
	Keys(ctx context.Context, prefix string) ([]string, error)
	Ping(ctx context.Context) error
	Close() error
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUnavailable, op, err)
}
