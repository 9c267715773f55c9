// Package cache keeps short-lived copies of expensive read results.
package cache

import (
	"context"
	"time"
)

// Store holds opaque values under string keys until their TTL expires
type Store interface {
	// Get returns the value and true, or false when the key is absent or expired
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}
