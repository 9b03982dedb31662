// Package cache provides a small TTL cache behind a common interface, with
// an in-process default and an optional Redis backend for shared
// deployments.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or expired.
var ErrMiss = errors.New("cache: miss")

// Service is the cache contract. Implementations marshal values to JSON.
type Service interface {
	// Get retrieves a value and unmarshals it into dest.
	Get(ctx context.Context, key string, dest any) error

	// Set stores a value with a TTL.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error
}
