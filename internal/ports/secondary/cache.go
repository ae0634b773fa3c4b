package secondary

import "context"

// Cache is a byte-oriented key/value cache with backend-defined expiry.
// It holds tenant configuration only; period locks are never cached.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key until the backend TTL expires.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
}
