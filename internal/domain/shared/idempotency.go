package shared

import (
	"context"
	"time"
)

// IdempotencyStore records claimed operation keys so that a side effect
// (such as sending a document by email) is attempted by one caller at a time
// and never repeated once it succeeded.
type IdempotencyStore interface {
	// Claim marks key as taken for ttl. It returns false when another caller
	// already holds the key.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees a claimed key so a failed attempt can be retried.
	Release(ctx context.Context, key string) error

	// IsClaimed reports whether key is currently held.
	IsClaimed(ctx context.Context, key string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}
