package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which events a consumer has already handled
type IdempotencyStore interface {
	// MarkProcessed claims key for ttl. It returns false when the key was
	// already claimed and has not expired.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)

	IsProcessed(ctx context.Context, key string) (bool, error)

	// Release forgets a claim so that a failed event can be handled again
	Release(ctx context.Context, key string) error

	Close() error
}

// IdempotencyConfig holds configuration for idempotent event handling
type IdempotencyConfig struct {
	// TTL is how long a processed event is remembered. Default: 24 hours
	TTL     time.Duration
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
