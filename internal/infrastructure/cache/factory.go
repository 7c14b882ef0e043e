package cache

import (
	"context"
	"fmt"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// NewIdempotencyStore returns a Redis store when Redis is enabled and
// reachable. Otherwise it falls back to an in-memory store, unless fallback
// is disallowed.
func NewIdempotencyStore(ctx context.Context, cfg config.RedisConfig, allowFallback bool, logger *zap.Logger) (shared.IdempotencyStore, error) {
	if !cfg.Enabled {
		logger.Info("redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	store, err := NewRedisIdempotencyStore(ctx, RedisConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err == nil {
		logger.Info("using Redis idempotency store")
		return store, nil
	}
	if !allowFallback {
		return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
	}

	logger.Warn("redis unavailable, falling back to in-memory idempotency store",
		zap.Error(err),
	)
	return NewInMemoryIdempotencyStore(), nil
}
