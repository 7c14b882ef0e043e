package event

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/coopmarket/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// IdempotencyMetrics counts what the idempotent wrappers saw
type IdempotencyMetrics struct {
	EventsProcessed atomic.Int64
	EventsDuplicate atomic.Int64
	EventsFailed    atomic.Int64
}

// Stats returns a snapshot of the counters
func (m *IdempotencyMetrics) Stats() IdempotencyStats {
	return IdempotencyStats{
		EventsProcessed: m.EventsProcessed.Load(),
		EventsDuplicate: m.EventsDuplicate.Load(),
		EventsFailed:    m.EventsFailed.Load(),
	}
}

// IdempotencyStats is a snapshot of idempotency metrics
type IdempotencyStats struct {
	EventsProcessed int64 `json:"events_processed"`
	EventsDuplicate int64 `json:"events_duplicate"`
	EventsFailed    int64 `json:"events_failed"`
}

// IdempotentHandler makes a handler see each event at most once. The outbox
// relay delivers at least once, so a redelivered event is skipped here.
//
// Claims are keyed by handler name and event id, so two handlers receiving the
// same event do not shadow each other. A failed handler releases its claim and
// the next delivery runs it again.
type IdempotentHandler struct {
	name    string
	handler shared.EventHandler
	store   shared.IdempotencyStore
	config  shared.IdempotencyConfig
	logger  *zap.Logger
	metrics *IdempotencyMetrics
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithIdempotencyConfig sets the idempotency configuration
func WithIdempotencyConfig(config shared.IdempotencyConfig) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.config = config
	}
}

// WithIdempotencyMetrics shares a metrics collector between wrappers
func WithIdempotencyMetrics(metrics *IdempotencyMetrics) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.metrics = metrics
	}
}

// WithHandlerName overrides the claim namespace. Defaults to the wrapped
// handler's Go type.
func WithHandlerName(name string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		h.name = name
	}
}

// NewIdempotentHandler wraps handler
func NewIdempotentHandler(
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		name:    fmt.Sprintf("%T", handler),
		handler: handler,
		store:   store,
		config:  shared.DefaultIdempotencyConfig(),
		logger:  logger,
		metrics: &IdempotencyMetrics{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EventTypes delegates to the wrapped handler
func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler unless this event was already handled
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	if !h.config.Enabled {
		return h.handler.Handle(ctx, event)
	}

	key := h.claimKey(event)
	fields := []zap.Field{
		zap.String("handler", h.name),
		zap.String("event_id", event.EventID().String()),
		zap.String("event_type", event.EventType()),
	}

	claimed, err := h.store.MarkProcessed(ctx, key, h.config.TTL)
	switch {
	case err != nil:
		// A store outage must not drop events; a duplicate is the lesser harm.
		h.logger.Warn("idempotency check failed, processing anyway", append(fields, zap.Error(err))...)
	case !claimed:
		h.metrics.EventsDuplicate.Add(1)
		h.logger.Debug("duplicate event skipped", fields...)
		return nil
	}

	if err := h.handler.Handle(ctx, event); err != nil {
		h.metrics.EventsFailed.Add(1)
		h.logger.Error("event handler failed", append(fields, zap.Error(err))...)
		if relErr := h.store.Release(ctx, key); relErr != nil {
			h.logger.Warn("failed to release idempotency claim", append(fields, zap.Error(relErr))...)
		}
		return err
	}

	h.metrics.EventsProcessed.Add(1)
	return nil
}

// Metrics returns the counters of this wrapper
func (h *IdempotentHandler) Metrics() *IdempotencyMetrics {
	return h.metrics
}

// Name returns the claim namespace
func (h *IdempotentHandler) Name() string {
	return h.name
}

func (h *IdempotentHandler) claimKey(event shared.DomainEvent) string {
	return h.name + ":" + event.EventID().String()
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
