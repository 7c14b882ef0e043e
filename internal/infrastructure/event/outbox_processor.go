package event

import (
	"context"
	"sync"
	"time"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxProcessorConfig holds configuration for the outbox relay
type OutboxProcessorConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	MaxRetries       int
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
	// StaleAfter is how long an entry may stay in processing before it is released
	StaleAfter time.Duration
}

// DefaultOutboxProcessorConfig returns default configuration
func DefaultOutboxProcessorConfig() OutboxProcessorConfig {
	return OutboxProcessorConfig{
		BatchSize:        100,
		PollInterval:     2 * time.Second,
		MaxRetries:       shared.DefaultMaxRetries,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour,
		CleanupInterval:  time.Hour,
		StaleAfter:       5 * time.Minute,
	}
}

// OutboxProcessor relays committed outbox entries to the event bus. Failed
// entries are retried with exponential backoff and dead-lettered once they
// exhaust their attempts.
type OutboxProcessor struct {
	repo       shared.OutboxRepository
	publisher  shared.EventPublisher
	serializer *EventSerializer
	config     OutboxProcessorConfig
	logger     *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOutboxProcessor creates a new outbox processor
func NewOutboxProcessor(
	repo shared.OutboxRepository,
	publisher shared.EventPublisher,
	serializer *EventSerializer,
	config OutboxProcessorConfig,
	logger *zap.Logger,
) *OutboxProcessor {
	defaults := DefaultOutboxProcessorConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = defaults.CleanupInterval
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = defaults.StaleAfter
	}
	return &OutboxProcessor{
		repo:       repo,
		publisher:  publisher,
		serializer: serializer,
		config:     config,
		logger:     logger,
	}
}

// Start starts the background loops
func (p *OutboxProcessor) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(ctx, p.config.PollInterval, p.ProcessOnce)

	if p.config.CleanupEnabled {
		p.wg.Add(1)
		go p.loop(ctx, p.config.CleanupInterval, p.cleanup)
	}

	p.logger.Info("outbox processor started",
		zap.Int("batch_size", p.config.BatchSize),
		zap.Duration("poll_interval", p.config.PollInterval),
	)
	return nil
}

// Stop gracefully stops the processor
func (p *OutboxProcessor) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("outbox processor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *OutboxProcessor) loop(ctx context.Context, every time.Duration, fn func(context.Context)) {
	defer p.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// ProcessOnce relays one batch of pending entries and one batch of entries
// due for retry
func (p *OutboxProcessor) ProcessOnce(ctx context.Context) {
	pending, err := p.repo.FindPending(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find pending entries", zap.Error(err))
		return
	}
	p.processEntries(ctx, pending)

	retryable, err := p.repo.FindRetryable(ctx, time.Now(), p.config.BatchSize)
	if err != nil {
		p.logger.Error("failed to find retryable entries", zap.Error(err))
		return
	}
	p.processEntries(ctx, retryable)
}

func (p *OutboxProcessor) processEntries(ctx context.Context, entries []*shared.OutboxEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}

	claimed, err := p.repo.MarkProcessing(ctx, ids)
	if err != nil {
		p.logger.Error("failed to mark entries as processing", zap.Error(err))
		return
	}
	for _, entry := range claimed {
		p.processEntry(ctx, entry)
	}
}

func (p *OutboxProcessor) processEntry(ctx context.Context, entry *shared.OutboxEntry) {
	if p.config.MaxRetries > 0 {
		entry.MaxRetries = p.config.MaxRetries
	}

	event, err := p.serializer.Deserialize(entry.EventType, entry.Payload)
	if err != nil {
		p.fail(ctx, entry, err)
		return
	}
	if err := p.publisher.Publish(ctx, event); err != nil {
		p.fail(ctx, entry, err)
		return
	}

	entry.MarkSent()
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to mark entry as sent",
			zap.String("event_id", entry.EventID.String()),
			zap.Error(err),
		)
		return
	}
	p.logger.Debug("event relayed",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
	)
}

func (p *OutboxProcessor) fail(ctx context.Context, entry *shared.OutboxEntry, cause error) {
	p.logger.Error("failed to relay event",
		zap.String("event_id", entry.EventID.String()),
		zap.String("event_type", entry.EventType),
		zap.Error(cause),
	)
	entry.MarkFailed(cause.Error())
	if entry.IsDead() {
		p.logger.Warn("event moved to dead letter queue",
			zap.String("event_id", entry.EventID.String()),
			zap.String("event_type", entry.EventType),
			zap.String("aggregate_id", entry.AggregateID.String()),
			zap.Int("retry_count", entry.RetryCount),
			zap.String("last_error", entry.LastError),
		)
	}
	if err := p.repo.Update(ctx, entry); err != nil {
		p.logger.Error("failed to update entry", zap.Error(err))
	}
}

func (p *OutboxProcessor) cleanup(ctx context.Context) {
	released, err := p.repo.ReleaseStale(ctx, time.Now().Add(-p.config.StaleAfter))
	if err != nil {
		p.logger.Error("failed to release stale entries", zap.Error(err))
	} else if released > 0 {
		p.logger.Warn("released stale outbox entries", zap.Int64("released", released))
	}

	if p.config.CleanupRetention <= 0 {
		return
	}
	cutoff := time.Now().Add(-p.config.CleanupRetention)
	deleted, err := p.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		p.logger.Error("failed to cleanup old entries", zap.Error(err))
		return
	}
	if deleted > 0 {
		p.logger.Info("cleaned up old outbox entries",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
