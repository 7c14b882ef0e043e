// Package event exposes operator actions on the event outbox: statistics,
// dead letter inspection and manual retry.
package event

import (
	"context"
	"time"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OutboxService handles outbox event management operations
type OutboxService struct {
	repo   shared.OutboxRepository
	logger *zap.Logger
}

// NewOutboxService creates a new outbox service
func NewOutboxService(repo shared.OutboxRepository, logger *zap.Logger) *OutboxService {
	return &OutboxService{
		repo:   repo,
		logger: logger,
	}
}

// OutboxEntryDTO represents an outbox entry data transfer object
type OutboxEntryDTO struct {
	ID            uuid.UUID  `json:"id"`
	EventID       uuid.UUID  `json:"event_id"`
	EventType     string     `json:"event_type"`
	AggregateID   uuid.UUID  `json:"aggregate_id"`
	AggregateType string     `json:"aggregate_type"`
	Status        string     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	MaxRetries    int        `json:"max_retries"`
	LastError     string     `json:"last_error,omitempty"`
	NextRetryAt   *time.Time `json:"next_retry_at,omitempty"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// OutboxFilter represents filter for querying outbox entries
type OutboxFilter struct {
	Page     int `form:"page,omitempty" binding:"omitempty,min=1"`
	PageSize int `form:"page_size,omitempty" binding:"omitempty,min=1,max=100"`
}

// OutboxStatsDTO represents outbox statistics
type OutboxStatsDTO struct {
	Pending    int64 `json:"pending"`
	Processing int64 `json:"processing"`
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dead       int64 `json:"dead"`
	Total      int64 `json:"total"`
}

// GetDeadLetterEntries lists dead letter entries, most recent first
func (s *OutboxService) GetDeadLetterEntries(ctx context.Context, filter OutboxFilter) (shared.Paginated[OutboxEntryDTO], error) {
	page, pageSize := shared.NormalizePage(filter.Page, filter.PageSize)

	entries, total, err := s.repo.FindDead(ctx, page, pageSize)
	if err != nil {
		s.logger.Error("failed to find dead letter entries", zap.Error(err))
		return shared.Paginated[OutboxEntryDTO]{}, shared.NewPersistenceError("list dead letter entries", err)
	}

	dtos := make([]OutboxEntryDTO, len(entries))
	for i, entry := range entries {
		dtos[i] = toOutboxEntryDTO(entry)
	}
	return shared.NewPaginated(dtos, total, page, pageSize), nil
}

// GetEntry retrieves a single outbox entry by ID
func (s *OutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryDeadEntry gives a dead letter entry a fresh set of attempts
func (s *OutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*OutboxEntryDTO, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := entry.ResetForRetry(); err != nil {
		return nil, shared.ErrInvalidState.WithMessage("outbox entry %s is %s, only DEAD entries can be retried", id, entry.Status)
	}
	if err := s.repo.Update(ctx, entry); err != nil {
		s.logger.Error("failed to update outbox entry", zap.Error(err), zap.String("id", id.String()))
		return nil, shared.NewPersistenceError("retry outbox entry", err)
	}

	s.logger.Info("dead letter entry reset for retry",
		zap.String("id", id.String()),
		zap.String("event_type", entry.EventType),
	)
	dto := toOutboxEntryDTO(entry)
	return &dto, nil
}

// RetryAllDeadEntries resets every dead letter entry. Reset entries leave
// the dead set, so the first page is read until it comes back empty.
func (s *OutboxService) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	const batch = 100
	var count int64

	for {
		entries, _, err := s.repo.FindDead(ctx, 1, batch)
		if err != nil {
			s.logger.Error("failed to find dead letter entries", zap.Error(err))
			return count, shared.NewPersistenceError("list dead letter entries", err)
		}

		reset := 0
		for _, entry := range entries {
			if err := entry.ResetForRetry(); err != nil {
				continue
			}
			if err := s.repo.Update(ctx, entry); err != nil {
				s.logger.Error("failed to update outbox entry", zap.Error(err), zap.String("id", entry.ID.String()))
				continue
			}
			reset++
		}
		count += int64(reset)

		// a batch where nothing could be reset would be read again forever
		if len(entries) < batch || reset == 0 {
			break
		}
	}

	s.logger.Info("retried dead letter entries", zap.Int64("count", count))
	return count, nil
}

// GetStats returns outbox statistics
func (s *OutboxService) GetStats(ctx context.Context) (*OutboxStatsDTO, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		s.logger.Error("failed to get outbox stats", zap.Error(err))
		return nil, shared.NewPersistenceError("count outbox entries", err)
	}

	var total int64
	for _, count := range counts {
		total += count
	}
	return &OutboxStatsDTO{
		Pending:    counts[shared.OutboxStatusPending],
		Processing: counts[shared.OutboxStatusProcessing],
		Sent:       counts[shared.OutboxStatusSent],
		Failed:     counts[shared.OutboxStatusFailed],
		Dead:       counts[shared.OutboxStatusDead],
		Total:      total,
	}, nil
}

func (s *OutboxService) find(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if shared.IsKind(err, shared.KindNotFound) {
			return nil, err
		}
		s.logger.Error("failed to find outbox entry", zap.Error(err), zap.String("id", id.String()))
		return nil, shared.NewPersistenceError("load outbox entry", err)
	}
	return entry, nil
}

func toOutboxEntryDTO(entry *shared.OutboxEntry) OutboxEntryDTO {
	return OutboxEntryDTO{
		ID:            entry.ID,
		EventID:       entry.EventID,
		EventType:     entry.EventType,
		AggregateID:   entry.AggregateID,
		AggregateType: entry.AggregateType,
		Status:        string(entry.Status),
		RetryCount:    entry.RetryCount,
		MaxRetries:    entry.MaxRetries,
		LastError:     entry.LastError,
		NextRetryAt:   entry.NextRetryAt,
		ProcessedAt:   entry.ProcessedAt,
		CreatedAt:     entry.CreatedAt,
		UpdatedAt:     entry.UpdatedAt,
	}
}
