package event

import (
	"context"
	"errors"
	"time"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// outboxRecord is the storage shape of an outbox entry
type outboxRecord struct {
	ID            uuid.UUID           `gorm:"type:uuid;primaryKey"`
	EventID       uuid.UUID           `gorm:"type:uuid;not null;uniqueIndex"`
	EventType     string              `gorm:"type:varchar(100);not null"`
	AggregateID   uuid.UUID           `gorm:"type:uuid;not null;index"`
	AggregateType string              `gorm:"type:varchar(100);not null"`
	Payload       []byte              `gorm:"not null"`
	Status        shared.OutboxStatus `gorm:"type:varchar(20);not null;index"`
	RetryCount    int                 `gorm:"not null;default:0"`
	MaxRetries    int                 `gorm:"not null;default:5"`
	LastError     string              `gorm:"type:text"`
	NextRetryAt   *time.Time
	ProcessedAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the table name for GORM
func (outboxRecord) TableName() string {
	return "outbox_events"
}

// AutoMigrateOutbox creates the outbox table. Deployed databases get it from
// the SQL migrations; this is for SQLite and tests.
func AutoMigrateOutbox(db *gorm.DB) error {
	return db.AutoMigrate(&outboxRecord{})
}

func toOutboxRecord(e *shared.OutboxEntry) *outboxRecord {
	return &outboxRecord{
		ID:            e.ID,
		EventID:       e.EventID,
		EventType:     e.EventType,
		AggregateID:   e.AggregateID,
		AggregateType: e.AggregateType,
		Payload:       e.Payload,
		Status:        e.Status,
		RetryCount:    e.RetryCount,
		MaxRetries:    e.MaxRetries,
		LastError:     e.LastError,
		NextRetryAt:   e.NextRetryAt,
		ProcessedAt:   e.ProcessedAt,
		CreatedAt:     e.CreatedAt,
		UpdatedAt:     e.UpdatedAt,
	}
}

func (r *outboxRecord) toDomain() *shared.OutboxEntry {
	return &shared.OutboxEntry{
		ID:            r.ID,
		EventID:       r.EventID,
		EventType:     r.EventType,
		AggregateID:   r.AggregateID,
		AggregateType: r.AggregateType,
		Payload:       r.Payload,
		Status:        r.Status,
		RetryCount:    r.RetryCount,
		MaxRetries:    r.MaxRetries,
		LastError:     r.LastError,
		NextRetryAt:   r.NextRetryAt,
		ProcessedAt:   r.ProcessedAt,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
}

func toOutboxEntries(records []outboxRecord) []*shared.OutboxEntry {
	out := make([]*shared.OutboxEntry, len(records))
	for i := range records {
		out[i] = records[i].toDomain()
	}
	return out
}

// GormOutboxRepository implements OutboxRepository using GORM
type GormOutboxRepository struct {
	db *gorm.DB
}

// NewGormOutboxRepository creates a new GORM-based outbox repository
func NewGormOutboxRepository(db *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormOutboxRepository) WithTx(tx *gorm.DB) *GormOutboxRepository {
	return &GormOutboxRepository{db: tx}
}

// Save persists one or more outbox entries
func (r *GormOutboxRepository) Save(ctx context.Context, entries ...*shared.OutboxEntry) error {
	if len(entries) == 0 {
		return nil
	}
	records := make([]*outboxRecord, len(entries))
	for i, e := range entries {
		records[i] = toOutboxRecord(e)
	}
	return r.db.WithContext(ctx).Create(records).Error
}

// FindPending retrieves pending entries, oldest first
func (r *GormOutboxRepository) FindPending(ctx context.Context, limit int) ([]*shared.OutboxEntry, error) {
	var records []outboxRecord
	err := r.db.WithContext(ctx).
		Where("status = ?", shared.OutboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&records).Error
	return toOutboxEntries(records), err
}

// FindRetryable retrieves failed entries that are due for retry
func (r *GormOutboxRepository) FindRetryable(ctx context.Context, before time.Time, limit int) ([]*shared.OutboxEntry, error) {
	var records []outboxRecord
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_retry_at <= ?", shared.OutboxStatusFailed, before).
		Order("next_retry_at ASC").
		Limit(limit).
		Find(&records).Error
	return toOutboxEntries(records), err
}

// FindByID retrieves a single outbox entry by ID
func (r *GormOutboxRepository) FindByID(ctx context.Context, id uuid.UUID) (*shared.OutboxEntry, error) {
	var record outboxRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewNotFoundError("outbox entry", id)
	}
	if err != nil {
		return nil, err
	}
	return record.toDomain(), nil
}

// MarkProcessing claims entries for this relay. Rows locked by another relay
// are skipped, so each entry is claimed once.
func (r *GormOutboxRepository) MarkProcessing(ctx context.Context, ids []uuid.UUID) ([]*shared.OutboxEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var records []outboxRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("id IN ? AND status IN ?", ids, []shared.OutboxStatus{
				shared.OutboxStatusPending,
				shared.OutboxStatusFailed,
			}).
			Find(&records).Error; err != nil {
			return err
		}
		if len(records) == 0 {
			return nil
		}

		claimed := make([]uuid.UUID, len(records))
		for i := range records {
			claimed[i] = records[i].ID
		}
		now := time.Now()
		if err := tx.Model(&outboxRecord{}).
			Where("id IN ?", claimed).
			Updates(map[string]any{
				"status":     shared.OutboxStatusProcessing,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		for i := range records {
			records[i].Status = shared.OutboxStatusProcessing
			records[i].UpdatedAt = now
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toOutboxEntries(records), nil
}

// Update updates an existing outbox entry
func (r *GormOutboxRepository) Update(ctx context.Context, entry *shared.OutboxEntry) error {
	entry.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(toOutboxRecord(entry)).Error
}

// DeleteOlderThan deletes sent entries processed before the given time
func (r *GormOutboxRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", shared.OutboxStatusSent, before).
		Delete(&outboxRecord{})
	return result.RowsAffected, result.Error
}

// ReleaseStale makes entries abandoned by a crashed relay retryable again
func (r *GormOutboxRepository) ReleaseStale(ctx context.Context, before time.Time) (int64, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&outboxRecord{}).
		Where("status = ? AND updated_at < ?", shared.OutboxStatusProcessing, before).
		Updates(map[string]any{
			"status":        shared.OutboxStatusFailed,
			"next_retry_at": now,
			"last_error":    "released after processing timeout",
			"updated_at":    now,
		})
	return result.RowsAffected, result.Error
}

// FindDead retrieves dead letter entries with pagination
func (r *GormOutboxRepository) FindDead(ctx context.Context, page, pageSize int) ([]*shared.OutboxEntry, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&outboxRecord{}).
		Where("status = ?", shared.OutboxStatusDead).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []outboxRecord
	if err := r.db.WithContext(ctx).
		Where("status = ?", shared.OutboxStatusDead).
		Order("updated_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}
	return toOutboxEntries(records), total, nil
}

// CountByStatus returns count of entries for each status
func (r *GormOutboxRepository) CountByStatus(ctx context.Context) (map[shared.OutboxStatus]int64, error) {
	var rows []struct {
		Status shared.OutboxStatus
		Count  int64
	}
	if err := r.db.WithContext(ctx).
		Model(&outboxRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[shared.OutboxStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

var _ shared.OutboxRepository = (*GormOutboxRepository)(nil)
