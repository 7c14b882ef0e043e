package event

import (
	"context"

	"github.com/coopmarket/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// OutboxPublisher serializes events into outbox entries on a transaction
type OutboxPublisher struct {
	serializer *EventSerializer
	repo       *GormOutboxRepository
}

// NewOutboxPublisher creates a publisher that writes through tx
func NewOutboxPublisher(serializer *EventSerializer, tx *gorm.DB) *OutboxPublisher {
	return &OutboxPublisher{
		serializer: serializer,
		repo:       NewGormOutboxRepository(tx),
	}
}

// Write stores the events as pending outbox entries. It must run on the
// same transaction as the state change that raised them.
func (p *OutboxPublisher) Write(ctx context.Context, events ...shared.DomainEvent) error {
	if len(events) == 0 {
		return nil
	}

	entries := make([]*shared.OutboxEntry, 0, len(events))
	for _, event := range events {
		payload, err := p.serializer.Serialize(event)
		if err != nil {
			return err
		}
		entries = append(entries, shared.NewOutboxEntry(event, payload))
	}
	if err := p.repo.Save(ctx, entries...); err != nil {
		return shared.NewPersistenceError("write outbox", err)
	}
	return nil
}
