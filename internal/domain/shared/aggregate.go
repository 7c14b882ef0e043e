package shared

import (
	"time"

	"github.com/google/uuid"
)

// Entity is the base interface for all domain entities
type Entity interface {
	GetID() uuid.UUID
	GetCreatedAt() time.Time
}

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot carries identity, the optimistic lock counter and the
// events recorded since the aggregate was loaded.
type BaseAggregateRoot struct {
	ID           uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Version      int
	domainEvents []DomainEvent
}

// NewBaseAggregateRoot creates a new base aggregate root with a generated ID
func NewBaseAggregateRoot() BaseAggregateRoot {
	now := time.Now().UTC()
	return BaseAggregateRoot{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// GetID returns the aggregate ID
func (a *BaseAggregateRoot) GetID() uuid.UUID {
	return a.ID
}

// GetCreatedAt returns the creation timestamp
func (a *BaseAggregateRoot) GetCreatedAt() time.Time {
	return a.CreatedAt
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// Touch bumps the version and update timestamp after a state change
func (a *BaseAggregateRoot) Touch(now time.Time) {
	a.Version++
	a.UpdatedAt = now
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}
