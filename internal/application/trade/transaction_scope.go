package trade

import (
	"context"

	"github.com/coopmarket/backend/internal/domain/delivery"
	"github.com/coopmarket/backend/internal/domain/inventory"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/domain/trade"
)

// OutboxWriter stores domain events in the same transaction as the state
// change that produced them. Delivery happens after commit.
type OutboxWriter interface {
	Write(ctx context.Context, events ...shared.DomainEvent) error
}

// TransactionScope runs a function inside one database transaction. If the
// function returns an error, everything it wrote is rolled back.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides repositories bound to the current transaction.
// Stock reads go through the same transaction so that availability is checked
// against the snapshot the order is inserted into.
type TransactionalRepositories interface {
	OrderRepo() trade.OrderRepository
	AddressRepo() trade.AddressRepository
	StockReader() inventory.StockReader
	DeliveryModeRepo() delivery.ModeRepository
	DeliveryZoneRepo() delivery.ZoneRepository
	Outbox() OutboxWriter
}

// NoOpTransactionScope runs the function against plain repositories without
// a real transaction. Used in tests.
type NoOpTransactionScope struct {
	Orders    trade.OrderRepository
	Addresses trade.AddressRepository
	Stock     inventory.StockReader
	Modes     delivery.ModeRepository
	Zones     delivery.ZoneRepository
	Events    OutboxWriter
}

// Execute runs the function without a real transaction
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) OrderRepo() trade.OrderRepository         { return s.Orders }
func (s *NoOpTransactionScope) AddressRepo() trade.AddressRepository     { return s.Addresses }
func (s *NoOpTransactionScope) StockReader() inventory.StockReader       { return s.Stock }
func (s *NoOpTransactionScope) DeliveryModeRepo() delivery.ModeRepository { return s.Modes }
func (s *NoOpTransactionScope) DeliveryZoneRepo() delivery.ZoneRepository { return s.Zones }
func (s *NoOpTransactionScope) Outbox() OutboxWriter                     { return s.Events }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
