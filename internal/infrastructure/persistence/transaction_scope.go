package persistence

import (
	"context"

	apptrade "github.com/coopmarket/backend/internal/application/trade"
	"github.com/coopmarket/backend/internal/domain/delivery"
	"github.com/coopmarket/backend/internal/domain/inventory"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/coopmarket/backend/internal/infrastructure/event"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Everything written through the repositories it hands out, outbox entries
// included, commits or rolls back together.
type GormTransactionScope struct {
	db         *gorm.DB
	serializer *event.EventSerializer
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB, serializer *event.EventSerializer) *GormTransactionScope {
	return &GormTransactionScope{db: db, serializer: serializer}
}

// Execute runs fn within a database transaction
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos apptrade.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, serializer: s.serializer})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction
type gormTransactionalRepositories struct {
	tx         *gorm.DB
	serializer *event.EventSerializer
}

func (r *gormTransactionalRepositories) OrderRepo() trade.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) AddressRepo() trade.AddressRepository {
	return NewGormAddressRepository(r.tx)
}

func (r *gormTransactionalRepositories) StockReader() inventory.StockReader {
	return NewGormStockRepository(r.tx)
}

func (r *gormTransactionalRepositories) DeliveryModeRepo() delivery.ModeRepository {
	return NewGormDeliveryModeRepository(r.tx)
}

func (r *gormTransactionalRepositories) DeliveryZoneRepo() delivery.ZoneRepository {
	return NewGormDeliveryZoneRepository(r.tx)
}

func (r *gormTransactionalRepositories) Outbox() apptrade.OutboxWriter {
	return event.NewOutboxPublisher(r.serializer, r.tx)
}

var (
	_ apptrade.TransactionScope          = (*GormTransactionScope)(nil)
	_ apptrade.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
	_ apptrade.CatalogPriceReader        = (*GormStockRepository)(nil)
)
