package persistence

import (
	"context"
	"errors"
	"testing"

	apptrade "github.com/coopmarket/backend/internal/application/trade"
	"github.com/coopmarket/backend/internal/domain/inventory"
	"github.com/coopmarket/backend/internal/infrastructure/event"
	"github.com/coopmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestScope(t *testing.T) (*GormTransactionScope, *event.GormOutboxRepository, *GormOrderRepository) {
	db := setupTestDB(t)
	serializer := event.NewEventSerializer()
	event.RegisterOrderEvents(serializer)
	return NewGormTransactionScope(db, serializer), event.NewGormOutboxRepository(db), NewGormOrderRepository(db)
}

func TestGormTransactionScope_Commit(t *testing.T) {
	scope, outbox, orders := newTestScope(t)
	ctx := context.Background()
	order := newOrder(t, uuid.New())

	err := scope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		if err := repos.OrderRepo().Create(ctx, order); err != nil {
			return err
		}
		return repos.Outbox().Write(ctx, order.GetDomainEvents()...)
	})
	require.NoError(t, err)

	_, err = orders.FindByID(ctx, order.ID)
	assert.NoError(t, err)

	pending, err := outbox.FindPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, order.ID, pending[0].AggregateID)
}

func TestGormTransactionScope_Rollback(t *testing.T) {
	scope, outbox, orders := newTestScope(t)
	ctx := context.Background()
	order := newOrder(t, uuid.New())
	boom := errors.New("pricing changed")

	err := scope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		if err := repos.OrderRepo().Create(ctx, order); err != nil {
			return err
		}
		if err := repos.Outbox().Write(ctx, order.GetDomainEvents()...); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = orders.FindByID(ctx, order.ID)
	assert.Error(t, err)

	pending, err := outbox.FindPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)

	var lines int64
	require.NoError(t, scope.db.Model(&models.OrderLineModel{}).Count(&lines).Error)
	assert.Zero(t, lines)
}

func TestGormTransactionScope_ReposShareTransaction(t *testing.T) {
	scope, _, _ := newTestScope(t)
	ctx := context.Background()
	productID := seedProduct(t, scope.db, "100.00", 5)

	err := scope.Execute(ctx, func(repos apptrade.TransactionalRepositories) error {
		order := newOrder(t, uuid.New(), orderLineSpec{productID: productID, quantity: 2, unitPrice: "120.00"})
		if err := repos.OrderRepo().Create(ctx, order); err != nil {
			return err
		}
		address := newAddress(t, order.BuyerID, "Casablanca")
		if err := repos.AddressRepo().Save(ctx, address); err != nil {
			return err
		}

		level, err := repos.StockReader().StockLevel(ctx, inventory.StockKey{ProductID: productID})
		require.NoError(t, err)
		assert.Equal(t, int64(3), level.Available(), "uncommitted order is visible inside the transaction")

		_, err = repos.DeliveryModeRepo().FindActive(ctx)
		require.NoError(t, err)
		_, err = repos.DeliveryZoneRepo().FindAll(ctx)
		require.NoError(t, err)
		return nil
	})
	require.NoError(t, err)
}
