package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Create / Find
// =============================================================================

func TestGormOrderRepository_CreateAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	variantID := uuid.New()
	order := newOrder(t, uuid.New(),
		orderLineSpec{productID: uuid.New(), quantity: 2, unitPrice: "120.00"},
		orderLineSpec{productID: uuid.New(), variantID: &variantID, quantity: 1, unitPrice: "60.00"},
	)
	key := "checkout-123"
	order.IdempotencyKey = &key

	require.NoError(t, repo.Create(ctx, order))

	t.Run("by id with lines and tracking", func(t *testing.T) {
		found, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)

		assert.Equal(t, order.OrderNumber, found.OrderNumber)
		assert.Equal(t, order.BuyerID, found.BuyerID)
		assert.Equal(t, trade.OrderStatusValidated, found.Status)
		assert.True(t, order.Subtotal.Equal(found.Subtotal))
		assert.True(t, order.VAT.Equal(found.VAT))
		assert.True(t, order.DeliveryFee.Equal(found.DeliveryFee))
		assert.True(t, order.Total.Equal(found.Total))
		assert.Equal(t, trade.PaymentMethodCashOnDelivery, found.PaymentMethod)
		assert.Equal(t, 1, found.Version)
		require.Len(t, found.Lines, 2)
		require.Len(t, found.Tracking, 1)
		assert.Equal(t, trade.TrackingLabelConfirmed, found.Tracking[0].Status)

		var withVariant *trade.OrderLine
		for i := range found.Lines {
			if found.Lines[i].VariantID != nil {
				withVariant = &found.Lines[i]
			}
		}
		require.NotNil(t, withVariant)
		assert.Equal(t, variantID, *withVariant.VariantID)
	})

	t.Run("by order number", func(t *testing.T) {
		found, err := repo.FindByOrderNumber(ctx, order.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, order.ID, found.ID)
	})

	t.Run("by idempotency key", func(t *testing.T) {
		found, err := repo.FindByIdempotencyKey(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, order.ID, found.ID)
		require.NotNil(t, found.IdempotencyKey)
		assert.Equal(t, key, *found.IdempotencyKey)
	})

	t.Run("unknown order", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, trade.ErrOrderNotFound)
		assert.True(t, shared.IsKind(err, shared.KindNotFound))
	})
}

func TestGormOrderRepository_Create_UniqueViolations(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	first := newOrder(t, uuid.New())
	key := "same-key"
	first.IdempotencyKey = &key
	require.NoError(t, repo.Create(ctx, first))

	t.Run("duplicate order number", func(t *testing.T) {
		dup := newOrder(t, uuid.New())
		dup.OrderNumber = first.OrderNumber

		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, trade.ErrDuplicateOrderNumber)
	})

	t.Run("duplicate idempotency key", func(t *testing.T) {
		dup := newOrder(t, uuid.New())
		dup.IdempotencyKey = &key

		err := repo.Create(ctx, dup)
		assert.ErrorIs(t, err, trade.ErrDuplicateIdempotencyKey)
	})

	t.Run("orders without key coexist", func(t *testing.T) {
		require.NoError(t, repo.Create(ctx, newOrder(t, uuid.New())))
		require.NoError(t, repo.Create(ctx, newOrder(t, uuid.New())))
	})
}

func TestGormOrderRepository_FindByBuyer(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	buyerID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		o := newOrder(t, buyerID)
		o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(ctx, o))
		ids = append(ids, o.ID)
	}
	require.NoError(t, repo.Create(ctx, newOrder(t, uuid.New())))

	t.Run("newest first", func(t *testing.T) {
		orders, total, err := repo.FindByBuyer(ctx, buyerID, 1, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, orders, 2)
		assert.Equal(t, ids[2], orders[0].ID)
		assert.Equal(t, ids[1], orders[1].ID)
	})

	t.Run("second page", func(t *testing.T) {
		orders, total, err := repo.FindByBuyer(ctx, buyerID, 2, 2)
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		require.Len(t, orders, 1)
		assert.Equal(t, ids[0], orders[0].ID)
	})

	t.Run("buyer without orders", func(t *testing.T) {
		orders, total, err := repo.FindByBuyer(ctx, uuid.New(), 1, 20)
		require.NoError(t, err)
		assert.Zero(t, total)
		assert.Empty(t, orders)
	})
}

// =============================================================================
// Status updates
// =============================================================================

func TestGormOrderRepository_UpdateStatus(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	order := newOrder(t, uuid.New())
	require.NoError(t, repo.Create(ctx, order))

	t.Run("advances when status matches", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)

		require.NoError(t, loaded.Advance(trade.OrderStatusPreparing, "", ""))
		require.NoError(t, repo.UpdateStatus(ctx, loaded, trade.OrderStatusValidated))

		stored, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, trade.OrderStatusPreparing, stored.Status)
		assert.Equal(t, 2, stored.Version)
		require.Len(t, stored.Tracking, 2)
		assert.Equal(t, trade.OrderStatusPreparing.Label(), stored.Tracking[1].Status)
	})

	t.Run("stale expected status conflicts", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		stale.Status = trade.OrderStatusValidated

		require.NoError(t, stale.Cancel("customer changed their mind"))
		err = repo.UpdateStatus(ctx, stale, trade.OrderStatusValidated)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)

		stored, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, trade.OrderStatusPreparing, stored.Status)
		assert.Len(t, stored.Tracking, 2)
	})

	t.Run("cancellation stores reason", func(t *testing.T) {
		loaded, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)

		require.NoError(t, loaded.Cancel("  out of delivery area  "))
		require.NoError(t, repo.UpdateStatus(ctx, loaded, trade.OrderStatusPreparing))

		stored, err := repo.FindByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, trade.OrderStatusCancelled, stored.Status)
		assert.Equal(t, "out of delivery area", stored.CancelReason)
		assert.NotNil(t, stored.CancelledAt)
	})
}

func TestGormOrderRepository_TrackingWrittenOnce(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormOrderRepository(db)
	ctx := context.Background()

	order := newOrder(t, uuid.New())
	require.NoError(t, repo.Create(ctx, order))
	assert.Empty(t, order.NewTrackingEvents())

	require.NoError(t, order.Cancel("payment never arrived"))
	require.NoError(t, repo.UpdateStatus(ctx, order, trade.OrderStatusValidated))
	assert.Empty(t, order.NewTrackingEvents())

	stored, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.OrderStatusCancelled, stored.Status)
	assert.Len(t, stored.Tracking, 2)
}

func TestGormOrderRepository_UpdateStatus_SQL(t *testing.T) {
	gormDB, mock, mockDB := setupMockDB(t)
	defer mockDB.Close()
	repo := NewGormOrderRepository(gormDB)

	order := newOrder(t, uuid.New())
	order.ClearNewTrackingEvents()
	order.Status = trade.OrderStatusShipped

	mock.ExpectExec(`UPDATE "orders" SET .*"version"=version \+ 1.* WHERE id = \$\d+ AND status = \$\d+`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), order, trade.OrderStatusPreparing)
	assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// =============================================================================
// Error mapping
// =============================================================================

func TestUniqueViolation(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		constraint string
		ok         bool
	}{
		{
			name:       "postgres unique violation",
			err:        &pgconn.PgError{Code: "23505", ConstraintName: "idx_orders_order_number"},
			constraint: "idx_orders_order_number",
			ok:         true,
		},
		{
			name: "postgres other error",
			err:  &pgconn.PgError{Code: "23503", ConstraintName: "fk_order_lines_order"},
		},
		{
			name:       "sqlite unique violation",
			err:        errors.New("UNIQUE constraint failed: orders.idempotency_key"),
			constraint: "orders.idempotency_key",
			ok:         true,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection reset"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			constraint, ok := uniqueViolation(tt.err)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.constraint, constraint)
		})
	}
}

func TestWrapError(t *testing.T) {
	t.Run("domain errors pass through", func(t *testing.T) {
		assert.Same(t, trade.ErrOrderNotFound, wrapError("load", trade.ErrOrderNotFound))
	})

	t.Run("context errors pass through", func(t *testing.T) {
		assert.ErrorIs(t, wrapError("load", context.DeadlineExceeded), context.DeadlineExceeded)
	})

	t.Run("driver errors become persistence errors", func(t *testing.T) {
		err := wrapError("load order", errors.New("boom"))
		assert.True(t, shared.IsKind(err, shared.KindPersistence))
		assert.ErrorIs(t, err, shared.ErrPersistence)
	})

	t.Run("over-long values are validation errors", func(t *testing.T) {
		err := wrapError("create order", &pgconn.PgError{Code: "22001", Message: "value too long for type character varying(128)"})
		assert.True(t, shared.IsKind(err, shared.KindValidation))
		assert.False(t, shared.IsKind(err, shared.KindPersistence))
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, wrapError("load", nil))
	})
}
