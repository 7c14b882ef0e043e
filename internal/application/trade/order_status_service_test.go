package trade

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newStatusService(orders *MockOrderRepository, outbox *MockOutbox) *OrderStatusService {
	scope := &NoOpTransactionScope{Orders: orders, Events: outbox}
	return NewOrderStatusService(orders, scope, 0, nil)
}

// ==================== AdvanceStatus ====================

func TestOrderStatusService_AdvanceStatus(t *testing.T) {
	t.Run("moves forward and records tracking", func(t *testing.T) {
		orders, outbox := new(MockOrderRepository), new(MockOutbox)
		order := newPlacedOrder(t, uuid.New())
		orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		orders.On("UpdateStatus", mock.Anything, order, trade.OrderStatusValidated).Return(nil)
		outbox.On("Write", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
			return len(events) == 1 && events[0].EventType() == trade.EventTypeOrderStatusChanged
		})).Return(nil)

		result, err := newStatusService(orders, outbox).AdvanceStatus(context.Background(), order.ID,
			AdvanceStatusRequest{Status: "Shipped", TrackingNumber: "AMANA-123"})

		require.NoError(t, err)
		assert.Equal(t, trade.OrderStatusValidated, result.PreviousStatus)
		assert.Equal(t, trade.OrderStatusShipped, result.Status)
		require.Len(t, order.Tracking, 2)
		assert.Equal(t, "AMANA-123", order.Tracking[1].TrackingNumber)
		outbox.AssertExpectations(t)
	})

	tests := []struct {
		name    string
		from    trade.OrderStatus
		target  string
		wantErr *shared.DomainError
	}{
		{"cancel is rejected", trade.OrderStatusValidated, "CANCELLED", trade.ErrUseCancel},
		{"unknown label", trade.OrderStatusValidated, "LOST", trade.ErrUnknownStatus},
		{"backwards", trade.OrderStatusShipped, "PREPARING", trade.ErrInvalidTransition},
		{"same status", trade.OrderStatusShipped, "SHIPPED", trade.ErrInvalidTransition},
		{"from delivered", trade.OrderStatusDelivered, "SHIPPED", trade.ErrOrderAlreadyTerminal},
		{"from cancelled", trade.OrderStatusCancelled, "DELIVERED", trade.ErrOrderAlreadyTerminal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, outbox := new(MockOrderRepository), new(MockOutbox)
			order := newPlacedOrder(t, uuid.New())
			order.Status = tt.from
			orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

			_, err := newStatusService(orders, outbox).AdvanceStatus(context.Background(), order.ID,
				AdvanceStatusRequest{Status: tt.target})

			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
			orders.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
			assert.Equal(t, tt.from, order.Status)
		})
	}

	t.Run("missing order", func(t *testing.T) {
		orders, outbox := new(MockOrderRepository), new(MockOutbox)
		id := uuid.New()
		orders.On("FindByID", mock.Anything, id).Return(nil, trade.ErrOrderNotFound)

		_, err := newStatusService(orders, outbox).AdvanceStatus(context.Background(), id, AdvanceStatusRequest{Status: "PREPARING"})

		assert.True(t, errors.Is(err, trade.ErrOrderNotFound))
	})

	t.Run("lost race against a cancellation reports the terminal state", func(t *testing.T) {
		orders, outbox := new(MockOrderRepository), new(MockOutbox)
		stale := newPlacedOrder(t, uuid.New())
		fresh := *stale
		fresh.Status = trade.OrderStatusCancelled
		orders.On("FindByID", mock.Anything, stale.ID).Return(stale, nil).Once()
		orders.On("FindByID", mock.Anything, stale.ID).Return(&fresh, nil).Once()
		orders.On("UpdateStatus", mock.Anything, stale, trade.OrderStatusValidated).Return(shared.ErrConcurrencyConflict)

		_, err := newStatusService(orders, outbox).AdvanceStatus(context.Background(), stale.ID, AdvanceStatusRequest{Status: "PREPARING"})

		assert.True(t, errors.Is(err, trade.ErrOrderAlreadyTerminal), "got %v", err)
	})

	t.Run("lost race against another advance is a concurrency conflict", func(t *testing.T) {
		orders, outbox := new(MockOrderRepository), new(MockOutbox)
		stale := newPlacedOrder(t, uuid.New())
		fresh := *stale
		fresh.Status = trade.OrderStatusPreparing
		orders.On("FindByID", mock.Anything, stale.ID).Return(stale, nil).Once()
		orders.On("FindByID", mock.Anything, stale.ID).Return(&fresh, nil).Once()
		orders.On("UpdateStatus", mock.Anything, stale, trade.OrderStatusValidated).Return(shared.ErrConcurrencyConflict)

		_, err := newStatusService(orders, outbox).AdvanceStatus(context.Background(), stale.ID, AdvanceStatusRequest{Status: "SHIPPED"})

		assert.True(t, errors.Is(err, shared.ErrConcurrencyConflict), "got %v", err)
	})
}

// ==================== CancelOrder ====================

func TestOrderStatusService_CancelOrder(t *testing.T) {
	for _, from := range []trade.OrderStatus{
		trade.OrderStatusValidated,
		trade.OrderStatusPreparing,
		trade.OrderStatusShipped,
		trade.OrderStatusDelivered,
	} {
		t.Run("from "+from.Label(), func(t *testing.T) {
			orders, outbox := new(MockOrderRepository), new(MockOutbox)
			order := newPlacedOrder(t, uuid.New())
			order.Status = from
			orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
			orders.On("UpdateStatus", mock.Anything, order, from).Return(nil)
			outbox.On("Write", mock.Anything, mock.MatchedBy(func(events []shared.DomainEvent) bool {
				return len(events) == 1 && events[0].EventType() == trade.EventTypeOrderCancelled
			})).Return(nil)

			result, err := newStatusService(orders, outbox).CancelOrder(context.Background(), order.ID,
				CancelOrderRequest{Reason: "  buyer changed their mind  "})

			require.NoError(t, err)
			assert.Equal(t, from, result.PreviousStatus)
			assert.Equal(t, trade.OrderStatusCancelled, result.Status)
			assert.Equal(t, "buyer changed their mind", result.CancelReason)
			assert.NotNil(t, order.CancelledAt)
		})
	}

	t.Run("short reason", func(t *testing.T) {
		orders, outbox := new(MockOrderRepository), new(MockOutbox)
		order := newPlacedOrder(t, uuid.New())
		orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := newStatusService(orders, outbox).CancelOrder(context.Background(), order.ID, CancelOrderRequest{Reason: " too short "})

		assert.True(t, errors.Is(err, trade.ErrInvalidReason))
		assert.Equal(t, trade.OrderStatusValidated, order.Status)
	})

	t.Run("long reason is truncated", func(t *testing.T) {
		orders, outbox := new(MockOrderRepository), new(MockOutbox)
		order := newPlacedOrder(t, uuid.New())
		orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		orders.On("UpdateStatus", mock.Anything, order, trade.OrderStatusValidated).Return(nil)
		outbox.On("Write", mock.Anything, mock.Anything).Return(nil)

		result, err := newStatusService(orders, outbox).CancelOrder(context.Background(), order.ID,
			CancelOrderRequest{Reason: strings.Repeat("é", 600)})

		require.NoError(t, err)
		assert.Equal(t, trade.MaxCancelReasonLength, len([]rune(result.CancelReason)))
	})

	t.Run("already cancelled", func(t *testing.T) {
		orders, outbox := new(MockOrderRepository), new(MockOutbox)
		order := newPlacedOrder(t, uuid.New())
		order.Status = trade.OrderStatusCancelled
		orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

		_, err := newStatusService(orders, outbox).CancelOrder(context.Background(), order.ID, CancelOrderRequest{Reason: "x"})

		assert.True(t, errors.Is(err, trade.ErrOrderAlreadyCancelled))
	})

	t.Run("outbox failure rolls the change back", func(t *testing.T) {
		orders, outbox := new(MockOrderRepository), new(MockOutbox)
		order := newPlacedOrder(t, uuid.New())
		orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
		orders.On("UpdateStatus", mock.Anything, order, trade.OrderStatusValidated).Return(nil)
		outbox.On("Write", mock.Anything, mock.Anything).Return(shared.NewPersistenceError("write outbox", errors.New("disk full")))

		_, err := newStatusService(orders, outbox).CancelOrder(context.Background(), order.ID,
			CancelOrderRequest{Reason: "wrong size ordered"})

		assert.True(t, shared.IsKind(err, shared.KindPersistence))
	})
}
