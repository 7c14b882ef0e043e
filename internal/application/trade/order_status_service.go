package trade

import (
	"context"
	"errors"
	"time"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStatusService moves orders through their lifecycle
type OrderStatusService struct {
	orderRepo trade.OrderRepository
	txScope   TransactionScope
	metrics   OrderMetrics
	logger    *zap.Logger
	timeout   time.Duration
}

// NewOrderStatusService creates a new OrderStatusService
func NewOrderStatusService(orderRepo trade.OrderRepository, txScope TransactionScope, timeout time.Duration, logger *zap.Logger) *OrderStatusService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderStatusService{
		orderRepo: orderRepo,
		txScope:   txScope,
		metrics:   noopOrderMetrics{},
		logger:    logger,
		timeout:   timeout,
	}
}

// SetMetrics sets the business metrics recorder
func (s *OrderStatusService) SetMetrics(m OrderMetrics) {
	if m != nil {
		s.metrics = m
	}
}

// AdvanceStatus moves an order forward to the requested status
func (s *OrderStatusService) AdvanceStatus(ctx context.Context, orderID uuid.UUID, req AdvanceStatusRequest) (*StatusChangeResult, error) {
	ctx, cancel := withDeadline(ctx, s.timeout)
	defer cancel()

	target, ok := trade.ParseOrderStatus(req.Status)
	if !ok {
		return nil, trade.ErrUnknownStatus.WithMessage("Unknown order status %q", req.Status)
	}
	if target == trade.OrderStatusCancelled {
		return nil, trade.ErrUseCancel
	}

	result, err := s.change(ctx, orderID, func(o *trade.Order) error {
		return o.Advance(target, req.Description, req.TrackingNumber)
	})
	if err != nil {
		return nil, mapDeadline(ctx, err)
	}
	return result, nil
}

// CancelOrder cancels an active order. Stock held by the order becomes
// available again as soon as the change commits.
func (s *OrderStatusService) CancelOrder(ctx context.Context, orderID uuid.UUID, req CancelOrderRequest) (*StatusChangeResult, error) {
	ctx, cancel := withDeadline(ctx, s.timeout)
	defer cancel()

	result, err := s.change(ctx, orderID, func(o *trade.Order) error {
		return o.Cancel(req.Reason)
	})
	if err != nil {
		return nil, mapDeadline(ctx, err)
	}
	return result, nil
}

// change loads the order, applies mutate and persists the result with a
// compare-and-swap on the status it was loaded with
func (s *OrderStatusService) change(ctx context.Context, orderID uuid.UUID, mutate func(*trade.Order) error) (*StatusChangeResult, error) {
	var (
		order    *trade.Order
		previous trade.OrderStatus
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		previous = order.Status
		if err := mutate(order); err != nil {
			return err
		}
		if err := repos.OrderRepo().UpdateStatus(ctx, order, previous); err != nil {
			return err
		}
		if err := repos.Outbox().Write(ctx, order.GetDomainEvents()...); err != nil {
			return err
		}
		order.ClearDomainEvents()
		order.ClearNewTrackingEvents()
		return nil
	})
	if err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return nil, s.explainConflict(ctx, orderID, mutate, err)
		}
		return nil, err
	}

	s.metrics.RecordStatusChange(ctx, previous, order.Status)
	s.logger.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_number", order.OrderNumber),
		zap.String("from", string(previous)),
		zap.String("to", string(order.Status)),
	)
	return toStatusChangeResult(order, previous), nil
}

// explainConflict reports a lost compare-and-swap. The change is replayed
// on a fresh copy of the order so that a concurrent cancellation surfaces as
// the same error a sequential caller would have seen.
func (s *OrderStatusService) explainConflict(ctx context.Context, orderID uuid.UUID, mutate func(*trade.Order) error, cause error) error {
	current, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return cause
	}
	s.logger.Warn("concurrent order status change",
		zap.String("order_id", orderID.String()),
		zap.String("current_status", string(current.Status)),
	)
	if err := mutate(current); err != nil && !shared.IsKind(err, shared.KindValidation) {
		return err
	}
	return cause
}
