package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/coopmarket/backend/internal/domain/pricing"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notification kinds sent to buyers
const (
	NotificationOrderConfirmed = "order_confirmed"
	NotificationOrderCancelled = "order_cancelled"
)

// BuyerNotification is a message addressed to the buyer of an order. The
// delivery channel (email, SMS) is the notifier's concern.
type BuyerNotification struct {
	ID          uuid.UUID         `json:"id"`
	Kind        string            `json:"kind"`
	BuyerID     uuid.UUID         `json:"buyer_id"`
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Subject     string            `json:"subject"`
	Data        map[string]string `json:"data"`
	CreatedAt   time.Time         `json:"created_at"`
}

// BuyerNotifier delivers buyer notifications
type BuyerNotifier interface {
	Notify(ctx context.Context, n BuyerNotification) error
}

// OrderNotificationHandler tells buyers their order was confirmed or
// cancelled. It runs after commit; a failed notification is logged and
// never undoes the order change.
type OrderNotificationHandler struct {
	notifier BuyerNotifier
	logger   *zap.Logger
}

// NewOrderNotificationHandler creates a new handler for buyer notifications
func NewOrderNotificationHandler(notifier BuyerNotifier, logger *zap.Logger) *OrderNotificationHandler {
	return &OrderNotificationHandler{
		notifier: notifier,
		logger:   logger,
	}
}

// EventTypes returns the event types this handler is interested in
func (h *OrderNotificationHandler) EventTypes() []string {
	return []string{trade.EventTypeOrderConfirmed, trade.EventTypeOrderCancelled}
}

// Handle builds the notification for the event and sends it
func (h *OrderNotificationHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	var n BuyerNotification
	switch e := event.(type) {
	case *trade.OrderConfirmedEvent:
		n = BuyerNotification{
			Kind:        NotificationOrderConfirmed,
			BuyerID:     e.BuyerID,
			OrderID:     e.OrderID,
			OrderNumber: e.OrderNumber,
			Subject:     fmt.Sprintf("Commande %s confirmée", e.OrderNumber),
			Data: map[string]string{
				"total":        e.Total.StringFixed(pricing.Scale),
				"delivery_fee": e.DeliveryFee.StringFixed(pricing.Scale),
				"city":         e.Address.City,
				"lines":        fmt.Sprintf("%d", len(e.Lines)),
			},
		}
	case *trade.OrderCancelledEvent:
		n = BuyerNotification{
			Kind:        NotificationOrderCancelled,
			BuyerID:     e.BuyerID,
			OrderID:     e.OrderID,
			OrderNumber: e.OrderNumber,
			Subject:     fmt.Sprintf("Commande %s annulée", e.OrderNumber),
			Data: map[string]string{
				"reason":          e.Reason,
				"previous_status": string(e.PreviousStatus),
				"total":           e.Total.StringFixed(pricing.Scale),
			},
		}
	default:
		h.logger.Error("unexpected event type",
			zap.Strings("expected", h.EventTypes()),
			zap.String("actual", event.EventType()),
		)
		return fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	n.ID = event.EventID()
	n.CreatedAt = event.OccurredAt()

	if err := h.notifier.Notify(ctx, n); err != nil {
		h.logger.Warn("buyer notification failed",
			zap.String("kind", n.Kind),
			zap.String("order_id", n.OrderID.String()),
			zap.String("order_number", n.OrderNumber),
			zap.Error(err),
		)
		return nil
	}

	h.logger.Info("buyer notified",
		zap.String("kind", n.Kind),
		zap.String("order_number", n.OrderNumber),
	)
	return nil
}

var _ shared.EventHandler = (*OrderNotificationHandler)(nil)
