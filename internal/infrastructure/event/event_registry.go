package event

import "github.com/coopmarket/backend/internal/domain/trade"

// RegisterOrderEvents registers the order events written to the outbox
func RegisterOrderEvents(s *EventSerializer) {
	s.Register(trade.EventTypeOrderConfirmed, &trade.OrderConfirmedEvent{})
	s.Register(trade.EventTypeOrderStatusChanged, &trade.OrderStatusChangedEvent{})
	s.Register(trade.EventTypeOrderCancelled, &trade.OrderCancelledEvent{})
}
