package trade

import (
	"time"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderConfirmed     = "OrderConfirmed"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
	EventTypeOrderCancelled     = "OrderCancelled"
)

// AddressInfo is the address snapshot carried by events
type AddressInfo struct {
	AddressID  uuid.UUID `json:"address_id"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
}

// OrderLineInfo represents line information for events
type OrderLineInfo struct {
	LineID             uuid.UUID       `json:"line_id"`
	ProductID          uuid.UUID       `json:"product_id"`
	VariantID          *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity           int64           `json:"quantity"`
	UnitPriceExclusive decimal.Decimal `json:"unit_price_exclusive"`
	LineTotalExclusive decimal.Decimal `json:"line_total_exclusive"`
}

// OrderConfirmedEvent carries the full priced order graph so that document
// and email collaborators can render a confirmation without reading storage.
type OrderConfirmedEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	BuyerID        uuid.UUID       `json:"buyer_id"`
	Address        AddressInfo     `json:"address"`
	DeliveryModeID uuid.UUID       `json:"delivery_mode_id"`
	Lines          []OrderLineInfo `json:"lines"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	VAT            decimal.Decimal `json:"vat"`
	DeliveryFee    decimal.Decimal `json:"delivery_fee"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  PaymentMethod   `json:"payment_method"`
	Note           string          `json:"note,omitempty"`
	PlacedAt       time.Time       `json:"placed_at"`
}

// NewOrderConfirmedEvent creates a new OrderConfirmedEvent
func NewOrderConfirmedEvent(order *Order, address *Address) *OrderConfirmedEvent {
	lines := make([]OrderLineInfo, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = OrderLineInfo{
			LineID:             l.ID,
			ProductID:          l.ProductID,
			VariantID:          l.VariantID,
			Quantity:           l.Quantity,
			UnitPriceExclusive: l.UnitPriceExclusive,
			LineTotalExclusive: l.LineTotalExclusive,
		}
	}
	return &OrderConfirmedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderConfirmed, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		BuyerID:         order.BuyerID,
		Address: AddressInfo{
			AddressID:  address.ID,
			Street:     address.Street,
			City:       address.City,
			PostalCode: address.PostalCode,
			Country:    address.Country,
		},
		DeliveryModeID: order.DeliveryModeID,
		Lines:          lines,
		Subtotal:       order.Subtotal,
		VAT:            order.VAT,
		DeliveryFee:    order.DeliveryFee,
		Total:          order.Total,
		PaymentMethod:  order.PaymentMethod,
		Note:           order.Note,
		PlacedAt:       order.CreatedAt,
	}
}

// EventType returns the event type name
func (e *OrderConfirmedEvent) EventType() string {
	return EventTypeOrderConfirmed
}

// OrderStatusChangedEvent is raised when an order advances
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	BuyerID     uuid.UUID   `json:"buyer_id"`
	FromStatus  OrderStatus `json:"from_status"`
	ToStatus    OrderStatus `json:"to_status"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(order *Order, from OrderStatus) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		BuyerID:         order.BuyerID,
		FromStatus:      from,
		ToStatus:        order.Status,
	}
}

// EventType returns the event type name
func (e *OrderStatusChangedEvent) EventType() string {
	return EventTypeOrderStatusChanged
}

// OrderCancelledEvent is raised when an order is cancelled. The buyer
// notification collaborator consumes it.
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID        uuid.UUID       `json:"order_id"`
	OrderNumber    string          `json:"order_number"`
	BuyerID        uuid.UUID       `json:"buyer_id"`
	PreviousStatus OrderStatus     `json:"previous_status"`
	Reason         string          `json:"reason"`
	Total          decimal.Decimal `json:"total"`
	CancelledAt    time.Time       `json:"cancelled_at"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(order *Order, previous OrderStatus) *OrderCancelledEvent {
	var cancelledAt time.Time
	if order.CancelledAt != nil {
		cancelledAt = *order.CancelledAt
	}
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, order.ID),
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		BuyerID:         order.BuyerID,
		PreviousStatus:  previous,
		Reason:          order.CancelReason,
		Total:           order.Total,
		CancelledAt:     cancelledAt,
	}
}

// EventType returns the event type name
func (e *OrderCancelledEvent) EventType() string {
	return EventTypeOrderCancelled
}
