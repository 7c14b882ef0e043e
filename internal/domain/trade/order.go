// Package trade holds the buyer order aggregate and its lifecycle rules.
package trade

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coopmarket/backend/internal/domain/pricing"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// MinCancelReasonLength is the minimum length of a trimmed cancellation reason
	MinCancelReasonLength = 10
	// MaxCancelReasonLength is the length a stored cancellation reason is cut to
	MaxCancelReasonLength = 500
	// MaxNoteLength bounds the free-text note a buyer can attach
	MaxNoteLength = 1000
	// MaxIdempotencyKeyLength matches the orders.idempotency_key column
	MaxIdempotencyKeyLength = 128
)

var (
	ErrOrderNotFound         = shared.NewDomainError(shared.KindNotFound, "ORDER_NOT_FOUND", "Order not found")
	ErrOrderAlreadyTerminal  = shared.NewConflictError("ORDER_ALREADY_TERMINAL", "Order is already in a terminal state")
	ErrOrderAlreadyCancelled = shared.NewConflictError("ORDER_ALREADY_CANCELLED", "Order is already cancelled")
	ErrInvalidTransition     = shared.NewConflictError("INVALID_TRANSITION", "Invalid status transition")
	ErrInvalidReason         = &shared.DomainError{
		Kind:    shared.KindValidation,
		Code:    "INVALID_REASON",
		Message: fmt.Sprintf("Cancellation reason must be at least %d characters", MinCancelReasonLength),
		Field:   "reason",
	}
	ErrUseCancel = &shared.DomainError{
		Kind:    shared.KindValidation,
		Code:    "INVALID_STATUS",
		Message: "Use the cancel operation to cancel an order",
		Field:   "status",
	}
	ErrUnknownStatus = &shared.DomainError{
		Kind:    shared.KindValidation,
		Code:    "INVALID_STATUS",
		Message: "Unknown order status",
		Field:   "status",
	}
)

// OrderLine is one product line of an order. Prices are stored tax-exclusive
// and lines never change after the order is created.
type OrderLine struct {
	ID                 uuid.UUID
	OrderID            uuid.UUID
	ProductID          uuid.UUID
	VariantID          *uuid.UUID
	Quantity           int64
	UnitPriceExclusive decimal.Decimal
	LineTotalExclusive decimal.Decimal
}

// LineInput is a priced cart line keyed to a product
type LineInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Priced    pricing.PricedLine
}

// NewOrderParams carries everything needed to place an order
type NewOrderParams struct {
	OrderNumber    string
	BuyerID        uuid.UUID
	Address        *Address
	DeliveryModeID uuid.UUID
	Lines          []LineInput
	Totals         pricing.OrderTotals
	PaymentMethod  PaymentMethod
	Note           string
	IdempotencyKey string
}

// Order is the aggregate root for a buyer order
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber    string
	BuyerID        uuid.UUID
	AddressID      uuid.UUID
	DeliveryModeID uuid.UUID
	Status         OrderStatus
	Subtotal       decimal.Decimal
	VAT            decimal.Decimal
	DeliveryFee    decimal.Decimal
	Total          decimal.Decimal
	PaymentMethod  PaymentMethod
	Note           string
	IdempotencyKey *string
	CancelledAt    *time.Time
	CancelReason   string
	Lines          []OrderLine
	Tracking       []TrackingEvent

	newTracking []TrackingEvent
}

// NewOrder creates a validated order with its lines and the initial
// "Confirmed" tracking event, and records an OrderConfirmed event.
func NewOrder(p NewOrderParams) (*Order, error) {
	if p.BuyerID == uuid.Nil {
		return nil, shared.NewValidationError("buyer_id", "buyer is required")
	}
	if p.Address == nil {
		return nil, shared.NewValidationError("address", "address is required")
	}
	if p.DeliveryModeID == uuid.Nil {
		return nil, shared.NewValidationError("delivery_mode_id", "delivery mode is required")
	}
	if !IsOrderNumber(p.OrderNumber) {
		return nil, shared.NewValidationError("order_number", fmt.Sprintf("malformed order number %q", p.OrderNumber))
	}
	if len(p.Lines) == 0 {
		return nil, shared.NewValidationError("lines", "order must contain at least one line")
	}
	if utf8.RuneCountInString(p.Note) > MaxNoteLength {
		return nil, shared.NewValidationError("note", fmt.Sprintf("note must be at most %d characters", MaxNoteLength))
	}
	payment := p.PaymentMethod
	if payment == "" {
		payment = PaymentMethodCashOnDelivery
	}
	if !payment.IsValid() {
		return nil, shared.NewValidationError("payment_method", fmt.Sprintf("unknown payment method %q", p.PaymentMethod))
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       p.OrderNumber,
		BuyerID:           p.BuyerID,
		AddressID:         p.Address.ID,
		DeliveryModeID:    p.DeliveryModeID,
		Status:            OrderStatusValidated,
		Subtotal:          p.Totals.Subtotal,
		VAT:               p.Totals.VAT,
		DeliveryFee:       p.Totals.DeliveryFee,
		Total:             p.Totals.Total,
		PaymentMethod:     payment,
		Note:              strings.TrimSpace(p.Note),
	}
	if key := strings.TrimSpace(p.IdempotencyKey); key != "" {
		o.IdempotencyKey = &key
	}

	lineSum := decimal.Zero
	for _, in := range p.Lines {
		if in.ProductID == uuid.Nil {
			return nil, shared.NewValidationError("lines", "product is required")
		}
		if in.Priced.Quantity <= 0 {
			return nil, shared.NewValidationError("lines", "quantity must be positive")
		}
		o.Lines = append(o.Lines, OrderLine{
			ID:                 uuid.New(),
			OrderID:            o.ID,
			ProductID:          in.ProductID,
			VariantID:          in.VariantID,
			Quantity:           in.Priced.Quantity,
			UnitPriceExclusive: in.Priced.UnitPriceExclusive,
			LineTotalExclusive: in.Priced.LineTotalExclusive,
		})
		lineSum = lineSum.Add(in.Priced.LineTotalExclusive)
	}
	if !lineSum.Round(pricing.Scale).Equal(o.Subtotal) {
		return nil, shared.ErrInvalidInput.WithMessage("line totals %s do not add up to subtotal %s", lineSum, o.Subtotal)
	}
	if !o.Total.Equal(pricing.OrderTotal(o.Subtotal, o.VAT, o.DeliveryFee)) {
		return nil, shared.ErrInvalidInput.WithMessage("total %s does not match subtotal, VAT and delivery fee", o.Total)
	}

	o.appendTracking(TrackingLabelConfirmed, fmt.Sprintf("Order %s confirmed", o.OrderNumber), "", o.CreatedAt)
	o.AddDomainEvent(NewOrderConfirmedEvent(o, p.Address))

	return o, nil
}

// Advance moves the order forward to target. Cancellation has its own
// operation and is rejected here.
func (o *Order) Advance(target OrderStatus, description, trackingNumber string) error {
	if target == OrderStatusCancelled {
		return ErrUseCancel
	}
	if !target.IsActive() {
		return ErrUnknownStatus.WithMessage("Unknown order status %q", target)
	}
	if o.Status.IsTerminal() {
		return ErrOrderAlreadyTerminal.WithMessage("Order %s is already %s", o.OrderNumber, o.Status.Label())
	}
	if !o.Status.CanAdvanceTo(target) {
		return ErrInvalidTransition.WithMessage("Cannot move order %s from %s to %s", o.OrderNumber, o.Status.Label(), target.Label())
	}

	now := time.Now().UTC()
	previous := o.Status
	o.Status = target
	o.Touch(now)

	if strings.TrimSpace(description) == "" {
		description = fmt.Sprintf("Status changed from %s to %s", previous.Label(), target.Label())
	}
	o.appendTracking(target.Label(), description, strings.TrimSpace(trackingNumber), now)
	o.AddDomainEvent(NewOrderStatusChangedEvent(o, previous))

	return nil
}

// Cancel moves the order to Cancelled. Cancelling releases the order's stock
// since availability ignores cancelled orders.
func (o *Order) Cancel(reason string) error {
	if o.Status == OrderStatusCancelled {
		return ErrOrderAlreadyCancelled.WithMessage("Order %s is already cancelled", o.OrderNumber)
	}
	if !o.Status.CanCancel() {
		return ErrInvalidTransition.WithMessage("Cannot cancel order %s in %s status", o.OrderNumber, o.Status.Label())
	}
	trimmed, err := NormalizeCancelReason(reason)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	previous := o.Status
	o.Status = OrderStatusCancelled
	o.CancelledAt = &now
	o.CancelReason = trimmed
	o.Touch(now)

	o.appendTracking(OrderStatusCancelled.Label(), trimmed, "", now)
	o.AddDomainEvent(NewOrderCancelledEvent(o, previous))

	return nil
}

// NormalizeCancelReason trims the reason, enforces the minimum length and
// truncates it to the stored maximum.
func NormalizeCancelReason(reason string) (string, error) {
	trimmed := strings.TrimSpace(reason)
	if utf8.RuneCountInString(trimmed) < MinCancelReasonLength {
		return "", ErrInvalidReason
	}
	if utf8.RuneCountInString(trimmed) > MaxCancelReasonLength {
		trimmed = string([]rune(trimmed)[:MaxCancelReasonLength])
	}
	return trimmed, nil
}

func (o *Order) appendTracking(status, description, trackingNumber string, at time.Time) {
	ev := NewTrackingEvent(o.ID, status, description, trackingNumber, at)
	o.Tracking = append(o.Tracking, ev)
	o.newTracking = append(o.newTracking, ev)
}

// NewTrackingEvents returns tracking events appended since the order was loaded
func (o *Order) NewTrackingEvents() []TrackingEvent {
	return o.newTracking
}

// ClearNewTrackingEvents forgets appended tracking events once persisted
func (o *Order) ClearNewTrackingEvents() {
	o.newTracking = nil
}

// IsCancelled returns true if order is cancelled
func (o *Order) IsCancelled() bool {
	return o.Status == OrderStatusCancelled
}

// TotalQuantity returns the number of units across all lines
func (o *Order) TotalQuantity() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.Quantity
	}
	return total
}

// HasIdempotencyKey reports whether the order was created with the given key
func (o *Order) HasIdempotencyKey(key string) bool {
	return o.IdempotencyKey != nil && *o.IdempotencyKey == key
}
