package trade

import (
	"time"

	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Order creation ====================

// CreateOrderRequest is a checkout request. Either AddressID (a saved
// address of the buyer) or Address (typed at checkout) must be given.
type CreateOrderRequest struct {
	AddressID      *uuid.UUID          `json:"address_id"`
	Address        *AddressInput       `json:"address"`
	DeliveryModeID uuid.UUID           `json:"delivery_mode_id" binding:"required"`
	Lines          []CreateOrderLine   `json:"lines" binding:"required,min=1,max=100,dive"`
	PaymentMethod  trade.PaymentMethod `json:"payment_method"`
	Note           string              `json:"note" binding:"max=1000"`
	// IdempotencyKey is usually taken from the Idempotency-Key header
	IdempotencyKey string `json:"idempotency_key" binding:"max=128"`
}

// CreateOrderLine is one cart line, priced tax-inclusive as displayed to the buyer
type CreateOrderLine struct {
	ProductID          uuid.UUID       `json:"product_id" binding:"required"`
	VariantID          *uuid.UUID      `json:"variant_id"`
	Quantity           int64           `json:"quantity" binding:"required,min=1"`
	UnitPriceInclusive decimal.Decimal `json:"unit_price"`
}

// AddressInput is a free-text delivery address
type AddressInput struct {
	Street     string `json:"street" binding:"required,max=255"`
	City       string `json:"city" binding:"required,max=100"`
	PostalCode string `json:"postal_code" binding:"required,max=20"`
	Country    string `json:"country" binding:"max=100"`
}

func (a AddressInput) toDomain() trade.AddressInput {
	return trade.AddressInput{
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

// CreateOrderResult is returned by CreateOrder
type CreateOrderResult struct {
	OrderID     uuid.UUID         `json:"order_id"`
	OrderNumber string            `json:"order_number"`
	Status      trade.OrderStatus `json:"status"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	VAT         decimal.Decimal   `json:"vat"`
	DeliveryFee decimal.Decimal   `json:"delivery_fee"`
	Total       decimal.Decimal   `json:"total"`
	CreatedAt   time.Time         `json:"created_at"`
	// Replayed is true when an earlier order with the same idempotency key was returned
	Replayed bool `json:"replayed"`
}

// ToCreateOrderResult converts an order into a CreateOrderResult
func ToCreateOrderResult(o *trade.Order, replayed bool) *CreateOrderResult {
	return &CreateOrderResult{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		Subtotal:    o.Subtotal,
		VAT:         o.VAT,
		DeliveryFee: o.DeliveryFee,
		Total:       o.Total,
		CreatedAt:   o.CreatedAt,
		Replayed:    replayed,
	}
}

// ==================== Status changes ====================

// AdvanceStatusRequest moves an order forward
type AdvanceStatusRequest struct {
	Status         string `json:"status" binding:"required"`
	Description    string `json:"description" binding:"max=500"`
	TrackingNumber string `json:"tracking_number" binding:"max=100"`
}

// CancelOrderRequest cancels an order
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// StatusChangeResult is returned by AdvanceStatus and CancelOrder
type StatusChangeResult struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	PreviousStatus trade.OrderStatus `json:"previous_status"`
	Status         trade.OrderStatus `json:"status"`
	ChangedAt      time.Time         `json:"changed_at"`
	CancelReason   string            `json:"cancel_reason,omitempty"`
}

func toStatusChangeResult(o *trade.Order, previous trade.OrderStatus) *StatusChangeResult {
	return &StatusChangeResult{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		PreviousStatus: previous,
		Status:         o.Status,
		ChangedAt:      o.UpdatedAt,
		CancelReason:   o.CancelReason,
	}
}

// ==================== Queries ====================

// OrderResponse is the full order view
type OrderResponse struct {
	ID             uuid.UUID               `json:"id"`
	OrderNumber    string                  `json:"order_number"`
	BuyerID        uuid.UUID               `json:"buyer_id"`
	AddressID      uuid.UUID               `json:"address_id"`
	DeliveryModeID uuid.UUID               `json:"delivery_mode_id"`
	Status         trade.OrderStatus       `json:"status"`
	StatusLabel    string                  `json:"status_label"`
	Subtotal       decimal.Decimal         `json:"subtotal"`
	VAT            decimal.Decimal         `json:"vat"`
	DeliveryFee    decimal.Decimal         `json:"delivery_fee"`
	Total          decimal.Decimal         `json:"total"`
	PaymentMethod  trade.PaymentMethod     `json:"payment_method"`
	Note           string                  `json:"note,omitempty"`
	CancelledAt    *time.Time              `json:"cancelled_at,omitempty"`
	CancelReason   string                  `json:"cancel_reason,omitempty"`
	Lines          []OrderLineResponse     `json:"lines"`
	Tracking       []TrackingEventResponse `json:"tracking"`
	CreatedAt      time.Time               `json:"created_at"`
	UpdatedAt      time.Time               `json:"updated_at"`
}

// OrderLineResponse is an order line with the tax-inclusive price shown to buyers
type OrderLineResponse struct {
	ID                 uuid.UUID       `json:"id"`
	ProductID          uuid.UUID       `json:"product_id"`
	VariantID          *uuid.UUID      `json:"variant_id,omitempty"`
	Quantity           int64           `json:"quantity"`
	UnitPriceExclusive decimal.Decimal `json:"unit_price_exclusive"`
	UnitPriceInclusive decimal.Decimal `json:"unit_price_inclusive"`
	LineTotalExclusive decimal.Decimal `json:"line_total_exclusive"`
}

// TrackingEventResponse is one tracking history entry
type TrackingEventResponse struct {
	Status         string    `json:"status"`
	Description    string    `json:"description"`
	TrackingNumber string    `json:"tracking_number,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// OrderListItemResponse is the order summary used in lists
type OrderListItemResponse struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"order_number"`
	Status      trade.OrderStatus `json:"status"`
	Total       decimal.Decimal   `json:"total"`
	CreatedAt   time.Time         `json:"created_at"`
}

// AddressResponse is a saved buyer address
type AddressResponse struct {
	ID         uuid.UUID `json:"id"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
}

// ToOrderListItemResponse converts an order into its list view
func ToOrderListItemResponse(o *trade.Order) OrderListItemResponse {
	return OrderListItemResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Status:      o.Status,
		Total:       o.Total,
		CreatedAt:   o.CreatedAt,
	}
}

// ToAddressResponse converts an address into its response view
func ToAddressResponse(a *trade.Address) AddressResponse {
	return AddressResponse{
		ID:         a.ID,
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
	}
}
