package models

import (
	"time"

	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root
type OrderModel struct {
	AggregateModel
	OrderNumber    string              `gorm:"type:varchar(20);not null;uniqueIndex:idx_orders_order_number"`
	BuyerID        uuid.UUID           `gorm:"type:uuid;not null;index"`
	AddressID      uuid.UUID           `gorm:"type:uuid;not null"`
	DeliveryModeID uuid.UUID           `gorm:"type:uuid;not null"`
	Status         trade.OrderStatus   `gorm:"type:varchar(20);not null;default:'VALIDATED';index"`
	Subtotal       decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	VAT            decimal.Decimal     `gorm:"column:vat;type:decimal(18,2);not null"`
	DeliveryFee    decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	Total          decimal.Decimal     `gorm:"type:decimal(18,2);not null"`
	PaymentMethod  trade.PaymentMethod `gorm:"type:varchar(20);not null"`
	Note           string              `gorm:"type:text"`
	IdempotencyKey *string             `gorm:"type:varchar(128);uniqueIndex:idx_orders_idempotency_key"`
	CancelledAt    *time.Time
	CancelReason   string               `gorm:"type:varchar(500)"`
	Lines          []OrderLineModel     `gorm:"foreignKey:OrderID;references:ID"`
	Tracking       []TrackingEventModel `gorm:"foreignKey:OrderID;references:ID"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order
func (m *OrderModel) ToDomain() *trade.Order {
	o := &trade.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		BuyerID:           m.BuyerID,
		AddressID:         m.AddressID,
		DeliveryModeID:    m.DeliveryModeID,
		Status:            m.Status,
		Subtotal:          m.Subtotal,
		VAT:               m.VAT,
		DeliveryFee:       m.DeliveryFee,
		Total:             m.Total,
		PaymentMethod:     m.PaymentMethod,
		Note:              m.Note,
		IdempotencyKey:    m.IdempotencyKey,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
	}
	if len(m.Lines) > 0 {
		o.Lines = make([]trade.OrderLine, len(m.Lines))
		for i := range m.Lines {
			o.Lines[i] = m.Lines[i].ToDomain()
		}
	}
	if len(m.Tracking) > 0 {
		o.Tracking = make([]trade.TrackingEvent, len(m.Tracking))
		for i := range m.Tracking {
			o.Tracking[i] = m.Tracking[i].ToDomain()
		}
	}
	return o
}

// FromDomain populates the header columns from a domain Order. Lines and
// tracking events are written by the repository.
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.BuyerID = o.BuyerID
	m.AddressID = o.AddressID
	m.DeliveryModeID = o.DeliveryModeID
	m.Status = o.Status
	m.Subtotal = o.Subtotal
	m.VAT = o.VAT
	m.DeliveryFee = o.DeliveryFee
	m.Total = o.Total
	m.PaymentMethod = o.PaymentMethod
	m.Note = o.Note
	m.IdempotencyKey = o.IdempotencyKey
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason
}

// OrderModelFromDomain creates a new persistence model from a domain Order
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderLineModel is the persistence model for an order line
type OrderLineModel struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID            uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID          uuid.UUID       `gorm:"type:uuid;not null;index:idx_order_lines_product_variant,priority:1"`
	VariantID          *uuid.UUID      `gorm:"type:uuid;index:idx_order_lines_product_variant,priority:2"`
	Quantity           int64           `gorm:"not null"`
	UnitPriceExclusive decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	LineTotalExclusive decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

// TableName returns the table name for GORM
func (OrderLineModel) TableName() string {
	return "order_lines"
}

// ToDomain converts the persistence model to a domain OrderLine
func (m *OrderLineModel) ToDomain() trade.OrderLine {
	return trade.OrderLine{
		ID:                 m.ID,
		OrderID:            m.OrderID,
		ProductID:          m.ProductID,
		VariantID:          m.VariantID,
		Quantity:           m.Quantity,
		UnitPriceExclusive: m.UnitPriceExclusive,
		LineTotalExclusive: m.LineTotalExclusive,
	}
}

// OrderLineModelFromDomain creates a persistence model from a domain OrderLine
func OrderLineModelFromDomain(l trade.OrderLine) OrderLineModel {
	return OrderLineModel{
		ID:                 l.ID,
		OrderID:            l.OrderID,
		ProductID:          l.ProductID,
		VariantID:          l.VariantID,
		Quantity:           l.Quantity,
		UnitPriceExclusive: l.UnitPriceExclusive,
		LineTotalExclusive: l.LineTotalExclusive,
	}
}

// TrackingEventModel is the persistence model for an order tracking event
type TrackingEventModel struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index:idx_tracking_order_occurred,priority:1"`
	Status         string    `gorm:"type:varchar(30);not null"`
	Description    string    `gorm:"type:text"`
	TrackingNumber string    `gorm:"type:varchar(100)"`
	OccurredAt     time.Time `gorm:"not null;index:idx_tracking_order_occurred,priority:2"`
}

// TableName returns the table name for GORM
func (TrackingEventModel) TableName() string {
	return "order_tracking_events"
}

// ToDomain converts the persistence model to a domain TrackingEvent
func (m *TrackingEventModel) ToDomain() trade.TrackingEvent {
	return trade.TrackingEvent{
		ID:             m.ID,
		OrderID:        m.OrderID,
		Status:         m.Status,
		Description:    m.Description,
		TrackingNumber: m.TrackingNumber,
		OccurredAt:     m.OccurredAt,
	}
}

// TrackingEventModelFromDomain creates a persistence model from a domain TrackingEvent
func TrackingEventModelFromDomain(e trade.TrackingEvent) TrackingEventModel {
	return TrackingEventModel{
		ID:             e.ID,
		OrderID:        e.OrderID,
		Status:         e.Status,
		Description:    e.Description,
		TrackingNumber: e.TrackingNumber,
		OccurredAt:     e.OccurredAt,
	}
}

// AddressModel is the persistence model for a buyer address. The
// PostgreSQL schema adds a partial unique index on (buyer_id) WHERE is_default.
type AddressModel struct {
	BaseModel
	BuyerID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Street     string    `gorm:"type:varchar(255);not null"`
	City       string    `gorm:"type:varchar(100);not null"`
	PostalCode string    `gorm:"type:varchar(20);not null"`
	Country    string    `gorm:"type:varchar(100);not null"`
	IsDefault  bool      `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (AddressModel) TableName() string {
	return "addresses"
}

// ToDomain converts the persistence model to a domain Address
func (m *AddressModel) ToDomain() *trade.Address {
	return &trade.Address{
		ID:         m.ID,
		BuyerID:    m.BuyerID,
		Street:     m.Street,
		City:       m.City,
		PostalCode: m.PostalCode,
		Country:    m.Country,
		IsDefault:  m.IsDefault,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

// AddressModelFromDomain creates a persistence model from a domain Address
func AddressModelFromDomain(a *trade.Address) *AddressModel {
	return &AddressModel{
		BaseModel: BaseModel{
			ID:        a.ID,
			CreatedAt: a.CreatedAt,
			UpdatedAt: a.UpdatedAt,
		},
		BuyerID:    a.BuyerID,
		Street:     a.Street,
		City:       a.City,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		IsDefault:  a.IsDefault,
	}
}
