package trade

import (
	"strings"
)

// OrderStatus represents the status of a buyer order
type OrderStatus string

const (
	OrderStatusValidated OrderStatus = "VALIDATED"
	OrderStatusPreparing OrderStatus = "PREPARING"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// position in the forward sequence; cancelled sits outside it
var statusRank = map[OrderStatus]int{
	OrderStatusValidated: 1,
	OrderStatusPreparing: 2,
	OrderStatusShipped:   3,
	OrderStatusDelivered: 4,
}

var statusLabels = map[OrderStatus]string{
	OrderStatusValidated: "Validated",
	OrderStatusPreparing: "Preparing",
	OrderStatusShipped:   "Shipped",
	OrderStatusDelivered: "Delivered",
	OrderStatusCancelled: "Cancelled",
}

// ParseOrderStatus accepts either the stored code ("SHIPPED") or the display
// label ("Shipped"), case-insensitively.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.IsValid() {
		return "", false
	}
	return status, true
}

// IsValid checks if the status is a valid OrderStatus
func (s OrderStatus) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// IsActive reports whether the status is one of the forward sequence states
func (s OrderStatus) IsActive() bool {
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether no further advance is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusDelivered
}

// CanAdvanceTo checks a forward move. Jumps are allowed (Validated straight to
// Shipped), moving backwards or staying put is not.
func (s OrderStatus) CanAdvanceTo(target OrderStatus) bool {
	if s.IsTerminal() || !target.IsActive() {
		return false
	}
	return statusRank[target] > statusRank[s]
}

// CanCancel reports whether the order may still be cancelled
func (s OrderStatus) CanCancel() bool {
	return s.IsActive()
}

// Label returns the human readable name used in tracking events
func (s OrderStatus) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// String returns the string representation of OrderStatus
func (s OrderStatus) String() string {
	return string(s)
}

// PaymentMethod records how the buyer intends to pay. No payment is taken here.
type PaymentMethod string

const (
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentMethodCard           PaymentMethod = "CARD"
	PaymentMethodBankTransfer   PaymentMethod = "BANK_TRANSFER"
)

// IsValid checks if the payment method is known
func (p PaymentMethod) IsValid() bool {
	switch p {
	case PaymentMethodCashOnDelivery, PaymentMethodCard, PaymentMethodBankTransfer:
		return true
	}
	return false
}
