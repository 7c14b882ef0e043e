package trade

import (
	"time"

	"github.com/google/uuid"
)

// TrackingLabelConfirmed is the label of the event written when an order is placed
const TrackingLabelConfirmed = "Confirmed"

// TrackingEvent is one entry of an order's append-only delivery history
type TrackingEvent struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	Status         string
	Description    string
	TrackingNumber string
	OccurredAt     time.Time
}

// NewTrackingEvent creates a tracking event for an order
func NewTrackingEvent(orderID uuid.UUID, status, description, trackingNumber string, at time.Time) TrackingEvent {
	return TrackingEvent{
		ID:             uuid.New(),
		OrderID:        orderID,
		Status:         status,
		Description:    description,
		TrackingNumber: trackingNumber,
		OccurredAt:     at,
	}
}
