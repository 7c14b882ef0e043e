// Package delivery exposes delivery quotes and the list of delivery modes.
package delivery

import (
	"context"
	"strings"

	"github.com/coopmarket/backend/internal/domain/delivery"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// QuoteQuery is the binding for the quote endpoint
type QuoteQuery struct {
	ModeID string `form:"mode_id" binding:"required,uuid"`
	City   string `form:"city" binding:"required,max=100"`
}

// DeliveryQuote is the price and lead time for a mode delivering to a city
type DeliveryQuote struct {
	ModeID   uuid.UUID       `json:"mode_id"`
	ModeName string          `json:"mode_name"`
	ZoneName string          `json:"zone_name"`
	Price    decimal.Decimal `json:"price"`
	MinDays  int             `json:"min_days"`
	MaxDays  int             `json:"max_days"`
	Text     string          `json:"text"`
}

// ModeResponse is an active delivery mode
type ModeResponse struct {
	ID         uuid.UUID       `json:"id"`
	Name       string          `json:"name"`
	BaseTariff decimal.Decimal `json:"base_tariff"`
	Tier       delivery.Tier   `json:"tier"`
}

// DeliveryService answers delivery questions outside of checkout
type DeliveryService struct {
	modes    delivery.ModeRepository
	resolver *delivery.Resolver
}

// NewDeliveryService creates a new DeliveryService
func NewDeliveryService(modes delivery.ModeRepository, zones delivery.ZoneRepository) *DeliveryService {
	return &DeliveryService{
		modes:    modes,
		resolver: delivery.NewResolver(modes, zones),
	}
}

// ComputeDeliveryQuote prices delivery of the mode to the city
func (s *DeliveryService) ComputeDeliveryQuote(ctx context.Context, modeID uuid.UUID, city string) (*DeliveryQuote, error) {
	if strings.TrimSpace(city) == "" {
		return nil, shared.NewValidationError("city", "city is required")
	}
	q, err := s.resolver.Quote(ctx, modeID, city)
	if err != nil {
		return nil, err
	}
	return &DeliveryQuote{
		ModeID:   q.ModeID,
		ModeName: q.ModeName,
		ZoneName: q.ZoneName,
		Price:    q.Price,
		MinDays:  q.Delay.MinDays,
		MaxDays:  q.Delay.MaxDays,
		Text:     q.Delay.Text,
	}, nil
}

// ListDeliveryModes returns the active delivery modes
func (s *DeliveryService) ListDeliveryModes(ctx context.Context) ([]ModeResponse, error) {
	modes, err := s.modes.FindActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]ModeResponse, len(modes))
	for i, m := range modes {
		out[i] = ModeResponse{ID: m.ID, Name: m.Name, BaseTariff: m.BaseTariff, Tier: m.Tier}
	}
	return out, nil
}
