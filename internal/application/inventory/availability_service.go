// Package inventory answers stock availability questions for the storefront.
package inventory

import (
	"context"

	"github.com/coopmarket/backend/internal/domain/inventory"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AvailabilityResult is the remaining sellable quantity of a product or variant
type AvailabilityResult struct {
	ProductID uuid.UUID  `json:"product_id"`
	VariantID *uuid.UUID `json:"variant_id,omitempty"`
	Available int64      `json:"available"`
	Orderable bool       `json:"orderable"`
}

// AvailabilityQuery is the binding for the availability endpoint
type AvailabilityQuery struct {
	ProductID string `form:"product_id" binding:"required,uuid"`
	VariantID string `form:"variant_id" binding:"omitempty,uuid"`
}

// AvailabilityService computes availability from live order lines
type AvailabilityService struct {
	resolver *inventory.AvailabilityResolver
	logger   *zap.Logger
}

// NewAvailabilityService creates a new AvailabilityService
func NewAvailabilityService(reader inventory.StockReader, logger *zap.Logger) *AvailabilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{
		resolver: inventory.NewAvailabilityResolver(reader),
		logger:   logger,
	}
}

// GetAvailability returns how many units of the product (or one of its
// variants) can still be ordered. The value is negative when orders raced
// for the last units.
func (s *AvailabilityService) GetAvailability(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*AvailabilityResult, error) {
	key := inventory.NewStockKey(productID, variantID)
	available, err := s.resolver.Available(ctx, key)
	if err != nil {
		return nil, err
	}
	if available < 0 {
		s.logger.Warn("negative availability",
			zap.String("key", key.String()),
			zap.Int64("available", available),
		)
	}
	return &AvailabilityResult{
		ProductID: productID,
		VariantID: key.VariantPtr(),
		Available: available,
		Orderable: available > 0,
	}, nil
}
