package handler

import (
	"context"
	"net/http"

	deliveryapp "github.com/coopmarket/backend/internal/application/delivery"
	inventoryapp "github.com/coopmarket/backend/internal/application/inventory"
	"github.com/coopmarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AvailabilityService reports remaining stock
type AvailabilityService interface {
	GetAvailability(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*inventoryapp.AvailabilityResult, error)
}

// DeliveryService quotes delivery
type DeliveryService interface {
	ComputeDeliveryQuote(ctx context.Context, modeID uuid.UUID, city string) (*deliveryapp.DeliveryQuote, error)
	ListDeliveryModes(ctx context.Context) ([]deliveryapp.ModeResponse, error)
}

// CatalogHandler answers the storefront questions asked before checkout
type CatalogHandler struct {
	BaseHandler
	availability AvailabilityService
	delivery     DeliveryService
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(availability AvailabilityService, delivery DeliveryService) *CatalogHandler {
	return &CatalogHandler{availability: availability, delivery: delivery}
}

// GetAvailability godoc
// @Summary      Remaining orderable quantity of a product or variant
// @Tags         inventory
// @Param        product_id query string true "Product ID" format(uuid)
// @Param        variant_id query string false "Variant ID" format(uuid)
// @Router       /inventory/availability [get]
func (h *CatalogHandler) GetAvailability(c *gin.Context) {
	var q inventoryapp.AvailabilityQuery
	if !h.bindQuery(c, &q) {
		return
	}
	productID, err := uuid.Parse(q.ProductID)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid product_id")
		return
	}
	var variantID *uuid.UUID
	if q.VariantID != "" {
		id, err := uuid.Parse(q.VariantID)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid variant_id")
			return
		}
		variantID = &id
	}

	result, err := h.availability.GetAvailability(c.Request.Context(), productID, variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// GetDeliveryQuote godoc
// @Summary      Delivery price and lead time of a mode for a city
// @Tags         delivery
// @Param        mode_id query string true "Delivery mode ID" format(uuid)
// @Param        city query string true "Destination city"
// @Router       /delivery/quote [get]
func (h *CatalogHandler) GetDeliveryQuote(c *gin.Context) {
	var q deliveryapp.QuoteQuery
	if !h.bindQuery(c, &q) {
		return
	}
	modeID, err := uuid.Parse(q.ModeID)
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid mode_id")
		return
	}

	quote, err := h.delivery.ComputeDeliveryQuote(c.Request.Context(), modeID, q.City)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, quote)
}

// ListDeliveryModes godoc
// @Summary      Active delivery modes
// @Tags         delivery
// @Router       /delivery/modes [get]
func (h *CatalogHandler) ListDeliveryModes(c *gin.Context) {
	modes, err := h.delivery.ListDeliveryModes(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, modes)
}
