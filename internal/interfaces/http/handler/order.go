package handler

import (
	"context"
	"net/http"
	"unicode/utf8"

	tradeapp "github.com/coopmarket/backend/internal/application/trade"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/coopmarket/backend/internal/infrastructure/auth"
	"github.com/coopmarket/backend/internal/infrastructure/logger"
	"github.com/coopmarket/backend/internal/interfaces/http/dto"
	"github.com/coopmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderService places and reads orders
type OrderService interface {
	CreateOrder(ctx context.Context, buyerID uuid.UUID, req tradeapp.CreateOrderRequest) (*tradeapp.CreateOrderResult, error)
	GetOrder(ctx context.Context, orderID uuid.UUID) (*tradeapp.OrderResponse, error)
	GetOrderByNumber(ctx context.Context, orderNumber string) (*tradeapp.OrderResponse, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, page, pageSize int) (*shared.Paginated[tradeapp.OrderListItemResponse], error)
	ListAddresses(ctx context.Context, buyerID uuid.UUID) ([]tradeapp.AddressResponse, error)
}

// OrderStatusService moves orders through their lifecycle
type OrderStatusService interface {
	AdvanceStatus(ctx context.Context, orderID uuid.UUID, req tradeapp.AdvanceStatusRequest) (*tradeapp.StatusChangeResult, error)
	CancelOrder(ctx context.Context, orderID uuid.UUID, req tradeapp.CancelOrderRequest) (*tradeapp.StatusChangeResult, error)
}

// OrderHandler handles order HTTP requests
type OrderHandler struct {
	BaseHandler
	orders OrderService
	status OrderStatusService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orders OrderService, status OrderStatusService) *OrderHandler {
	return &OrderHandler{orders: orders, status: status}
}

// CreateOrder godoc
// @Summary      Place an order
// @Description  Prices the cart, checks stock and persists the order. Retrying with the same Idempotency-Key returns the first order with 200.
// @Tags         orders
// @Param        Idempotency-Key header string false "Client retry key"
// @Success      201 {object} dto.Response
// @Failure      400,401,409,503 {object} dto.Response
// @Router       /orders [post]
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	buyerID, ok := h.buyerID(c)
	if !ok {
		return
	}
	var req tradeapp.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}

	if key := c.GetHeader(middleware.IdempotencyKeyHeader); key != "" {
		if req.IdempotencyKey != "" && req.IdempotencyKey != key {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Idempotency-Key header and idempotency_key differ")
			return
		}
		if utf8.RuneCountInString(key) > trade.MaxIdempotencyKeyLength {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Idempotency-Key is too long")
			return
		}
		req.IdempotencyKey = key
	}

	result, err := h.orders.CreateOrder(c.Request.Context(), buyerID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Replayed {
		h.Success(c, result)
		return
	}
	c.Header("Location", "/api/v1/orders/"+result.OrderID.String())
	h.Created(c, result)
}

// GetOrder godoc
// @Summary      Get an order
// @Tags         orders
// @Router       /orders/{id} [get]
func (h *OrderHandler) GetOrder(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	order, err := h.orders.GetOrder(c.Request.Context(), id)
	h.respondOrder(c, order, err)
}

// GetOrderByNumber godoc
// @Summary      Get an order by its public number
// @Tags         orders
// @Router       /orders/by-number/{number} [get]
func (h *OrderHandler) GetOrderByNumber(c *gin.Context) {
	number := c.Param("number")
	if number == "" || len(number) > 32 {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "Invalid order number")
		return
	}
	order, err := h.orders.GetOrderByNumber(c.Request.Context(), number)
	h.respondOrder(c, order, err)
}

// orderID parses the :id parameter and tags the request logger and context
// with it, so SQL and service logs carry the order
func (h *OrderHandler) orderID(c *gin.Context) (uuid.UUID, bool) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return uuid.Nil, false
	}
	ctx, reqLogger := logger.WithOrderID(c.Request.Context(), logger.GetGinLogger(c), id.String())
	c.Request = c.Request.WithContext(ctx)
	logger.SetGinLogger(c, reqLogger)
	return id, true
}

// respondOrder hides orders of other buyers behind a 404 unless the caller
// is an admin.
func (h *OrderHandler) respondOrder(c *gin.Context, order *tradeapp.OrderResponse, err error) {
	if err != nil {
		h.HandleError(c, err)
		return
	}
	buyerID, _ := middleware.GetBuyerID(c)
	claims := middleware.GetClaims(c)
	if order.BuyerID != buyerID && (claims == nil || !claims.HasRole(auth.RoleAdmin)) {
		h.HandleError(c, shared.NewNotFoundError("order", c.Param("id")+c.Param("number")))
		return
	}
	h.Success(c, order)
}

// ListOrders godoc
// @Summary      List the caller's orders, newest first
// @Tags         orders
// @Param        page query int false "Page number" default(1)
// @Param        page_size query int false "Items per page" default(20) maximum(100)
// @Router       /orders [get]
func (h *OrderHandler) ListOrders(c *gin.Context) {
	buyerID, ok := h.buyerID(c)
	if !ok {
		return
	}
	var page dto.PageRequest
	if !h.bindQuery(c, &page) {
		return
	}
	page = page.Normalize()

	result, err := h.orders.ListBuyerOrders(c.Request.Context(), buyerID, page.Page, page.PageSize)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, result.Items, result.Total, result.Page, result.PageSize)
}

// AdvanceStatus godoc
// @Summary      Move an order to its next status
// @Tags         orders
// @Security     BearerAuth
// @Router       /orders/{id}/advance [post]
func (h *OrderHandler) AdvanceStatus(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	var req tradeapp.AdvanceStatusRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.status.AdvanceStatus(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CancelOrder godoc
// @Summary      Cancel an order
// @Description  The reason must be at least 10 characters once trimmed
// @Tags         orders
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [post]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	id, ok := h.orderID(c)
	if !ok {
		return
	}
	var req tradeapp.CancelOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	result, err := h.status.CancelOrder(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListAddresses godoc
// @Summary      List the caller's saved delivery addresses
// @Tags         addresses
// @Router       /addresses [get]
func (h *OrderHandler) ListAddresses(c *gin.Context) {
	buyerID, ok := h.buyerID(c)
	if !ok {
		return
	}
	addresses, err := h.orders.ListAddresses(c.Request.Context(), buyerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, addresses)
}
