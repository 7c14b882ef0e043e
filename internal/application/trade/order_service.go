// Package trade contains the order use cases: checkout, status changes and
// the buyer-facing order queries.
package trade

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/coopmarket/backend/internal/domain/delivery"
	"github.com/coopmarket/backend/internal/domain/inventory"
	"github.com/coopmarket/backend/internal/domain/pricing"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultOrderNumberAttempts is how many fresh order numbers CreateOrder tries
// before giving up on unique violations
const DefaultOrderNumberAttempts = 3

// CatalogPriceReader returns the current tax-exclusive catalog price of
// products and variants. Keys that no longer exist are absent from the map.
type CatalogPriceReader interface {
	CurrentPrices(ctx context.Context, keys []inventory.StockKey) (map[inventory.StockKey]decimal.Decimal, error)
}

// OrderServiceConfig tunes the order service
type OrderServiceConfig struct {
	OperationTimeout    time.Duration
	OrderNumberAttempts int
}

// OrderService places orders and answers order queries
type OrderService struct {
	orderRepo   trade.OrderRepository
	addressRepo trade.AddressRepository
	prices      CatalogPriceReader
	txScope     TransactionScope
	engine      *pricing.Engine
	numbers     trade.OrderNumberGenerator
	metrics     OrderMetrics
	logger      *zap.Logger
	cfg         OrderServiceConfig
}

// NewOrderService creates a new OrderService
func NewOrderService(
	orderRepo trade.OrderRepository,
	addressRepo trade.AddressRepository,
	prices CatalogPriceReader,
	txScope TransactionScope,
	engine *pricing.Engine,
	cfg OrderServiceConfig,
	logger *zap.Logger,
) *OrderService {
	if cfg.OperationTimeout <= 0 {
		cfg.OperationTimeout = DefaultOperationTimeout
	}
	if cfg.OrderNumberAttempts <= 0 {
		cfg.OrderNumberAttempts = DefaultOrderNumberAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		orderRepo:   orderRepo,
		addressRepo: addressRepo,
		prices:      prices,
		txScope:     txScope,
		engine:      engine,
		numbers:     trade.RandomOrderNumberGenerator{},
		metrics:     noopOrderMetrics{},
		logger:      logger,
		cfg:         cfg,
	}
}

// SetOrderNumberGenerator replaces the random order number generator
func (s *OrderService) SetOrderNumberGenerator(gen trade.OrderNumberGenerator) {
	s.numbers = gen
}

// SetMetrics sets the business metrics recorder
func (s *OrderService) SetMetrics(m OrderMetrics) {
	if m != nil {
		s.metrics = m
	}
}

// CreateOrder places an order for buyerID. Address selection, the stock
// check, pricing, the delivery fee, the order graph and its outbox event are
// committed together or not at all.
func (s *OrderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, req CreateOrderRequest) (*CreateOrderResult, error) {
	ctx, cancel := withDeadline(ctx, s.cfg.OperationTimeout)
	defer cancel()

	result, err := s.createOrder(ctx, buyerID, req)
	if err != nil {
		err = mapDeadline(ctx, err)
		s.metrics.RecordOrderFailed(ctx, errorCode(err))
		return nil, err
	}
	s.metrics.RecordOrderCreated(ctx, result.Total, len(req.Lines), result.Replayed)
	return result, nil
}

func (s *OrderService) createOrder(ctx context.Context, buyerID uuid.UUID, req CreateOrderRequest) (*CreateOrderResult, error) {
	if err := validateCreateOrder(buyerID, req); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key != "" {
		existing, err := s.replay(ctx, buyerID, key)
		if err != nil || existing != nil {
			return existing, err
		}
	}

	var lastErr error
	for attempt := 1; attempt <= s.cfg.OrderNumberAttempts; attempt++ {
		orderNumber := s.numbers.Next(time.Now().UTC())

		var order *trade.Order
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			var err error
			order, err = s.placeOrder(ctx, repos, buyerID, orderNumber, req)
			return err
		})
		switch {
		case err == nil:
			s.logger.Info("order created",
				zap.String("order_id", order.ID.String()),
				zap.String("order_number", order.OrderNumber),
				zap.String("buyer_id", buyerID.String()),
				zap.String("total", order.Total.StringFixed(pricing.Scale)),
				zap.Int("lines", len(order.Lines)),
			)
			return ToCreateOrderResult(order, false), nil
		case errors.Is(err, trade.ErrDuplicateOrderNumber):
			s.logger.Warn("order number collision, retrying",
				zap.String("order_number", orderNumber),
				zap.Int("attempt", attempt),
			)
			lastErr = err
			continue
		case errors.Is(err, trade.ErrDuplicateIdempotencyKey) && key != "":
			// A concurrent request with the same key committed first
			existing, replayErr := s.replay(ctx, buyerID, key)
			if replayErr != nil {
				return nil, replayErr
			}
			if existing != nil {
				return existing, nil
			}
			return nil, err
		default:
			return nil, err
		}
	}

	s.logger.Error("could not allocate a unique order number",
		zap.Int("attempts", s.cfg.OrderNumberAttempts),
		zap.Error(lastErr),
	)
	return nil, shared.NewPersistenceError("allocate a unique order number", lastErr)
}

// replay returns the result of an order already placed with key, or nil if
// there is none
func (s *OrderService) replay(ctx context.Context, buyerID uuid.UUID, key string) (*CreateOrderResult, error) {
	existing, err := s.orderRepo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		if errors.Is(err, trade.ErrOrderNotFound) || errors.Is(err, shared.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if existing.BuyerID != buyerID {
		return nil, trade.ErrDuplicateIdempotencyKey
	}
	s.logger.Info("replaying order for idempotency key",
		zap.String("order_id", existing.ID.String()),
		zap.String("order_number", existing.OrderNumber),
	)
	return ToCreateOrderResult(existing, true), nil
}

func (s *OrderService) placeOrder(
	ctx context.Context,
	repos TransactionalRepositories,
	buyerID uuid.UUID,
	orderNumber string,
	req CreateOrderRequest,
) (*trade.Order, error) {
	address, err := s.selectAddress(ctx, repos.AddressRepo(), buyerID, req)
	if err != nil {
		return nil, err
	}

	reqs := make([]inventory.Requirement, 0, len(req.Lines))
	cart := make([]pricing.Line, 0, len(req.Lines))
	for _, l := range req.Lines {
		reqs = append(reqs, inventory.Requirement{
			Key:      inventory.NewStockKey(l.ProductID, l.VariantID),
			Quantity: l.Quantity,
		})
		cart = append(cart, pricing.Line{Quantity: l.Quantity, UnitPriceInclusive: l.UnitPriceInclusive})
	}
	if err := inventory.NewAvailabilityResolver(repos.StockReader()).CheckSufficient(ctx, reqs); err != nil {
		return nil, err
	}

	priced, err := s.engine.Price(cart)
	if err != nil {
		return nil, err
	}

	resolver := delivery.NewResolver(repos.DeliveryModeRepo(), repos.DeliveryZoneRepo())
	quote, err := resolver.Quote(ctx, req.DeliveryModeID, address.City)
	if err != nil {
		return nil, err
	}

	lines := make([]trade.LineInput, len(req.Lines))
	for i, l := range req.Lines {
		lines[i] = trade.LineInput{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Priced:    priced.Lines[i],
		}
	}

	order, err := trade.NewOrder(trade.NewOrderParams{
		OrderNumber:    orderNumber,
		BuyerID:        buyerID,
		Address:        address,
		DeliveryModeID: req.DeliveryModeID,
		Lines:          lines,
		Totals:         priced.WithDelivery(quote.Price),
		PaymentMethod:  req.PaymentMethod,
		Note:           req.Note,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		return nil, err
	}

	if err := repos.OrderRepo().Create(ctx, order); err != nil {
		return nil, err
	}
	if err := repos.Outbox().Write(ctx, order.GetDomainEvents()...); err != nil {
		return nil, err
	}
	order.ClearDomainEvents()
	order.ClearNewTrackingEvents()

	return order, nil
}

// selectAddress resolves the delivery address and leaves it as the buyer's
// only default address
func (s *OrderService) selectAddress(ctx context.Context, repo trade.AddressRepository, buyerID uuid.UUID, req CreateOrderRequest) (*trade.Address, error) {
	var address *trade.Address

	if req.AddressID != nil {
		found, err := repo.FindByID(ctx, *req.AddressID)
		if err != nil {
			return nil, err
		}
		if !found.BelongsTo(buyerID) {
			return nil, shared.NewNotFoundError("address", *req.AddressID)
		}
		if found.IsDefault {
			return found, nil
		}
		found.MarkDefault()
		address = found
	} else {
		current, err := repo.FindDefaultByBuyer(ctx, buyerID)
		switch {
		case err == nil:
			if err := current.Overwrite(req.Address.toDomain()); err != nil {
				return nil, err
			}
			address = current
		case errors.Is(err, shared.ErrNotFound):
			address, err = trade.NewAddress(buyerID, req.Address.toDomain())
			if err != nil {
				return nil, err
			}
		default:
			return nil, err
		}
	}

	if err := repo.ClearDefault(ctx, buyerID, address.ID); err != nil {
		return nil, err
	}
	if err := repo.Save(ctx, address); err != nil {
		return nil, err
	}
	return address, nil
}

func validateCreateOrder(buyerID uuid.UUID, req CreateOrderRequest) error {
	if buyerID == uuid.Nil {
		return shared.NewValidationError("buyer_id", "buyer is required")
	}
	if req.AddressID == nil && req.Address == nil {
		return shared.NewValidationError("address", "an address or a saved address id is required")
	}
	if req.AddressID != nil && req.Address != nil {
		return shared.NewValidationError("address", "give either an address or a saved address id, not both")
	}
	if req.Address != nil {
		if err := req.Address.toDomain().Validate(); err != nil {
			return err
		}
	}
	if req.DeliveryModeID == uuid.Nil {
		return shared.NewValidationError("delivery_mode_id", "delivery mode is required")
	}
	if len(req.Lines) == 0 {
		return shared.NewValidationError("lines", "cart must contain at least one line")
	}
	for _, l := range req.Lines {
		if l.ProductID == uuid.Nil {
			return shared.NewValidationError("lines", "product is required")
		}
		if l.Quantity <= 0 {
			return shared.NewValidationError("lines", "quantity must be positive")
		}
		if l.UnitPriceInclusive.IsNegative() {
			return shared.NewValidationError("lines", "unit price cannot be negative")
		}
	}
	if req.PaymentMethod != "" && !req.PaymentMethod.IsValid() {
		return shared.NewValidationError("payment_method", "unknown payment method")
	}
	if utf8.RuneCountInString(req.Note) > trade.MaxNoteLength {
		return shared.NewValidationError("note", "note is too long")
	}
	if utf8.RuneCountInString(strings.TrimSpace(req.IdempotencyKey)) > trade.MaxIdempotencyKeyLength {
		return shared.NewValidationError("idempotency_key", "idempotency key is too long")
	}
	return nil
}

// ==================== Queries ====================

// GetOrder returns an order with its lines and tracking history
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	ctx, cancel := withDeadline(ctx, s.cfg.OperationTimeout)
	defer cancel()

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, mapDeadline(ctx, err)
	}
	resp, err := s.toOrderResponse(ctx, order)
	return resp, mapDeadline(ctx, err)
}

// GetOrderByNumber returns an order by its public order number
func (s *OrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*OrderResponse, error) {
	ctx, cancel := withDeadline(ctx, s.cfg.OperationTimeout)
	defer cancel()

	if !trade.IsOrderNumber(orderNumber) {
		return nil, trade.ErrOrderNotFound
	}
	order, err := s.orderRepo.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return nil, mapDeadline(ctx, err)
	}
	resp, err := s.toOrderResponse(ctx, order)
	return resp, mapDeadline(ctx, err)
}

// ListBuyerOrders lists a buyer's orders newest first
func (s *OrderService) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, page, pageSize int) (*shared.Paginated[OrderListItemResponse], error) {
	ctx, cancel := withDeadline(ctx, s.cfg.OperationTimeout)
	defer cancel()

	page, pageSize = shared.NormalizePage(page, pageSize)
	orders, total, err := s.orderRepo.FindByBuyer(ctx, buyerID, page, pageSize)
	if err != nil {
		return nil, mapDeadline(ctx, err)
	}

	items := make([]OrderListItemResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderListItemResponse(&orders[i])
	}
	result := shared.NewPaginated(items, total, page, pageSize)
	return &result, nil
}

// ListAddresses returns a buyer's saved addresses, default first
func (s *OrderService) ListAddresses(ctx context.Context, buyerID uuid.UUID) ([]AddressResponse, error) {
	ctx, cancel := withDeadline(ctx, s.cfg.OperationTimeout)
	defer cancel()

	addresses, err := s.addressRepo.FindByBuyer(ctx, buyerID)
	if err != nil {
		return nil, mapDeadline(ctx, err)
	}
	result := make([]AddressResponse, len(addresses))
	for i := range addresses {
		result[i] = ToAddressResponse(&addresses[i])
	}
	return result, nil
}

func (s *OrderService) toOrderResponse(ctx context.Context, o *trade.Order) (*OrderResponse, error) {
	keys := make([]inventory.StockKey, len(o.Lines))
	for i, l := range o.Lines {
		keys[i] = inventory.NewStockKey(l.ProductID, l.VariantID)
	}
	current, err := s.prices.CurrentPrices(ctx, keys)
	if err != nil {
		return nil, err
	}

	resp := &OrderResponse{
		ID:             o.ID,
		OrderNumber:    o.OrderNumber,
		BuyerID:        o.BuyerID,
		AddressID:      o.AddressID,
		DeliveryModeID: o.DeliveryModeID,
		Status:         o.Status,
		StatusLabel:    o.Status.Label(),
		Subtotal:       o.Subtotal,
		VAT:            o.VAT,
		DeliveryFee:    o.DeliveryFee,
		Total:          o.Total,
		PaymentMethod:  o.PaymentMethod,
		Note:           o.Note,
		CancelledAt:    o.CancelledAt,
		CancelReason:   o.CancelReason,
		Lines:          make([]OrderLineResponse, len(o.Lines)),
		Tracking:       make([]TrackingEventResponse, len(o.Tracking)),
		CreatedAt:      o.CreatedAt,
		UpdatedAt:      o.UpdatedAt,
	}
	for i, l := range o.Lines {
		inclusive := s.engine.ToInclusive(l.UnitPriceExclusive)
		if price, ok := current[keys[i]]; ok {
			inclusive = s.engine.DisplayUnitPrice(l.UnitPriceExclusive, price)
		}
		resp.Lines[i] = OrderLineResponse{
			ID:                 l.ID,
			ProductID:          l.ProductID,
			VariantID:          l.VariantID,
			Quantity:           l.Quantity,
			UnitPriceExclusive: l.UnitPriceExclusive,
			UnitPriceInclusive: inclusive,
			LineTotalExclusive: l.LineTotalExclusive,
		}
	}
	for i, t := range o.Tracking {
		resp.Tracking[i] = TrackingEventResponse{
			Status:         t.Status,
			Description:    t.Description,
			TrackingNumber: t.TrackingNumber,
			OccurredAt:     t.OccurredAt,
		}
	}
	return resp, nil
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL_ERROR"
}
