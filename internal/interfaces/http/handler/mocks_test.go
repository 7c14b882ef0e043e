package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	deliveryapp "github.com/coopmarket/backend/internal/application/delivery"
	"github.com/coopmarket/backend/internal/application/event"
	inventoryapp "github.com/coopmarket/backend/internal/application/inventory"
	tradeapp "github.com/coopmarket/backend/internal/application/trade"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/infrastructure/auth"
	"github.com/coopmarket/backend/internal/infrastructure/config"
	"github.com/coopmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

// ==================== Service mocks ====================

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, buyerID uuid.UUID, req tradeapp.CreateOrderRequest) (*tradeapp.CreateOrderResult, error) {
	args := m.Called(ctx, buyerID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.CreateOrderResult), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*tradeapp.OrderResponse, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) GetOrderByNumber(ctx context.Context, orderNumber string) (*tradeapp.OrderResponse, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.OrderResponse), args.Error(1)
}

func (m *MockOrderService) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID, page, pageSize int) (*shared.Paginated[tradeapp.OrderListItemResponse], error) {
	args := m.Called(ctx, buyerID, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*shared.Paginated[tradeapp.OrderListItemResponse]), args.Error(1)
}

func (m *MockOrderService) ListAddresses(ctx context.Context, buyerID uuid.UUID) ([]tradeapp.AddressResponse, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]tradeapp.AddressResponse), args.Error(1)
}

type MockOrderStatusService struct {
	mock.Mock
}

func (m *MockOrderStatusService) AdvanceStatus(ctx context.Context, orderID uuid.UUID, req tradeapp.AdvanceStatusRequest) (*tradeapp.StatusChangeResult, error) {
	args := m.Called(ctx, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.StatusChangeResult), args.Error(1)
}

func (m *MockOrderStatusService) CancelOrder(ctx context.Context, orderID uuid.UUID, req tradeapp.CancelOrderRequest) (*tradeapp.StatusChangeResult, error) {
	args := m.Called(ctx, orderID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*tradeapp.StatusChangeResult), args.Error(1)
}

type MockAvailabilityService struct {
	mock.Mock
}

func (m *MockAvailabilityService) GetAvailability(ctx context.Context, productID uuid.UUID, variantID *uuid.UUID) (*inventoryapp.AvailabilityResult, error) {
	args := m.Called(ctx, productID, variantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*inventoryapp.AvailabilityResult), args.Error(1)
}

type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) ComputeDeliveryQuote(ctx context.Context, modeID uuid.UUID, city string) (*deliveryapp.DeliveryQuote, error) {
	args := m.Called(ctx, modeID, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*deliveryapp.DeliveryQuote), args.Error(1)
}

func (m *MockDeliveryService) ListDeliveryModes(ctx context.Context) ([]deliveryapp.ModeResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]deliveryapp.ModeResponse), args.Error(1)
}

type MockOutboxService struct {
	mock.Mock
}

func (m *MockOutboxService) GetDeadLetterEntries(ctx context.Context, filter event.OutboxFilter) (shared.Paginated[event.OutboxEntryDTO], error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(shared.Paginated[event.OutboxEntryDTO]), args.Error(1)
}

func (m *MockOutboxService) GetEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxEntryDTO), args.Error(1)
}

func (m *MockOutboxService) RetryDeadEntry(ctx context.Context, id uuid.UUID) (*event.OutboxEntryDTO, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxEntryDTO), args.Error(1)
}

func (m *MockOutboxService) RetryAllDeadEntries(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOutboxService) GetStats(ctx context.Context) (*event.OutboxStatsDTO, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*event.OutboxStatsDTO), args.Error(1)
}

// ==================== Helpers ====================

var testVerifier = auth.NewTokenVerifier(config.JWTConfig{Secret: "handler-test-secret-0123456789abcdef"})

// newTestEngine returns an engine with request ids and bearer auth, like
// the production chain minus observability.
func newTestEngine() *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Auth(testVerifier, zap.NewNop()))
	return r
}

func tokenFor(t *testing.T, buyerID uuid.UUID, roles ...string) string {
	t.Helper()
	token, err := testVerifier.Sign(buyerID, roles, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func doRequest(r http.Handler, method, path, token, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
