package trade

import (
	"context"
	"time"

	"github.com/coopmarket/backend/internal/domain/delivery"
	"github.com/coopmarket/backend/internal/domain/inventory"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of trade.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*trade.Order, error) {
	args := m.Called(ctx, orderNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*trade.Order, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Order), args.Error(1)
}

func (m *MockOrderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, page, pageSize int) ([]trade.Order, int64, error) {
	args := m.Called(ctx, buyerID, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]trade.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, order *trade.Order, expected trade.OrderStatus) error {
	args := m.Called(ctx, order, expected)
	return args.Error(0)
}

// MockAddressRepository is a mock implementation of trade.AddressRepository
type MockAddressRepository struct {
	mock.Mock
}

func (m *MockAddressRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Address, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Address), args.Error(1)
}

func (m *MockAddressRepository) FindDefaultByBuyer(ctx context.Context, buyerID uuid.UUID) (*trade.Address, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trade.Address), args.Error(1)
}

func (m *MockAddressRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]trade.Address, error) {
	args := m.Called(ctx, buyerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]trade.Address), args.Error(1)
}

func (m *MockAddressRepository) Save(ctx context.Context, address *trade.Address) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

func (m *MockAddressRepository) ClearDefault(ctx context.Context, buyerID, keepID uuid.UUID) error {
	args := m.Called(ctx, buyerID, keepID)
	return args.Error(0)
}

// MockOutbox is a mock implementation of OutboxWriter
type MockOutbox struct {
	mock.Mock
}

func (m *MockOutbox) Write(ctx context.Context, events ...shared.DomainEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

// MockBuyerNotifier is a mock implementation of BuyerNotifier
type MockBuyerNotifier struct {
	mock.Mock
}

func (m *MockBuyerNotifier) Notify(ctx context.Context, n BuyerNotification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// stubStock serves fixed stock levels
type stubStock struct {
	levels map[inventory.StockKey]inventory.StockLevel
}

func (s *stubStock) StockLevel(_ context.Context, key inventory.StockKey) (*inventory.StockLevel, error) {
	level, ok := s.levels[key]
	if !ok {
		return nil, inventory.ErrProductNotFound
	}
	return &level, nil
}

func (s *stubStock) StockLevels(_ context.Context, keys []inventory.StockKey) (map[inventory.StockKey]inventory.StockLevel, error) {
	out := make(map[inventory.StockKey]inventory.StockLevel, len(keys))
	for _, k := range keys {
		if level, ok := s.levels[k]; ok {
			out[k] = level
		}
	}
	return out, nil
}

// stubModes serves fixed delivery modes
type stubModes struct {
	modes []delivery.Mode
}

func (s *stubModes) FindByID(_ context.Context, id uuid.UUID) (*delivery.Mode, error) {
	for i := range s.modes {
		if s.modes[i].ID == id {
			m := s.modes[i]
			return &m, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (s *stubModes) FindActive(_ context.Context) ([]delivery.Mode, error) {
	var out []delivery.Mode
	for _, m := range s.modes {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

// stubZones serves fixed delivery zones
type stubZones struct {
	zones []delivery.Zone
}

func (s *stubZones) FindAll(_ context.Context) ([]delivery.Zone, error) {
	return s.zones, nil
}

// stubPrices serves fixed current catalog prices
type stubPrices struct {
	prices map[inventory.StockKey]decimal.Decimal
}

func (s *stubPrices) CurrentPrices(_ context.Context, keys []inventory.StockKey) (map[inventory.StockKey]decimal.Decimal, error) {
	out := make(map[inventory.StockKey]decimal.Decimal)
	for _, k := range keys {
		if p, ok := s.prices[k]; ok {
			out[k] = p
		}
	}
	return out, nil
}

// sequenceNumbers hands out predictable order numbers
type sequenceNumbers struct {
	next int
}

func (g *sequenceNumbers) Next(now time.Time) string {
	g.next++
	return trade.FormatOrderNumber(now, g.next)
}

