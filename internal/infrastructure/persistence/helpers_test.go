package persistence

import (
	"database/sql"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/coopmarket/backend/internal/domain/delivery"
	"github.com/coopmarket/backend/internal/domain/pricing"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/coopmarket/backend/internal/infrastructure/event"
	"github.com/coopmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// every connection to :memory: is a fresh database
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, AutoMigrate(db))
	require.NoError(t, event.AutoMigrateOutbox(db))
	return db
}

// setupMockDB opens a postgres-dialect GORM handle over sqlmock
func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})
	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return gormDB, mock, mockDB
}

var orderSeq atomic.Int64

type orderLineSpec struct {
	productID uuid.UUID
	variantID *uuid.UUID
	quantity  int64
	unitPrice string
}

// newOrder builds a valid order for buyer with the given lines
func newOrder(t *testing.T, buyerID uuid.UUID, specs ...orderLineSpec) *trade.Order {
	t.Helper()
	addr, err := trade.NewAddress(buyerID, trade.AddressInput{Street: "12 rue des Oliviers", City: "Casablanca", PostalCode: "20000"})
	require.NoError(t, err)

	if len(specs) == 0 {
		specs = []orderLineSpec{{productID: uuid.New(), quantity: 1, unitPrice: "120.00"}}
	}
	cart := make([]pricing.Line, len(specs))
	for i, s := range specs {
		cart[i] = pricing.Line{Quantity: s.quantity, UnitPriceInclusive: decimal.RequireFromString(s.unitPrice)}
	}
	totals, err := pricing.NewEngine(pricing.DefaultVATRate).Price(cart)
	require.NoError(t, err)

	lines := make([]trade.LineInput, len(specs))
	for i, s := range specs {
		lines[i] = trade.LineInput{ProductID: s.productID, VariantID: s.variantID, Priced: totals.Lines[i]}
	}

	order, err := trade.NewOrder(trade.NewOrderParams{
		OrderNumber:    trade.FormatOrderNumber(time.Now(), int(orderSeq.Add(1))),
		BuyerID:        buyerID,
		Address:        addr,
		DeliveryModeID: uuid.New(),
		Lines:          lines,
		Totals:         totals.WithDelivery(decimal.RequireFromString("33.00")),
	})
	require.NoError(t, err)
	return order
}

func seedProduct(t *testing.T, db *gorm.DB, price string, stock int64) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	p := models.ProductModel{
		BaseModel:  models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:       "Huile d'argan",
		Price:      decimal.RequireFromString(price),
		TotalStock: stock,
	}
	require.NoError(t, db.Create(&p).Error)
	return p.ID
}

func seedVariant(t *testing.T, db *gorm.DB, productID uuid.UUID, price *string, stock int64) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	v := models.ProductVariantModel{
		BaseModel:  models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		ProductID:  productID,
		Name:       "250 ml",
		TotalStock: stock,
	}
	if price != nil {
		v.Price = decimal.NewNullDecimal(decimal.RequireFromString(*price))
	}
	require.NoError(t, db.Create(&v).Error)
	return v.ID
}

func seedMode(t *testing.T, db *gorm.DB, name, tariff string, tier delivery.Tier, active bool) uuid.UUID {
	t.Helper()
	now := time.Now().UTC()
	m := models.DeliveryModeModel{
		BaseModel:  models.BaseModel{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Name:       name,
		BaseTariff: decimal.RequireFromString(tariff),
		Tier:       tier,
		Active:     active,
	}
	require.NoError(t, db.Create(&m).Error)
	// GORM skips zero values that carry a column default
	if !active {
		require.NoError(t, db.Model(&m).Update("active", false).Error)
	}
	return m.ID
}
