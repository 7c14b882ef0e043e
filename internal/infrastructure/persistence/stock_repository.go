package persistence

import (
	"context"

	"github.com/coopmarket/backend/internal/domain/inventory"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/coopmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// committed quantity of non-cancelled orders, correlated on the outer row
const (
	productStockSQL = `
SELECT p.total_stock AS total_stock,
       (SELECT COALESCE(SUM(l.quantity), 0)
          FROM order_lines l
          JOIN orders o ON o.id = l.order_id
         WHERE l.product_id = p.id
           AND o.status <> ?) AS committed
  FROM products p
 WHERE p.id = ?`

	variantStockSQL = `
SELECT v.total_stock AS total_stock,
       (SELECT COALESCE(SUM(l.quantity), 0)
          FROM order_lines l
          JOIN orders o ON o.id = l.order_id
         WHERE l.product_id = v.product_id
           AND l.variant_id = v.id
           AND o.status <> ?) AS committed
  FROM product_variants v
 WHERE v.id = ? AND v.product_id = ?`
)

type stockRow struct {
	TotalStock int64
	Committed  int64
}

// GormStockRepository derives stock levels from order lines and reads
// current catalog prices
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// StockLevel computes the stock level of one product or variant
func (r *GormStockRepository) StockLevel(ctx context.Context, key inventory.StockKey) (*inventory.StockLevel, error) {
	row, found, err := r.query(ctx, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, r.notFound(ctx, key)
	}
	return &inventory.StockLevel{Key: key, TotalStock: row.TotalStock, Committed: row.Committed}, nil
}

// StockLevels computes the levels of several keys. Unknown keys are absent
// from the result.
func (r *GormStockRepository) StockLevels(ctx context.Context, keys []inventory.StockKey) (map[inventory.StockKey]inventory.StockLevel, error) {
	out := make(map[inventory.StockKey]inventory.StockLevel, len(keys))
	for _, key := range keys {
		if _, done := out[key]; done {
			continue
		}
		row, found, err := r.query(ctx, key)
		if err != nil {
			return nil, err
		}
		if found {
			out[key] = inventory.StockLevel{Key: key, TotalStock: row.TotalStock, Committed: row.Committed}
		}
	}
	return out, nil
}

// CurrentPrices returns the tax-exclusive catalog price of each key. A
// variant without its own price uses the product price.
func (r *GormStockRepository) CurrentPrices(ctx context.Context, keys []inventory.StockKey) (map[inventory.StockKey]decimal.Decimal, error) {
	if len(keys) == 0 {
		return map[inventory.StockKey]decimal.Decimal{}, nil
	}

	var (
		productIDs = make([]uuid.UUID, 0, len(keys))
		variantIDs = make([]uuid.UUID, 0, len(keys))
	)
	for _, key := range keys {
		productIDs = append(productIDs, key.ProductID)
		if key.HasVariant() {
			variantIDs = append(variantIDs, key.VariantID)
		}
	}

	var products []models.ProductModel
	if err := r.db.WithContext(ctx).Where("id IN ?", productIDs).Find(&products).Error; err != nil {
		return nil, wrapError("load product prices", err)
	}
	productPrice := make(map[uuid.UUID]decimal.Decimal, len(products))
	for _, p := range products {
		productPrice[p.ID] = p.Price
	}

	variantByID := make(map[uuid.UUID]models.ProductVariantModel)
	if len(variantIDs) > 0 {
		var variants []models.ProductVariantModel
		if err := r.db.WithContext(ctx).Where("id IN ?", variantIDs).Find(&variants).Error; err != nil {
			return nil, wrapError("load variant prices", err)
		}
		for _, v := range variants {
			variantByID[v.ID] = v
		}
	}

	out := make(map[inventory.StockKey]decimal.Decimal, len(keys))
	for _, key := range keys {
		base, ok := productPrice[key.ProductID]
		if !ok {
			continue
		}
		if !key.HasVariant() {
			out[key] = base
			continue
		}
		v, ok := variantByID[key.VariantID]
		if !ok || v.ProductID != key.ProductID {
			continue
		}
		if v.Price.Valid {
			out[key] = v.Price.Decimal
		} else {
			out[key] = base
		}
	}
	return out, nil
}

func (r *GormStockRepository) query(ctx context.Context, key inventory.StockKey) (stockRow, bool, error) {
	var rows []stockRow
	var err error
	if key.HasVariant() {
		err = r.db.WithContext(ctx).
			Raw(variantStockSQL, trade.OrderStatusCancelled, key.VariantID, key.ProductID).
			Scan(&rows).Error
	} else {
		err = r.db.WithContext(ctx).
			Raw(productStockSQL, trade.OrderStatusCancelled, key.ProductID).
			Scan(&rows).Error
	}
	if err != nil {
		return stockRow{}, false, wrapError("compute stock level", err)
	}
	if len(rows) == 0 {
		return stockRow{}, false, nil
	}
	return rows[0], true, nil
}

// notFound tells an unknown product from a variant that is unknown or
// belongs to another product
func (r *GormStockRepository) notFound(ctx context.Context, key inventory.StockKey) error {
	if !key.HasVariant() {
		return inventory.ErrProductNotFound.WithMessage("product not found: %s", key.ProductID)
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProductModel{}).Where("id = ?", key.ProductID).Count(&count).Error; err != nil {
		return wrapError("load product", err)
	}
	if count == 0 {
		return inventory.ErrProductNotFound.WithMessage("product not found: %s", key.ProductID)
	}
	return inventory.ErrVariantNotFound.WithMessage("product variant not found: %s", key)
}

var _ inventory.StockReader = (*GormStockRepository)(nil)
