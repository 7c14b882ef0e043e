package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel holds the columns of the catalog product this core reads:
// its current tax-exclusive price and total stock. The catalog itself is
// maintained elsewhere.
type ProductModel struct {
	BaseModel
	Name       string          `gorm:"type:varchar(200);not null"`
	Price      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	TotalStock int64           `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ProductVariantModel is a sellable variant of a product with its own stock.
// Price, when set, replaces the product price.
type ProductVariantModel struct {
	BaseModel
	ProductID  uuid.UUID           `gorm:"type:uuid;not null;index"`
	Name       string              `gorm:"type:varchar(200);not null"`
	Price      decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	TotalStock int64               `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ProductVariantModel) TableName() string {
	return "product_variants"
}
