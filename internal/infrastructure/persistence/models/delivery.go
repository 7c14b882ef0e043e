package models

import (
	"github.com/coopmarket/backend/internal/domain/delivery"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeliveryModeModel is the persistence model for a delivery mode
type DeliveryModeModel struct {
	BaseModel
	Name       string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	BaseTariff decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Tier       delivery.Tier   `gorm:"type:varchar(20);not null;default:'STANDARD'"`
	Active     bool            `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (DeliveryModeModel) TableName() string {
	return "delivery_modes"
}

// ToDomain converts the persistence model to a domain Mode
func (m *DeliveryModeModel) ToDomain() *delivery.Mode {
	return &delivery.Mode{
		ID:         m.ID,
		Name:       m.Name,
		BaseTariff: m.BaseTariff,
		Tier:       m.Tier,
		Active:     m.Active,
	}
}

// DeliveryZoneModel is the persistence model for a delivery zone
type DeliveryZoneModel struct {
	ID              uuid.UUID       `gorm:"type:uuid;primary_key"`
	Name            string          `gorm:"type:varchar(100);not null;uniqueIndex"`
	Surcharge       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	StandardMinDays int             `gorm:"not null"`
	StandardMaxDays int             `gorm:"not null"`
	ExpressMinDays  int             `gorm:"not null"`
	ExpressMaxDays  int             `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DeliveryZoneModel) TableName() string {
	return "delivery_zones"
}

// ToDomain converts the persistence model to a domain Zone
func (m *DeliveryZoneModel) ToDomain() delivery.Zone {
	return delivery.Zone{
		ID:        m.ID,
		Name:      m.Name,
		Surcharge: m.Surcharge,
		Standard:  delivery.LeadTime{MinDays: m.StandardMinDays, MaxDays: m.StandardMaxDays},
		Express:   delivery.LeadTime{MinDays: m.ExpressMinDays, MaxDays: m.ExpressMaxDays},
	}
}
