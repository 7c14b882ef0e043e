package persistence

import (
	"context"
	"errors"

	"github.com/coopmarket/backend/internal/domain/delivery"
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormDeliveryModeRepository implements delivery.ModeRepository using GORM
type GormDeliveryModeRepository struct {
	db *gorm.DB
}

// NewGormDeliveryModeRepository creates a new GormDeliveryModeRepository
func NewGormDeliveryModeRepository(db *gorm.DB) *GormDeliveryModeRepository {
	return &GormDeliveryModeRepository{db: db}
}

// FindByID finds a delivery mode, active or not
func (r *GormDeliveryModeRepository) FindByID(ctx context.Context, id uuid.UUID) (*delivery.Mode, error) {
	var m models.DeliveryModeModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewNotFoundError("delivery mode", id)
	}
	if err != nil {
		return nil, wrapError("load delivery mode", err)
	}
	return m.ToDomain(), nil
}

// FindActive lists active modes by name
func (r *GormDeliveryModeRepository) FindActive(ctx context.Context) ([]delivery.Mode, error) {
	var rows []models.DeliveryModeModel
	if err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("name ASC").
		Find(&rows).Error; err != nil {
		return nil, wrapError("list delivery modes", err)
	}
	out := make([]delivery.Mode, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// GormDeliveryZoneRepository implements delivery.ZoneRepository using GORM
type GormDeliveryZoneRepository struct {
	db *gorm.DB
}

// NewGormDeliveryZoneRepository creates a new GormDeliveryZoneRepository
func NewGormDeliveryZoneRepository(db *gorm.DB) *GormDeliveryZoneRepository {
	return &GormDeliveryZoneRepository{db: db}
}

// FindAll lists every zone by name
func (r *GormDeliveryZoneRepository) FindAll(ctx context.Context) ([]delivery.Zone, error) {
	var rows []models.DeliveryZoneModel
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&rows).Error; err != nil {
		return nil, wrapError("list delivery zones", err)
	}
	out := make([]delivery.Zone, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out, nil
}

var (
	_ delivery.ModeRepository = (*GormDeliveryModeRepository)(nil)
	_ delivery.ZoneRepository = (*GormDeliveryZoneRepository)(nil)
)
