package persistence

import (
	"context"
	"errors"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/coopmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormAddressRepository implements trade.AddressRepository using GORM
type GormAddressRepository struct {
	db *gorm.DB
}

// NewGormAddressRepository creates a new GormAddressRepository
func NewGormAddressRepository(db *gorm.DB) *GormAddressRepository {
	return &GormAddressRepository{db: db}
}

// FindByID finds an address by its ID
func (r *GormAddressRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Address, error) {
	var m models.AddressModel
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewNotFoundError("address", id)
	}
	if err != nil {
		return nil, wrapError("load address", err)
	}
	return m.ToDomain(), nil
}

// FindDefaultByBuyer finds the buyer's default address
func (r *GormAddressRepository) FindDefaultByBuyer(ctx context.Context, buyerID uuid.UUID) (*trade.Address, error) {
	var m models.AddressModel
	err := r.db.WithContext(ctx).
		Where("buyer_id = ? AND is_default = ?", buyerID, true).
		Order("updated_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewNotFoundError("default address of buyer", buyerID)
	}
	if err != nil {
		return nil, wrapError("load default address", err)
	}
	return m.ToDomain(), nil
}

// FindByBuyer lists the buyer's addresses, default first
func (r *GormAddressRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]trade.Address, error) {
	var rows []models.AddressModel
	if err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("is_default DESC, updated_at DESC").
		Find(&rows).Error; err != nil {
		return nil, wrapError("list addresses", err)
	}
	out := make([]trade.Address, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save inserts or updates an address
func (r *GormAddressRepository) Save(ctx context.Context, address *trade.Address) error {
	if err := r.db.WithContext(ctx).Save(models.AddressModelFromDomain(address)).Error; err != nil {
		return wrapError("save address", err)
	}
	return nil
}

// ClearDefault unflags every default address of the buyer except keepID
func (r *GormAddressRepository) ClearDefault(ctx context.Context, buyerID, keepID uuid.UUID) error {
	if err := r.db.WithContext(ctx).
		Model(&models.AddressModel{}).
		Where("buyer_id = ? AND id <> ? AND is_default = ?", buyerID, keepID, true).
		Update("is_default", false).Error; err != nil {
		return wrapError("clear default address", err)
	}
	return nil
}

var _ trade.AddressRepository = (*GormAddressRepository)(nil)
