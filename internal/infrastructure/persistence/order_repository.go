package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/coopmarket/backend/internal/domain/trade"
	"github.com/coopmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx returns a repository bound to tx
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: tx}
}

// Create inserts the order header, its lines and its tracking events
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	db := r.db.WithContext(ctx)

	if err := db.Omit(clause.Associations).Create(models.OrderModelFromDomain(order)).Error; err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			switch {
			case strings.Contains(constraint, "order_number"):
				return trade.ErrDuplicateOrderNumber.Wrap(err)
			case strings.Contains(constraint, "idempotency_key"):
				return trade.ErrDuplicateIdempotencyKey.Wrap(err)
			}
		}
		return wrapError("create order", err)
	}

	lines := make([]models.OrderLineModel, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = models.OrderLineModelFromDomain(l)
	}
	if err := db.Create(&lines).Error; err != nil {
		return wrapError("create order lines", err)
	}

	return r.appendTracking(ctx, order)
}

// FindByID loads an order with its lines and tracking history
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByOrderNumber loads an order by its public number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*trade.Order, error) {
	return r.findOne(ctx, "order_number = ?", orderNumber)
}

// FindByIdempotencyKey loads the order placed with key
func (r *GormOrderRepository) FindByIdempotencyKey(ctx context.Context, key string) (*trade.Order, error) {
	return r.findOne(ctx, "idempotency_key = ?", key)
}

// FindByBuyer lists a buyer's orders newest first, without lines
func (r *GormOrderRepository) FindByBuyer(ctx context.Context, buyerID uuid.UUID, page, pageSize int) ([]trade.Order, int64, error) {
	page, pageSize = shared.NormalizePage(page, pageSize)
	db := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("buyer_id = ?", buyerID).Session(&gorm.Session{})

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, wrapError("count orders", err)
	}

	var rows []models.OrderModel
	if err := db.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, wrapError("list orders", err)
	}

	orders := make([]trade.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

// UpdateStatus writes the new status only while the stored status still
// equals expected, then appends the new tracking events
func (r *GormOrderRepository) UpdateStatus(ctx context.Context, order *trade.Order, expected trade.OrderStatus) error {
	db := r.db.WithContext(ctx)

	result := db.Model(&models.OrderModel{}).
		Where("id = ? AND status = ?", order.ID, expected).
		Updates(map[string]any{
			"status":        order.Status,
			"cancelled_at":  order.CancelledAt,
			"cancel_reason": order.CancelReason,
			"version":       gorm.Expr("version + 1"),
			"updated_at":    order.UpdatedAt,
		})
	if result.Error != nil {
		return wrapError("update order status", result.Error)
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage("Order %s changed status concurrently", order.OrderNumber)
	}

	return r.appendTracking(ctx, order)
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, arg any) (*trade.Order, error) {
	var m models.OrderModel
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Tracking", func(db *gorm.DB) *gorm.DB {
			return db.Order("occurred_at ASC")
		}).
		Where(query, arg).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, trade.ErrOrderNotFound
	}
	if err != nil {
		return nil, wrapError("load order", err)
	}
	return m.ToDomain(), nil
}

// appendTracking writes the order's unsaved tracking events once
func (r *GormOrderRepository) appendTracking(ctx context.Context, order *trade.Order) error {
	if err := r.insertTracking(ctx, order.NewTrackingEvents()); err != nil {
		return err
	}
	order.ClearNewTrackingEvents()
	return nil
}

func (r *GormOrderRepository) insertTracking(ctx context.Context, events []trade.TrackingEvent) error {
	if len(events) == 0 {
		return nil
	}
	rows := make([]models.TrackingEventModel, len(events))
	for i, e := range events {
		rows[i] = models.TrackingEventModelFromDomain(e)
	}
	if err := r.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return wrapError("append tracking events", err)
	}
	return nil
}

var _ trade.OrderRepository = (*GormOrderRepository)(nil)
