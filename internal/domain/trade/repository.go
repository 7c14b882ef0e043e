package trade

import (
	"context"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var (
	// ErrDuplicateOrderNumber signals the generated order number collided with an existing one
	ErrDuplicateOrderNumber = shared.NewConflictError("DUPLICATE_ORDER_NUMBER", "Order number already exists")
	// ErrDuplicateIdempotencyKey signals another order was already placed with the same key
	ErrDuplicateIdempotencyKey = shared.NewConflictError("DUPLICATE_IDEMPOTENCY_KEY", "An order was already placed with this idempotency key")
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// Create inserts the header, lines and tracking events of a new order.
	// Returns ErrDuplicateOrderNumber or ErrDuplicateIdempotencyKey on unique violations.
	Create(ctx context.Context, order *Order) error

	// FindByID loads an order with its lines and tracking history
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)

	FindByIdempotencyKey(ctx context.Context, key string) (*Order, error)

	// FindByBuyer lists a buyer's orders newest first, without lines
	FindByBuyer(ctx context.Context, buyerID uuid.UUID, page, pageSize int) ([]Order, int64, error)

	// UpdateStatus persists a status change only if the stored status still
	// equals expected, and appends the order's new tracking events.
	// Returns shared.ErrConcurrencyConflict when the status moved underneath.
	UpdateStatus(ctx context.Context, order *Order, expected OrderStatus) error
}

// AddressRepository defines the interface for buyer address persistence
type AddressRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Address, error)
	FindDefaultByBuyer(ctx context.Context, buyerID uuid.UUID) (*Address, error)
	// FindByBuyer lists a buyer's addresses, default first
	FindByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Address, error)
	Save(ctx context.Context, address *Address) error
	// ClearDefault removes the default flag from every address of the buyer except keepID
	ClearDefault(ctx context.Context, buyerID, keepID uuid.UUID) error
}
