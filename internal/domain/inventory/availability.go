// Package inventory derives sellable stock from order history. Available
// quantity is never stored: it is total stock minus what non-cancelled orders
// have already committed, recomputed on every read.
package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

var (
	ErrProductNotFound = shared.NewDomainError(shared.KindNotFound, "PRODUCT_NOT_FOUND", "Product not found")
	ErrVariantNotFound = shared.NewDomainError(shared.KindNotFound, "VARIANT_NOT_FOUND", "Product variant not found")
)

// StockKey identifies a product, or one variant of it when VariantID is set
type StockKey struct {
	ProductID uuid.UUID
	VariantID uuid.UUID
}

// NewStockKey builds a key from an optional variant id
func NewStockKey(productID uuid.UUID, variantID *uuid.UUID) StockKey {
	key := StockKey{ProductID: productID}
	if variantID != nil {
		key.VariantID = *variantID
	}
	return key
}

// HasVariant reports whether the key targets a variant
func (k StockKey) HasVariant() bool {
	return k.VariantID != uuid.Nil
}

// VariantPtr returns the variant id or nil
func (k StockKey) VariantPtr() *uuid.UUID {
	if !k.HasVariant() {
		return nil
	}
	id := k.VariantID
	return &id
}

func (k StockKey) String() string {
	if k.HasVariant() {
		return fmt.Sprintf("%s/%s", k.ProductID, k.VariantID)
	}
	return k.ProductID.String()
}

// StockLevel is a snapshot of total and committed quantities
type StockLevel struct {
	Key        StockKey
	TotalStock int64
	// Committed is the quantity held by order lines of non-cancelled orders
	Committed int64
}

// Available is total stock minus committed quantity. It can be negative when
// two orders raced for the last units.
func (s StockLevel) Available() int64 {
	return s.TotalStock - s.Committed
}

// StockReader reads stock levels from storage. Implementations must compute
// Committed from live order lines, excluding cancelled orders, and return
// ErrProductNotFound / ErrVariantNotFound for unknown keys.
type StockReader interface {
	StockLevel(ctx context.Context, key StockKey) (*StockLevel, error)
	StockLevels(ctx context.Context, keys []StockKey) (map[StockKey]StockLevel, error)
}

// Requirement is a quantity an order wants to take from a stock key
type Requirement struct {
	Key      StockKey
	Quantity int64
}

// AvailabilityResolver answers availability questions from a StockReader
type AvailabilityResolver struct {
	reader StockReader
}

// NewAvailabilityResolver creates a new AvailabilityResolver
func NewAvailabilityResolver(reader StockReader) *AvailabilityResolver {
	return &AvailabilityResolver{reader: reader}
}

// Available returns the remaining sellable quantity for a product or variant
func (r *AvailabilityResolver) Available(ctx context.Context, key StockKey) (int64, error) {
	level, err := r.reader.StockLevel(ctx, key)
	if err != nil {
		return 0, err
	}
	return level.Available(), nil
}

// IsOrderable reports whether at least one unit is available
func (r *AvailabilityResolver) IsOrderable(ctx context.Context, key StockKey) (bool, error) {
	available, err := r.Available(ctx, key)
	if err != nil {
		return false, err
	}
	return available > 0, nil
}

// CheckSufficient verifies every requirement can be served. Requirements on
// the same key are summed first. It does not reserve anything: a concurrent
// order can still consume the same units before the caller commits.
func (r *AvailabilityResolver) CheckSufficient(ctx context.Context, reqs []Requirement) error {
	if len(reqs) == 0 {
		return nil
	}

	wanted := make(map[StockKey]int64, len(reqs))
	keys := make([]StockKey, 0, len(reqs))
	for _, req := range reqs {
		if _, seen := wanted[req.Key]; !seen {
			keys = append(keys, req.Key)
		}
		wanted[req.Key] += req.Quantity
	}

	levels, err := r.reader.StockLevels(ctx, keys)
	if err != nil {
		return err
	}

	var short []string
	for _, key := range keys {
		level, ok := levels[key]
		if !ok {
			if key.HasVariant() {
				return ErrVariantNotFound.WithMessage("product variant not found: %s", key)
			}
			return ErrProductNotFound.WithMessage("product not found: %s", key)
		}
		if level.Available() < wanted[key] {
			short = append(short, fmt.Sprintf("%s (requested %d, available %d)", key, wanted[key], level.Available()))
		}
	}
	if len(short) > 0 {
		return shared.ErrInsufficientStock.WithMessage("Insufficient stock for %s", strings.Join(short, ", "))
	}
	return nil
}
