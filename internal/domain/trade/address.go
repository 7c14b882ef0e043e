package trade

import (
	"strings"
	"time"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// DefaultCountry is used when the buyer leaves the country blank
const DefaultCountry = "Maroc"

// AddressInput is the free-text address a buyer types at checkout
type AddressInput struct {
	Street     string
	City       string
	PostalCode string
	Country    string
}

// Validate checks the required fields
func (in AddressInput) Validate() error {
	if strings.TrimSpace(in.Street) == "" {
		return shared.NewValidationError("address.street", "street is required")
	}
	if strings.TrimSpace(in.City) == "" {
		return shared.NewValidationError("address.city", "city is required")
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return shared.NewValidationError("address.postal_code", "postal code is required")
	}
	if len(in.PostalCode) > 20 {
		return shared.NewValidationError("address.postal_code", "postal code is too long")
	}
	return nil
}

// Address is a delivery address saved for a buyer. At most one address per
// buyer is flagged default.
type Address struct {
	ID         uuid.UUID
	BuyerID    uuid.UUID
	Street     string
	City       string
	PostalCode string
	Country    string
	IsDefault  bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewAddress creates a new default address for a buyer
func NewAddress(buyerID uuid.UUID, in AddressInput) (*Address, error) {
	if buyerID == uuid.Nil {
		return nil, shared.NewValidationError("buyer_id", "buyer is required")
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	a := &Address{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		IsDefault: true,
		CreatedAt: now,
	}
	a.apply(in, now)
	return a, nil
}

// Overwrite replaces the address fields in place and marks it default
func (a *Address) Overwrite(in AddressInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	a.apply(in, time.Now().UTC())
	a.IsDefault = true
	return nil
}

// MarkDefault flags the address as the buyer's default
func (a *Address) MarkDefault() {
	a.IsDefault = true
	a.UpdatedAt = time.Now().UTC()
}

// BelongsTo reports whether the address is owned by the buyer
func (a *Address) BelongsTo(buyerID uuid.UUID) bool {
	return a.BuyerID == buyerID
}

func (a *Address) apply(in AddressInput, now time.Time) {
	a.Street = strings.TrimSpace(in.Street)
	a.City = strings.TrimSpace(in.City)
	a.PostalCode = strings.TrimSpace(in.PostalCode)
	a.Country = strings.TrimSpace(in.Country)
	if a.Country == "" {
		a.Country = DefaultCountry
	}
	a.UpdatedAt = now
}
