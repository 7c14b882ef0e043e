package delivery

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tier selects which lead-time bounds of a zone apply to a delivery mode
type Tier string

const (
	TierStandard Tier = "STANDARD"
	TierExpress  Tier = "EXPRESS"
)

// IsValid checks if the tier is a known value
func (t Tier) IsValid() bool {
	return t == TierStandard || t == TierExpress
}

// String returns the string representation
func (t Tier) String() string {
	return string(t)
}

// LegacyTierFromName reproduces the historical rule where a mode was express
// when its name contained "Express". Only used to backfill the tier column.
func LegacyTierFromName(name string) Tier {
	if strings.Contains(strings.ToLower(name), "express") {
		return TierExpress
	}
	return TierStandard
}

// Mode is a named shipping method with a flat base tariff
type Mode struct {
	ID         uuid.UUID
	Name       string
	BaseTariff decimal.Decimal
	Tier       Tier
	Active     bool
}

// IsExpress reports whether the express lead times apply
func (m *Mode) IsExpress() bool {
	return m.Tier == TierExpress
}
