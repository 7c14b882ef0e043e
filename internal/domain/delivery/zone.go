package delivery

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// FallbackZoneName is the zone used when no zone matches the requested city
const FallbackZoneName = "Other cities"

// LeadTime is an inclusive range of delivery days
type LeadTime struct {
	MinDays int
	MaxDays int
}

// Zone is a city or region with a delivery surcharge and lead times per tier
type Zone struct {
	ID        uuid.UUID
	Name      string
	Surcharge decimal.Decimal
	Standard  LeadTime
	Express   LeadTime
}

// LeadTimeFor returns the bounds that apply to the given mode
func (z *Zone) LeadTimeFor(mode *Mode) LeadTime {
	if mode.IsExpress() {
		return z.Express
	}
	return z.Standard
}
