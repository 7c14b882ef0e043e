// Package delivery resolves delivery zones from free-text city names and
// quotes delivery prices and lead times for a delivery mode.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrNoFallbackZone = shared.NewConfigurationError(
		"NO_FALLBACK_ZONE",
		fmt.Sprintf("no delivery zone matches and the %q zone is not configured", FallbackZoneName),
	)
	ErrModeNotFound = shared.NewDomainError(shared.KindNotFound, "DELIVERY_MODE_NOT_FOUND", "Delivery mode not found or inactive")
)

// Delay is a quoted lead time with its display text
type Delay struct {
	MinDays int
	MaxDays int
	Text    string
}

// Quote is the delivery price and lead time for a mode and city
type Quote struct {
	ModeID   uuid.UUID
	ModeName string
	ZoneName string
	Price    decimal.Decimal
	Delay    Delay
}

// Resolver maps cities to zones and prices deliveries. Zones and modes are
// read from storage on every call.
type Resolver struct {
	modes ModeRepository
	zones ZoneRepository
}

// NewResolver creates a new delivery resolver
func NewResolver(modes ModeRepository, zones ZoneRepository) *Resolver {
	return &Resolver{modes: modes, zones: zones}
}

// Resolve returns the zone for a city: exact name match first, then a prefix
// match in either direction (alphabetically first zone wins), then the
// fallback zone.
func (r *Resolver) Resolve(ctx context.Context, city string) (*Zone, error) {
	zones, err := r.zones.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	return ResolveZone(zones, city)
}

// ResolveZone applies the zone lookup rules to an in-memory zone list
func ResolveZone(zones []Zone, city string) (*Zone, error) {
	input := normalizeName(city)
	if input == "" {
		return nil, shared.NewValidationError("city", "city is required")
	}

	var prefixMatches []*Zone
	var fallback *Zone
	for i := range zones {
		zone := &zones[i]
		name := normalizeName(zone.Name)
		if name == "" {
			continue
		}
		if name == input {
			return zone, nil
		}
		if strings.HasPrefix(input, name) || strings.HasPrefix(name, input) {
			prefixMatches = append(prefixMatches, zone)
		}
		if name == FallbackZoneName {
			fallback = zone
		}
	}

	if len(prefixMatches) > 0 {
		sort.SliceStable(prefixMatches, func(i, j int) bool {
			return normalizeName(prefixMatches[i].Name) < normalizeName(prefixMatches[j].Name)
		})
		return prefixMatches[0], nil
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, ErrNoFallbackZone
}

// DeliveryPrice returns the mode's base tariff plus the zone surcharge.
// It returns zero when the mode does not exist or is inactive.
func (r *Resolver) DeliveryPrice(ctx context.Context, modeID uuid.UUID, city string) (decimal.Decimal, error) {
	mode, err := r.activeMode(ctx, modeID)
	if errors.Is(err, ErrModeNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}

	zone, err := r.Resolve(ctx, city)
	if err != nil {
		return decimal.Zero, err
	}
	return Price(mode, zone), nil
}

// DeliveryDelay returns the lead time for the mode's tier in the city's zone
func (r *Resolver) DeliveryDelay(ctx context.Context, modeID uuid.UUID, city string) (Delay, error) {
	mode, err := r.activeMode(ctx, modeID)
	if err != nil {
		return Delay{}, err
	}
	zone, err := r.Resolve(ctx, city)
	if err != nil {
		return Delay{}, err
	}
	return DelayFor(mode, zone), nil
}

// Quote returns price and lead time together. Unlike DeliveryPrice it fails
// with ErrModeNotFound for a missing or inactive mode.
func (r *Resolver) Quote(ctx context.Context, modeID uuid.UUID, city string) (*Quote, error) {
	mode, err := r.activeMode(ctx, modeID)
	if err != nil {
		return nil, err
	}
	zone, err := r.Resolve(ctx, city)
	if err != nil {
		return nil, err
	}
	return &Quote{
		ModeID:   mode.ID,
		ModeName: mode.Name,
		ZoneName: zone.Name,
		Price:    Price(mode, zone),
		Delay:    DelayFor(mode, zone),
	}, nil
}

func (r *Resolver) activeMode(ctx context.Context, modeID uuid.UUID) (*Mode, error) {
	mode, err := r.modes.FindByID(ctx, modeID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrModeNotFound
		}
		return nil, err
	}
	if !mode.Active {
		return nil, ErrModeNotFound
	}
	return mode, nil
}

// Price is the delivery fee for a mode delivering into a zone
func Price(mode *Mode, zone *Zone) decimal.Decimal {
	return mode.BaseTariff.Add(zone.Surcharge).Round(2)
}

// DelayFor formats the lead time of a zone for a mode
func DelayFor(mode *Mode, zone *Zone) Delay {
	lt := zone.LeadTimeFor(mode)
	return Delay{
		MinDays: lt.MinDays,
		MaxDays: lt.MaxDays,
		Text:    FormatDelay(lt.MinDays, lt.MaxDays),
	}
}

// FormatDelay renders a lead time the way buyers see it
func FormatDelay(minDays, maxDays int) string {
	if minDays == maxDays {
		return fmt.Sprintf("%d jours", minDays)
	}
	return fmt.Sprintf("%d à %d jours", minDays, maxDays)
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
