// Package pricing converts between tax-exclusive and tax-inclusive amounts and
// sums cart lines into order totals. It performs no I/O.
package pricing

import (
	"github.com/coopmarket/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places every stored amount is rounded to
const Scale int32 = 2

var (
	// DefaultVATRate is the single flat VAT rate applied to every sale
	DefaultVATRate = decimal.NewFromFloat(0.20)

	// LegacyTolerance is the absolute distance under which a stored unit price is
	// considered to already include VAT (see DisplayUnitPrice).
	LegacyTolerance = decimal.NewFromFloat(0.05)
)

// Line is a cart line as the presentation layer sends it
type Line struct {
	Quantity           int64
	UnitPriceInclusive decimal.Decimal
}

// PricedLine is a cart line converted to tax-exclusive amounts
type PricedLine struct {
	Quantity           int64
	UnitPriceInclusive decimal.Decimal
	UnitPriceExclusive decimal.Decimal
	LineTotalExclusive decimal.Decimal
}

// Totals is the priced result for a whole cart
type Totals struct {
	Lines    []PricedLine
	Subtotal decimal.Decimal
	VAT      decimal.Decimal
}

// OrderTotals extends Totals with the delivery fee and grand total
type OrderTotals struct {
	Totals
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Engine prices carts at a fixed VAT rate
type Engine struct {
	rate decimal.Decimal
}

// NewEngine creates a pricing engine. A zero rate falls back to DefaultVATRate.
func NewEngine(rate decimal.Decimal) *Engine {
	if rate.IsZero() {
		rate = DefaultVATRate
	}
	return &Engine{rate: rate}
}

// Rate returns the VAT rate the engine applies
func (e *Engine) Rate() decimal.Decimal {
	return e.rate
}

// ToExclusive strips VAT from a tax-inclusive amount
func (e *Engine) ToExclusive(inclusive decimal.Decimal) decimal.Decimal {
	return inclusive.Div(decimal.NewFromInt(1).Add(e.rate)).Round(Scale)
}

// ToInclusive adds VAT to a tax-exclusive amount
func (e *Engine) ToInclusive(exclusive decimal.Decimal) decimal.Decimal {
	return exclusive.Mul(decimal.NewFromInt(1).Add(e.rate)).Round(Scale)
}

// Price converts every line to tax-exclusive amounts and computes the
// subtotal and VAT. Each line is rounded before it is summed, and VAT is
// computed once on the rounded subtotal, never as a sum of per-line VAT.
func (e *Engine) Price(lines []Line) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, shared.NewValidationError("lines", "cart must contain at least one line")
	}

	totals := Totals{
		Lines:    make([]PricedLine, 0, len(lines)),
		Subtotal: decimal.Zero,
	}
	for i, line := range lines {
		if line.Quantity <= 0 {
			return Totals{}, shared.NewValidationError("lines", "quantity must be positive").
				WithMessage("line %d: quantity must be positive", i+1)
		}
		if line.UnitPriceInclusive.IsNegative() {
			return Totals{}, shared.NewValidationError("lines", "unit price cannot be negative").
				WithMessage("line %d: unit price cannot be negative", i+1)
		}

		unitExcl := e.ToExclusive(line.UnitPriceInclusive)
		lineExcl := unitExcl.Mul(decimal.NewFromInt(line.Quantity)).Round(Scale)

		totals.Lines = append(totals.Lines, PricedLine{
			Quantity:           line.Quantity,
			UnitPriceInclusive: line.UnitPriceInclusive,
			UnitPriceExclusive: unitExcl,
			LineTotalExclusive: lineExcl,
		})
		totals.Subtotal = totals.Subtotal.Add(lineExcl)
	}

	totals.Subtotal = totals.Subtotal.Round(Scale)
	totals.VAT = totals.Subtotal.Mul(e.rate).Round(Scale)
	return totals, nil
}

// WithDelivery adds the delivery fee to the priced cart
func (t Totals) WithDelivery(fee decimal.Decimal) OrderTotals {
	fee = fee.Round(Scale)
	return OrderTotals{
		Totals:      t,
		DeliveryFee: fee,
		Total:       OrderTotal(t.Subtotal, t.VAT, fee),
	}
}

// OrderTotal is the tax-inclusive total an order must always satisfy
func OrderTotal(subtotal, vat, deliveryFee decimal.Decimal) decimal.Decimal {
	return subtotal.Add(vat).Add(deliveryFee).Round(Scale)
}

// DisplayUnitPrice returns the tax-inclusive unit price to show for a stored
// order line. Older lines were written tax-inclusive, newer ones tax-exclusive,
// and nothing records which. The stored value is treated as already inclusive
// when it sits within LegacyTolerance of the product's current inclusive price
// and above its current exclusive price; otherwise it is converted.
//
// The guess is lossy; new writes always store tax-exclusive prices.
func (e *Engine) DisplayUnitPrice(stored, currentExclusive decimal.Decimal) decimal.Decimal {
	expected := e.ToInclusive(currentExclusive)
	if stored.Sub(expected).Abs().LessThanOrEqual(LegacyTolerance) && stored.GreaterThan(currentExclusive) {
		return stored
	}
	return e.ToInclusive(stored)
}
