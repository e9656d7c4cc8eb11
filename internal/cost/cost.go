// Package cost holds the pure arithmetic behind ingredient and recipe costing.
//
// All values are shopspring decimals so that unit costs can be aggregated over many
// recipe lines without binary floating point drift.
package cost

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept by every division in this package.
// It matches the scale of the stored cost_per_standard_unit column.
const Scale int32 = 8

// Bounds of the stored amounts. Prices, quantities and yields are numeric(14,4) and the
// unit cost is numeric(20,8), so neither holds more than ten or twelve integer digits.
const (
	maxAmountText       = 40
	minExponent   int32 = -20
	maxExponent   int32 = 10
)

var (
	// ErrInvalidQuantity is returned when a pack quantity is zero or negative.
	ErrInvalidQuantity = errors.New("pack quantity must be greater than zero")
	// ErrOutOfRange is returned for amounts that do not fit the stored columns.
	ErrOutOfRange = errors.New("amount is out of range")
	// ErrInvalidAmount is returned when text is not a decimal number.
	ErrInvalidAmount = errors.New("amount is not a number")
)

var (
	gramsPerKilogram = decimal.NewFromInt(1000)
	amountLimit      = decimal.New(1, 10)
	unitCostLimit    = decimal.New(1, 12)
)

// CheckAmount reports ErrOutOfRange unless |d| < 10^10 with at most 20 decimal places.
// The exponent is inspected before any arithmetic, so values like 1e999999999 are
// rejected without being expanded.
func CheckAmount(d decimal.Decimal) error {
	if exp := d.Exponent(); exp < minExponent || exp > maxExponent {
		return ErrOutOfRange
	}
	if d.Abs().Cmp(amountLimit) >= 0 {
		return ErrOutOfRange
	}
	return nil
}

// ParseAmount parses a decimal string and applies CheckAmount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) > maxAmountText {
		return decimal.Zero, ErrOutOfRange
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := CheckAmount(value); err != nil {
		return decimal.Zero, err
	}
	return value, nil
}

// Line is the costing view of one recipe line.
type Line struct {
	CostPerStandardUnit decimal.Decimal
	Quantity            decimal.Decimal
}

// Total returns the cost contributed by the line.
func (l Line) Total() decimal.Decimal {
	return l.CostPerStandardUnit.Mul(l.Quantity)
}

// Breakdown groups the read-time economics of a recipe batch.
type Breakdown struct {
	Calculated decimal.Decimal
	PerPortion decimal.NullDecimal
	PerKg      decimal.NullDecimal
}

// PerStandardUnit divides a pack price by the number of standard units in the pack.
// Both inputs must pass CheckAmount, and the result must fit numeric(20,8).
func PerStandardUnit(purchasePackPrice, packQuantity decimal.Decimal) (decimal.Decimal, error) {
	if err := CheckAmount(purchasePackPrice); err != nil {
		return decimal.Zero, err
	}
	if err := CheckAmount(packQuantity); err != nil {
		return decimal.Zero, err
	}
	if !packQuantity.IsPositive() {
		return decimal.Zero, ErrInvalidQuantity
	}
	unitCost := purchasePackPrice.DivRound(packQuantity, Scale)
	if unitCost.Abs().Cmp(unitCostLimit) >= 0 {
		return decimal.Zero, ErrOutOfRange
	}
	return unitCost, nil
}

// Calculated sums the line totals. A recipe without lines costs zero.
func Calculated(lines []Line) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.Total())
	}
	return total
}

// PerPortion reports the cost of one serving. ok is false unless portions is set and positive.
func PerPortion(calculated decimal.Decimal, servingPortions *int) (value decimal.Decimal, ok bool) {
	if servingPortions == nil || *servingPortions <= 0 {
		return decimal.Zero, false
	}
	return calculated.DivRound(decimal.NewFromInt(int64(*servingPortions)), Scale), true
}

// PerKilogram reports the cost of one kilogram of finished yield.
func PerKilogram(calculated decimal.Decimal, finalYieldWeightGrams decimal.NullDecimal) (value decimal.Decimal, ok bool) {
	if !finalYieldWeightGrams.Valid || !finalYieldWeightGrams.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	return calculated.Mul(gramsPerKilogram).DivRound(finalYieldWeightGrams.Decimal, Scale), true
}

// Summarize computes the calculated cost and the optional yield economics in one pass.
func Summarize(lines []Line, servingPortions *int, finalYieldWeightGrams decimal.NullDecimal) Breakdown {
	calculated := Calculated(lines)
	breakdown := Breakdown{Calculated: calculated}
	if value, ok := PerPortion(calculated, servingPortions); ok {
		breakdown.PerPortion = decimal.NewNullDecimal(value)
	}
	if value, ok := PerKilogram(calculated, finalYieldWeightGrams); ok {
		breakdown.PerKg = decimal.NewNullDecimal(value)
	}
	return breakdown
}
