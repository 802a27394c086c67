// Package pricing converts user-entered quantities into monetary amounts for
// weight-, volume- and unit-priced menu items.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kedai-pos/engine/internal/enum"
)

// Errors returned by the calculator.
var (
	ErrInvalidQuantity  = errors.New("quantity must be a positive number")
	ErrUnknownUnit      = errors.New("unknown unit")
	ErrUnitMismatch     = errors.New("unit does not match item pricing unit")
	ErrInvalidBasePrice = errors.New("invalid base price")
)

var thousand = decimal.NewFromInt(1000)

// toBase returns the factor converting entered into base, or an error when the
// two units are not convertible. 1000 g = 1 kg, 1000 ml = 1 L; count units
// have no conversion.
func toBase(entered, base string) (decimal.Decimal, error) {
	if entered == base {
		return decimal.NewFromInt(1), nil
	}
	switch {
	case entered == enum.UnitGram && base == enum.UnitKilogram:
		return decimal.NewFromInt(1).Div(thousand), nil
	case entered == enum.UnitKilogram && base == enum.UnitGram:
		return thousand, nil
	case entered == enum.UnitMilliliter && base == enum.UnitLiter:
		return decimal.NewFromInt(1).Div(thousand), nil
	case entered == enum.UnitLiter && base == enum.UnitMilliliter:
		return thousand, nil
	}
	if !knownUnit(entered) || !knownUnit(base) {
		return decimal.Zero, ErrUnknownUnit
	}
	return decimal.Zero, ErrUnitMismatch
}

func knownUnit(u string) bool {
	switch u {
	case enum.UnitKilogram, enum.UnitGram, enum.UnitLiter, enum.UnitMilliliter,
		enum.UnitPiece, enum.UnitPlate, enum.UnitCount:
		return true
	}
	return false
}

// Compute returns the amount for enteredQty of enteredUnit, given an item
// priced at basePrice per baseUnitQty of pricingUnit:
//
//	amount = basePrice / baseUnitQty * qtyInBaseUnit
//
// It is a pure function; callers fix the result on the line item at add time.
func Compute(basePrice, baseUnitQty decimal.Decimal, pricingUnit string, enteredQty decimal.Decimal, enteredUnit string) (decimal.Decimal, error) {
	if !enteredQty.IsPositive() {
		return decimal.Zero, ErrInvalidQuantity
	}
	if !baseUnitQty.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: base unit quantity %s", ErrInvalidBasePrice, baseUnitQty)
	}

	factor, err := toBase(enteredUnit, pricingUnit)
	if err != nil {
		return decimal.Zero, err
	}

	qtyInBase := enteredQty.Mul(factor)
	return basePrice.Div(baseUnitQty).Mul(qtyInBase), nil
}

// ComputeFromString parses a user-entered quantity string before computing.
// Non-numeric input is a validation error, never a panic.
func ComputeFromString(basePrice, baseUnitQty decimal.Decimal, pricingUnit, enteredQty, enteredUnit string) (decimal.Decimal, error) {
	qty, err := decimal.NewFromString(enteredQty)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidQuantity, enteredQty)
	}
	return Compute(basePrice, baseUnitQty, pricingUnit, qty, enteredUnit)
}

// Preset is a quick-select quantity offered to the operator for a pricing
// type. Presets only pre-fill quantity and unit; the result still goes
// through Compute.
type Preset struct {
	Label    string          `json:"label"`
	Quantity decimal.Decimal `json:"quantity"`
	Unit     string          `json:"unit"`
}

// Presets returns the quick-select entries for the given pricing type.
func Presets(pricingType string) []Preset {
	switch pricingType {
	case enum.PricingTypeWeight:
		return []Preset{
			{Label: "100 g", Quantity: decimal.NewFromInt(100), Unit: enum.UnitGram},
			{Label: "250 g", Quantity: decimal.NewFromInt(250), Unit: enum.UnitGram},
			{Label: "500 g", Quantity: decimal.NewFromInt(500), Unit: enum.UnitGram},
			{Label: "1 kg", Quantity: decimal.NewFromInt(1), Unit: enum.UnitKilogram},
		}
	case enum.PricingTypeVolume:
		return []Preset{
			{Label: "250 ml", Quantity: decimal.NewFromInt(250), Unit: enum.UnitMilliliter},
			{Label: "500 ml", Quantity: decimal.NewFromInt(500), Unit: enum.UnitMilliliter},
			{Label: "1 L", Quantity: decimal.NewFromInt(1), Unit: enum.UnitLiter},
		}
	case enum.PricingTypeUnit:
		return []Preset{
			{Label: "1", Quantity: decimal.NewFromInt(1), Unit: enum.UnitPiece},
			{Label: "2", Quantity: decimal.NewFromInt(2), Unit: enum.UnitPiece},
			{Label: "5", Quantity: decimal.NewFromInt(5), Unit: enum.UnitPiece},
		}
	}
	return nil
}
