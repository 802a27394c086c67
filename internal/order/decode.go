package order

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/kedai-pos/engine/internal/enum"
)

// DecodeLineItems normalizes the loosely-shaped item payloads that arrive from
// storage. Older records stored items as plain name strings, and partial
// objects from earlier schema versions may miss quantities or pricing types.
// Nothing past this boundary sees an unvalidated shape.
func DecodeLineItems(raw []byte) []LineItem {
	if len(raw) == 0 {
		return nil
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}

	items := make([]LineItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, decodeLineItem(e))
	}
	return items
}

func decodeLineItem(raw json.RawMessage) LineItem {
	// Legacy shape: a bare item name.
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return fallbackItem(name)
	}

	var li LineItem
	if err := json.Unmarshal(raw, &li); err != nil {
		return fallbackItem("")
	}

	if li.Name == "" {
		li.Name = "unknown item"
	}
	if li.Quantity < 1 {
		li.Quantity = 1
	}
	if li.PricingType == "" {
		li.PricingType = enum.PricingTypeFixed
	}
	if li.BaseUnitQty.IsZero() {
		li.BaseUnitQty = decimal.NewFromInt(1)
	}
	// A non-fixed line without its add-time price is unusable as such;
	// degrade it to a fixed line so totals stay well defined.
	if li.PricingType != enum.PricingTypeFixed && li.CalculatedPrice == nil {
		li.PricingType = enum.PricingTypeFixed
	}
	return li
}

func fallbackItem(name string) LineItem {
	if name == "" {
		name = "unknown item"
	}
	return LineItem{
		Name:        name,
		UnitPrice:   decimal.Zero,
		Quantity:    1,
		PricingType: enum.PricingTypeFixed,
		BaseUnitQty: decimal.NewFromInt(1),
	}
}
