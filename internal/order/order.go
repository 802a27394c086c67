// Package order holds the domain model shared by the cart, the duplicate
// detector, the lifecycle manager and the gateway.
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is the catalog entry a line item is built from.
type MenuItem struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	BasePrice   decimal.Decimal `json:"base_price"`
	PricingType string          `json:"pricing_type"`
	// Unit and BaseUnitQty describe how BasePrice is quoted, e.g. 120.00 per 1 kg.
	// BaseUnitQty defaults to 1 when unset.
	Unit        string          `json:"unit"`
	BaseUnitQty decimal.Decimal `json:"base_unit_qty"`
}

// LineItem is one entry in an order's item list.
//
// For FIXED pricing the line total is UnitPrice * Quantity. For weight-,
// volume- and unit-priced lines the total is CalculatedPrice, fixed at add
// time and never recomputed from the quantity afterwards.
type LineItem struct {
	ID              string           `json:"id"`
	MenuItemID      string           `json:"menu_item_id,omitempty"`
	Name            string           `json:"name"`
	UnitPrice       decimal.Decimal  `json:"unit_price"`
	Quantity        int32            `json:"quantity"`
	PricingType     string           `json:"pricing_type"`
	ActualQuantity  *decimal.Decimal `json:"actual_quantity,omitempty"`
	Unit            string           `json:"unit,omitempty"`
	BaseUnitQty     decimal.Decimal  `json:"base_unit_qty"`
	CalculatedPrice *decimal.Decimal `json:"calculated_price,omitempty"`
	Modifiers       []string         `json:"modifiers,omitempty"`
	Notes           string           `json:"notes,omitempty"`
	IsCustomExtra   bool             `json:"is_custom_extra,omitempty"`
}

// Total returns the authoritative line total.
func (li LineItem) Total() decimal.Decimal {
	if li.CalculatedPrice != nil {
		return *li.CalculatedPrice
	}
	return li.UnitPrice.Mul(decimal.NewFromInt32(li.Quantity))
}

// Order is a persisted order as seen by the POS terminal.
type Order struct {
	ID                 string          `json:"id"`
	OutletID           string          `json:"outlet_id"`
	Source             string          `json:"source"`
	OrderType          string          `json:"order_type"`
	Status             string          `json:"status"`
	Items              []LineItem      `json:"items"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	CustomerName       string          `json:"customer_name,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// Total sums the line totals and applies order-level discounts.
func (o Order) Total() decimal.Decimal {
	sum := decimal.Zero
	for _, li := range o.Items {
		sum = sum.Add(li.Total())
	}
	if o.DiscountPercentage.IsPositive() {
		sum = sum.Sub(sum.Mul(o.DiscountPercentage).Div(decimal.NewFromInt(100)))
	}
	sum = sum.Sub(o.DiscountAmount)
	if sum.IsNegative() {
		return decimal.Zero
	}
	return sum
}
