// Package cart implements the mutable line-item collection for the order
// currently being built at a terminal.
package cart

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kedai-pos/engine/internal/enum"
	"github.com/kedai-pos/engine/internal/order"
	"github.com/kedai-pos/engine/internal/pricing"
)

// Errors returned by cart operations.
var (
	ErrItemNotFound  = errors.New("line item not found")
	ErrCustomNoName  = errors.New("custom item requires a name")
	ErrNegativePrice = errors.New("price must not be negative")
)

// Cart is the in-memory order being built. A cart belongs to exactly one
// terminal session, but concurrent requests for that terminal may still hit
// it at once, so every method serializes on an internal mutex.
type Cart struct {
	mu                 sync.Mutex
	items              []order.LineItem
	discountAmount     decimal.Decimal
	discountPercentage decimal.Decimal
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddFixedItem adds a fixed-price menu item. If a non-custom line for the
// same menu item already exists its quantity is incremented, otherwise a new
// line with quantity 1 is appended. Returns the affected line.
func (c *Cart) AddFixedItem(mi order.MenuItem) order.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if !c.items[i].IsCustomExtra && c.items[i].MenuItemID == mi.ID && c.items[i].PricingType == enum.PricingTypeFixed {
			c.items[i].Quantity++
			return c.items[i]
		}
	}
	li := order.LineItem{
		ID:          uuid.NewString(),
		MenuItemID:  mi.ID,
		Name:        mi.Name,
		UnitPrice:   mi.BasePrice,
		Quantity:    1,
		PricingType: enum.PricingTypeFixed,
		BaseUnitQty: baseQtyOrOne(mi.BaseUnitQty),
	}
	c.items = append(c.items, li)
	return li
}

// AddPricedItem adds a weight-, volume- or unit-priced menu item. The price
// is computed once here and fixed on the line; identical entries are never
// merged.
func (c *Cart) AddPricedItem(mi order.MenuItem, enteredQty decimal.Decimal, enteredUnit string) (order.LineItem, error) {
	baseQty := baseQtyOrOne(mi.BaseUnitQty)
	amount, err := pricing.Compute(mi.BasePrice, baseQty, mi.Unit, enteredQty, enteredUnit)
	if err != nil {
		return order.LineItem{}, fmt.Errorf("price %s: %w", mi.Name, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	li := order.LineItem{
		ID:              uuid.NewString(),
		MenuItemID:      mi.ID,
		Name:            mi.Name,
		UnitPrice:       mi.BasePrice,
		Quantity:        1,
		PricingType:     mi.PricingType,
		ActualQuantity:  &enteredQty,
		Unit:            enteredUnit,
		BaseUnitQty:     baseQty,
		CalculatedPrice: &amount,
	}
	c.items = append(c.items, li)
	return li, nil
}

// AddCustomItem appends an operator-defined ad-hoc line. Custom lines carry
// no menu item back-reference and are never merged.
func (c *Cart) AddCustomItem(name string, price decimal.Decimal, unit string) (order.LineItem, error) {
	if name == "" {
		return order.LineItem{}, ErrCustomNoName
	}
	if price.IsNegative() {
		return order.LineItem{}, ErrNegativePrice
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	li := order.LineItem{
		ID:            uuid.NewString(),
		Name:          name,
		UnitPrice:     price,
		Quantity:      1,
		PricingType:   enum.PricingTypeFixed,
		Unit:          unit,
		BaseUnitQty:   decimal.NewFromInt(1),
		IsCustomExtra: true,
	}
	c.items = append(c.items, li)
	return li, nil
}

// UpdateQuantity sets a fixed line's quantity. Zero or negative removes the
// line.
func (c *Cart) UpdateQuantity(id string, qty int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			if qty <= 0 {
				c.items = append(c.items[:i], c.items[i+1:]...)
				return nil
			}
			c.items[i].Quantity = qty
			return nil
		}
	}
	return ErrItemNotFound
}

// RemoveItem deletes a line by id.
func (c *Cart) RemoveItem(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return nil
		}
	}
	return ErrItemNotFound
}

// UpdateNotes replaces a line's free-text notes.
func (c *Cart) UpdateNotes(id, notes string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Notes = notes
			return nil
		}
	}
	return ErrItemNotFound
}

// Load replaces the cart contents with items recalled from a held order.
func (c *Cart) Load(items []order.LineItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make([]order.LineItem, len(items))
	copy(c.items, items)
}

// SetDiscount sets order-level discounts applied by Total.
func (c *Cart) SetDiscount(amount, percentage decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.discountAmount = amount
	c.discountPercentage = percentage
}

// Clear drops all lines and discounts.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.discountAmount = decimal.Zero
	c.discountPercentage = decimal.Zero
}

// Len returns the number of lines.
func (c *Cart) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []order.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]order.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Discounts returns the order-level discount amount and percentage.
func (c *Cart) Discounts() (amount, percentage decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.discountAmount, c.discountPercentage
}

// Total sums line totals (CalculatedPrice when present, UnitPrice*Quantity
// otherwise) and subtracts the discounts. Never negative.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	sum := decimal.Zero
	for _, li := range c.items {
		sum = sum.Add(li.Total())
	}
	if c.discountPercentage.IsPositive() {
		sum = sum.Sub(sum.Mul(c.discountPercentage).Div(decimal.NewFromInt(100)))
	}
	sum = sum.Sub(c.discountAmount)
	if sum.IsNegative() {
		return decimal.Zero
	}
	return sum
}

func baseQtyOrOne(q decimal.Decimal) decimal.Decimal {
	if q.IsPositive() {
		return q
	}
	return decimal.NewFromInt(1)
}
