package cart

import (
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kedai-pos/engine/internal/enum"
	"github.com/kedai-pos/engine/internal/order"
)

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func burger() order.MenuItem {
	return order.MenuItem{
		ID:          "mi-burger",
		Name:        "Burger",
		BasePrice:   d("15"),
		PricingType: enum.PricingTypeFixed,
		BaseUnitQty: d("1"),
	}
}

func grilledFish() order.MenuItem {
	return order.MenuItem{
		ID:          "mi-fish",
		Name:        "Grilled Fish",
		BasePrice:   d("120000"),
		PricingType: enum.PricingTypeWeight,
		Unit:        enum.UnitKilogram,
		BaseUnitQty: d("1"),
	}
}

// =====================
// Fixed items
// =====================

func TestAddFixedItem_MergesByMenuItem(t *testing.T) {
	c := New()
	c.AddFixedItem(burger())
	li := c.AddFixedItem(burger())

	if c.Len() != 1 {
		t.Fatalf("expected one merged line, got %d", c.Len())
	}
	if li.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", li.Quantity)
	}
	if !c.Total().Equal(d("30")) {
		t.Errorf("expected total 30, got %s", c.Total())
	}
}

func TestAddFixedItem_ConcurrentAddsMergeCompletely(t *testing.T) {
	c := New()
	const adds = 20

	var wg sync.WaitGroup
	for i := 0; i < adds; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.AddFixedItem(burger())
		}()
	}
	wg.Wait()

	if c.Len() != 1 {
		t.Fatalf("expected one merged line, got %d", c.Len())
	}
	if got := c.Items()[0].Quantity; got != adds {
		t.Errorf("expected quantity %d, got %d (lost an increment)", adds, got)
	}
}

func TestAddFixedItem_DoesNotMergeIntoCustomLine(t *testing.T) {
	c := New()
	if _, err := c.AddCustomItem("Burger", d("15"), ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c.AddFixedItem(burger())

	if c.Len() != 2 {
		t.Fatalf("custom line must stay distinct, got %d lines", c.Len())
	}
}

// =====================
// Priced items
// =====================

func TestAddPricedItem_AlwaysNewLine(t *testing.T) {
	c := New()
	first, err := c.AddPricedItem(grilledFish(), d("250"), enum.UnitGram)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := c.AddPricedItem(grilledFish(), d("250"), enum.UnitGram)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if c.Len() != 2 {
		t.Fatalf("identical priced items must not merge, got %d lines", c.Len())
	}
	if first.ID == second.ID {
		t.Error("priced lines must have distinct ids")
	}
	if first.CalculatedPrice == nil || !first.CalculatedPrice.Equal(d("30000")) {
		t.Errorf("expected calculated price 30000, got %v", first.CalculatedPrice)
	}
	if !c.Total().Equal(d("60000")) {
		t.Errorf("expected total 60000, got %s", c.Total())
	}
}

func TestAddPricedItem_InvalidQuantity(t *testing.T) {
	c := New()
	if _, err := c.AddPricedItem(grilledFish(), d("0"), enum.UnitGram); err == nil {
		t.Fatal("expected validation error for zero quantity")
	}
	if c.Len() != 0 {
		t.Errorf("failed add must not mutate the cart, got %d lines", c.Len())
	}
}

func TestAddPricedItem_TotalNotRecomputed(t *testing.T) {
	c := New()
	li, err := c.AddPricedItem(grilledFish(), d("500"), enum.UnitGram)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Bumping the quantity of a priced line must not change its total: the
	// calculated price is authoritative once set.
	if err := c.UpdateQuantity(li.ID, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Total().Equal(d("60000")) {
		t.Errorf("expected total 60000, got %s", c.Total())
	}
}

// =====================
// Mutations
// =====================

func TestUpdateQuantity_ZeroRemovesLine(t *testing.T) {
	c := New()
	li := c.AddFixedItem(burger())

	if err := c.UpdateQuantity(li.ID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsEmpty() {
		t.Error("expected empty cart after removing the only line")
	}
}

func TestUpdateQuantity_Sets(t *testing.T) {
	c := New()
	li := c.AddFixedItem(burger())

	if err := c.UpdateQuantity(li.ID, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.Total().Equal(d("75")) {
		t.Errorf("expected total 75, got %s", c.Total())
	}
}

func TestUpdateQuantity_UnknownID(t *testing.T) {
	c := New()
	if err := c.UpdateQuantity("nope", 2); !errors.Is(err, ErrItemNotFound) {
		t.Errorf("expected ErrItemNotFound, got %v", err)
	}
}

func TestRemoveAndNotes(t *testing.T) {
	c := New()
	keep := c.AddFixedItem(burger())
	gone, err := c.AddCustomItem("Extra Rice", d("5000"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := c.UpdateNotes(keep.ID, "no onions"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.RemoveItem(gone.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	items := c.Items()
	if len(items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(items))
	}
	if items[0].Notes != "no onions" {
		t.Errorf("expected notes to stick, got %q", items[0].Notes)
	}
}

func TestAddCustomItem_Validation(t *testing.T) {
	c := New()
	if _, err := c.AddCustomItem("", d("10"), ""); !errors.Is(err, ErrCustomNoName) {
		t.Errorf("expected ErrCustomNoName, got %v", err)
	}
	if _, err := c.AddCustomItem("Thing", d("-1"), ""); !errors.Is(err, ErrNegativePrice) {
		t.Errorf("expected ErrNegativePrice, got %v", err)
	}
}

// =====================
// Totals
// =====================

func TestTotal_FixedLinesWithDiscount(t *testing.T) {
	c := New()
	c.AddFixedItem(burger())
	c.AddFixedItem(burger()) // qty 2 -> 30
	li := c.AddFixedItem(order.MenuItem{ID: "mi-tea", Name: "Iced Tea", BasePrice: d("4"), PricingType: enum.PricingTypeFixed})
	_ = li

	c.SetDiscount(d("4"), decimal.Zero)
	if !c.Total().Equal(d("30")) { // 34 - 4
		t.Errorf("expected total 30, got %s", c.Total())
	}

	c.SetDiscount(decimal.Zero, d("50"))
	if !c.Total().Equal(d("17")) { // 34 * 0.5
		t.Errorf("expected total 17, got %s", c.Total())
	}
}

func TestTotal_NeverNegative(t *testing.T) {
	c := New()
	c.AddFixedItem(burger())
	c.SetDiscount(d("100"), decimal.Zero)
	if !c.Total().Equal(decimal.Zero) {
		t.Errorf("expected zero total, got %s", c.Total())
	}
}

func TestClear(t *testing.T) {
	c := New()
	c.AddFixedItem(burger())
	c.SetDiscount(d("1"), decimal.Zero)
	c.Clear()

	if !c.IsEmpty() {
		t.Error("expected empty cart after Clear")
	}
	if !c.Total().Equal(decimal.Zero) {
		t.Errorf("expected zero total after Clear, got %s", c.Total())
	}
}
