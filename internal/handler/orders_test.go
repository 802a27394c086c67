package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kedai-pos/engine/internal/dedupe"
	"github.com/kedai-pos/engine/internal/enum"
	"github.com/kedai-pos/engine/internal/handler"
	"github.com/kedai-pos/engine/internal/lifecycle"
	"github.com/kedai-pos/engine/internal/order"
)

func newOrderRouter(store *mockGatewayStore) http.Handler {
	mgr := lifecycle.NewManager(store, dedupe.New(store))

	h := handler.NewOrderHandler(store, mgr)
	r := chi.NewRouter()
	r.Route("/outlets/{oid}/orders", h.RegisterRoutes)
	return r
}

func seedOrder(store *mockGatewayStore, id, outletID, status string, createdAt time.Time) order.Order {
	o := order.Order{
		ID:        id,
		OutletID:  outletID,
		Source:    "Table 1",
		OrderType: enum.OrderTypeDineIn,
		Status:    status,
		Items: []order.LineItem{{
			ID:          id + "-li",
			MenuItemID:  "mi-sate",
			Name:        "Sate Ayam",
			UnitPrice:   decimal.NewFromInt(25),
			Quantity:    2,
			PricingType: enum.PricingTypeFixed,
			BaseUnitQty: decimal.NewFromInt(1),
		}},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
	store.putOrder(o)
	return o
}

// --- List tests ---

func TestListOrders_ScopedToOutlet(t *testing.T) {
	store := newMockGatewayStore()
	now := time.Now()
	seedOrder(store, "o1", "outlet-1", enum.OrderStatusNew, now)
	seedOrder(store, "o2", "outlet-1", enum.OrderStatusReady, now.Add(-time.Minute))
	seedOrder(store, "o3", "outlet-2", enum.OrderStatusNew, now)
	r := newOrderRouter(store)

	rr := doJSON(t, r, "GET", "/outlets/outlet-1/orders/", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	resp := decodeResponse(t, rr)
	orders := resp["orders"].([]interface{})
	if len(orders) != 2 {
		t.Fatalf("expected 2 outlet orders, got %d", len(orders))
	}
	// Most recent first.
	if first := orders[0].(map[string]interface{}); first["id"] != "o1" {
		t.Errorf("first order: got %v, want o1", first["id"])
	}
}

func TestListOrders_StatusFilter(t *testing.T) {
	store := newMockGatewayStore()
	now := time.Now()
	seedOrder(store, "o1", "outlet-1", enum.OrderStatusNew, now)
	seedOrder(store, "o2", "outlet-1", enum.OrderStatusReady, now)
	r := newOrderRouter(store)

	rr := doJSON(t, r, "GET", "/outlets/outlet-1/orders/?status=READY", nil)
	resp := decodeResponse(t, rr)
	orders := resp["orders"].([]interface{})
	if len(orders) != 1 {
		t.Fatalf("expected 1 READY order, got %d", len(orders))
	}
	if o := orders[0].(map[string]interface{}); o["id"] != "o2" {
		t.Errorf("order: got %v, want o2", o["id"])
	}

	rr = doJSON(t, r, "GET", "/outlets/outlet-1/orders/?status=BOGUS", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bogus status filter: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestListOrders_Pagination(t *testing.T) {
	store := newMockGatewayStore()
	now := time.Now()
	for i, id := range []string{"o1", "o2", "o3"} {
		seedOrder(store, id, "outlet-1", enum.OrderStatusNew, now.Add(-time.Duration(i)*time.Minute))
	}
	r := newOrderRouter(store)

	rr := doJSON(t, r, "GET", "/outlets/outlet-1/orders/?limit=2&offset=1", nil)
	resp := decodeResponse(t, rr)
	orders := resp["orders"].([]interface{})
	if len(orders) != 2 {
		t.Fatalf("expected 2 orders, got %d", len(orders))
	}
	if o := orders[0].(map[string]interface{}); o["id"] != "o2" {
		t.Errorf("first paged order: got %v, want o2", o["id"])
	}
	if resp["limit"] != float64(2) || resp["offset"] != float64(1) {
		t.Errorf("pagination echo: got limit=%v offset=%v", resp["limit"], resp["offset"])
	}
}

// --- Get tests ---

func TestGetOrder(t *testing.T) {
	store := newMockGatewayStore()
	seedOrder(store, "o1", "outlet-1", enum.OrderStatusNew, time.Now())
	r := newOrderRouter(store)

	rr := doJSON(t, r, "GET", "/outlets/outlet-1/orders/o1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["id"] != "o1" {
		t.Errorf("id: got %v, want o1", resp["id"])
	}
	if resp["total"] != "50.00" {
		t.Errorf("total: got %v, want 50.00", resp["total"])
	}
}

func TestGetOrder_WrongOutlet(t *testing.T) {
	store := newMockGatewayStore()
	seedOrder(store, "o1", "outlet-1", enum.OrderStatusNew, time.Now())
	r := newOrderRouter(store)

	rr := doJSON(t, r, "GET", "/outlets/outlet-2/orders/o1", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestGetOrder_NotFound(t *testing.T) {
	store := newMockGatewayStore()
	r := newOrderRouter(store)

	rr := doJSON(t, r, "GET", "/outlets/outlet-1/orders/nope", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

// --- Status update tests ---

func TestUpdateStatus_ValidTransition(t *testing.T) {
	store := newMockGatewayStore()
	seedOrder(store, "o1", "outlet-1", enum.OrderStatusNew, time.Now())
	r := newOrderRouter(store)

	rr := doJSON(t, r, "PATCH", "/outlets/outlet-1/orders/o1/status",
		map[string]string{"status": enum.OrderStatusPreparing})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	if resp := decodeResponse(t, rr); resp["status"] != enum.OrderStatusPreparing {
		t.Errorf("order status: got %v, want %s", resp["status"], enum.OrderStatusPreparing)
	}
}

func TestUpdateStatus_SkippingStepRejected(t *testing.T) {
	store := newMockGatewayStore()
	seedOrder(store, "o1", "outlet-1", enum.OrderStatusNew, time.Now())
	r := newOrderRouter(store)

	rr := doJSON(t, r, "PATCH", "/outlets/outlet-1/orders/o1/status",
		map[string]string{"status": enum.OrderStatusCompleted})
	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestUpdateStatus_HeldOutsideKitchenFlow(t *testing.T) {
	store := newMockGatewayStore()
	seedOrder(store, "o1", "outlet-1", enum.OrderStatusHeld, time.Now())
	r := newOrderRouter(store)

	rr := doJSON(t, r, "PATCH", "/outlets/outlet-1/orders/o1/status",
		map[string]string{"status": enum.OrderStatusPreparing})
	if rr.Code != http.StatusConflict {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestUpdateStatus_UnknownStatus(t *testing.T) {
	store := newMockGatewayStore()
	seedOrder(store, "o1", "outlet-1", enum.OrderStatusNew, time.Now())
	r := newOrderRouter(store)

	rr := doJSON(t, r, "PATCH", "/outlets/outlet-1/orders/o1/status",
		map[string]string{"status": "LOST"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

// --- Delete tests ---

func TestDeleteOrder(t *testing.T) {
	store := newMockGatewayStore()
	seedOrder(store, "o1", "outlet-1", enum.OrderStatusHeld, time.Now())
	r := newOrderRouter(store)

	rr := doJSON(t, r, "DELETE", "/outlets/outlet-1/orders/o1", nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusNoContent, rr.Body.String())
	}

	rr = doJSON(t, r, "DELETE", "/outlets/outlet-1/orders/o1", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("second delete: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
