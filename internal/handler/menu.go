package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kedai-pos/engine/internal/order"
	"github.com/kedai-pos/engine/internal/pricing"
)

// MenuStore defines the catalog reads the menu handler needs.
// Satisfied by *gateway.PostgresStore; narrow interface for testability.
type MenuStore interface {
	ListMenuItems(ctx context.Context, outletID string) ([]order.MenuItem, error)
}

// MenuHandler serves the outlet catalog the terminal builds carts from.
type MenuHandler struct {
	store MenuStore
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(store MenuStore) *MenuHandler {
	return &MenuHandler{store: store}
}

// RegisterRoutes registers menu endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/menu-items
func (h *MenuHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
}

type menuItemResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	BasePrice   string           `json:"base_price"`
	PricingType string           `json:"pricing_type"`
	Unit        string           `json:"unit,omitempty"`
	BaseUnitQty string           `json:"base_unit_qty"`
	Presets     []presetResponse `json:"presets,omitempty"`
}

// presetResponse is a quick-pick quantity the terminal offers for weight-,
// volume- and unit-priced items.
type presetResponse struct {
	Label    string `json:"label"`
	Quantity string `json:"quantity"`
	Unit     string `json:"unit"`
}

// List handles GET /outlets/{oid}/menu-items.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.ListMenuItems(r.Context(), chi.URLParam(r, "oid"))
	if err != nil {
		log.Printf("ERROR: list menu items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]menuItemResponse, len(items))
	for i, mi := range items {
		resp[i] = toMenuItemResponse(mi)
	}
	writeJSON(w, http.StatusOK, map[string][]menuItemResponse{"menu_items": resp})
}

func toMenuItemResponse(mi order.MenuItem) menuItemResponse {
	resp := menuItemResponse{
		ID:          mi.ID,
		Name:        mi.Name,
		BasePrice:   money(mi.BasePrice),
		PricingType: mi.PricingType,
		Unit:        mi.Unit,
		BaseUnitQty: mi.BaseUnitQty.String(),
	}
	for _, p := range pricing.Presets(mi.PricingType) {
		resp.Presets = append(resp.Presets, presetResponse{
			Label:    p.Label,
			Quantity: p.Quantity.String(),
			Unit:     p.Unit,
		})
	}
	return resp
}
