package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/kedai-pos/engine/internal/cart"
	"github.com/kedai-pos/engine/internal/enum"
	"github.com/kedai-pos/engine/internal/gateway"
	"github.com/kedai-pos/engine/internal/lifecycle"
	"github.com/kedai-pos/engine/internal/order"
	"github.com/kedai-pos/engine/internal/pricing"
)

// MenuResolver resolves catalog entries for the add-item flow.
// Satisfied by *gateway.PostgresStore; narrow interface for testability.
type MenuResolver interface {
	GetMenuItem(ctx context.Context, outletID, id string) (order.MenuItem, error)
}

// CartHandler handles the per-terminal cart and lifecycle endpoints.
type CartHandler struct {
	mgr  *lifecycle.Manager
	menu MenuResolver
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(mgr *lifecycle.Manager, menu MenuResolver) *CartHandler {
	return &CartHandler{mgr: mgr, menu: menu}
}

// RegisterRoutes registers cart endpoints on the given Chi router.
// Expected to be mounted inside a terminal-scoped subrouter:
// /outlets/{oid}/terminals/{tid}/cart
func (h *CartHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Snapshot)
	r.Post("/items", h.AddItem)
	r.Patch("/items/{id}", h.UpdateItem)
	r.Delete("/items/{id}", h.RemoveItem)
	r.Post("/clear", h.Clear)
	r.Post("/hold", h.Hold)
	r.Post("/recall", h.Recall)
	r.Post("/dispatch", h.Dispatch)
}

// --- Request / Response types ---

// addItemRequest covers all three add flows: a bare menu_item_id adds a
// fixed-price line, menu_item_id + actual_quantity/unit adds a weight-,
// volume- or unit-priced line, and name + price (no menu_item_id) adds a
// custom extra.
type addItemRequest struct {
	MenuItemID     string `json:"menu_item_id"`
	ActualQuantity string `json:"actual_quantity"`
	Unit           string `json:"unit"`
	Name           string `json:"name"`
	Price          string `json:"price"`
}

type updateItemRequest struct {
	Quantity *int32  `json:"quantity"`
	Notes    *string `json:"notes"`
}

type clearRequest struct {
	Confirmed bool `json:"confirmed"`
}

type holdRequest struct {
	Source string `json:"source"`
}

type recallRequest struct {
	HeldOrderID string `json:"held_order_id"`
}

type dispatchRequest struct {
	OrderType    string `json:"order_type"`
	Source       string `json:"source"`
	CustomerName string `json:"customer_name"`
	Resolution   string `json:"resolution"`
}

type cartResponse struct {
	Items              []lineItemResponse `json:"items"`
	DiscountAmount     string             `json:"discount_amount"`
	DiscountPercentage string             `json:"discount_percentage"`
	Total              string             `json:"total"`
	RecalledFrom       string             `json:"recalled_from,omitempty"`
}

// duplicateResponse is the 409 body when a dispatch is flagged as a likely
// repeat. The client retries with a resolution.
type duplicateResponse struct {
	Error     string         `json:"error"`
	Candidate *orderResponse `json:"candidate,omitempty"`
}

// --- Handlers ---

// Snapshot handles GET /outlets/{oid}/terminals/{tid}/cart.
func (h *CartHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.cartResponse(h.session(r)))
}

// AddItem handles POST /outlets/{oid}/terminals/{tid}/cart/items.
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	c := s.Cart()

	// Custom extra: free-form name and price, no catalog entry.
	if req.MenuItemID == "" {
		price, err := decimal.NewFromString(req.Price)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
			return
		}
		if _, err := c.AddCustomItem(req.Name, price, req.Unit); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusCreated, h.cartResponse(s))
		return
	}

	mi, err := h.menu.GetMenuItem(r.Context(), chi.URLParam(r, "oid"), req.MenuItemID)
	if err != nil {
		if errors.Is(err, gateway.ErrMenuItemNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu item not found"})
			return
		}
		log.Printf("ERROR: resolve menu item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if mi.PricingType == enum.PricingTypeFixed {
		c.AddFixedItem(mi)
		writeJSON(w, http.StatusCreated, h.cartResponse(s))
		return
	}

	qty, err := decimal.NewFromString(req.ActualQuantity)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid actual_quantity"})
		return
	}
	if _, err := c.AddPricedItem(mi, qty, req.Unit); err != nil {
		if isPricingError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: add priced item: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, h.cartResponse(s))
}

// UpdateItem handles PATCH /outlets/{oid}/terminals/{tid}/cart/items/{id}.
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	itemID := chi.URLParam(r, "id")

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Quantity == nil && req.Notes == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "quantity or notes is required"})
		return
	}

	if req.Quantity != nil {
		// Zero or negative removes the line.
		if err := s.Cart().UpdateQuantity(itemID, *req.Quantity); err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart item not found"})
			return
		}
	}
	if req.Notes != nil {
		if err := s.Cart().UpdateNotes(itemID, *req.Notes); err != nil {
			// The quantity update may have removed the line already.
			if req.Quantity == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart item not found"})
				return
			}
		}
	}

	writeJSON(w, http.StatusOK, h.cartResponse(s))
}

// RemoveItem handles DELETE /outlets/{oid}/terminals/{tid}/cart/items/{id}.
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)
	if err := s.Cart().RemoveItem(chi.URLParam(r, "id")); err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "cart item not found"})
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse(s))
}

// Clear handles POST /outlets/{oid}/terminals/{tid}/cart/clear.
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)

	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := s.Clear(req.Confirmed); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, h.cartResponse(s))
}

// Hold handles POST /outlets/{oid}/terminals/{tid}/cart/hold.
func (h *CartHandler) Hold(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)

	var req holdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	o, err := s.Hold(r.Context(), req.Source)
	if err != nil {
		if errors.Is(err, lifecycle.ErrEmptyCart) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "cart is empty"})
			return
		}
		log.Printf("ERROR: hold order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// Recall handles POST /outlets/{oid}/terminals/{tid}/cart/recall.
func (h *CartHandler) Recall(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)

	var req recallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.HeldOrderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "held_order_id is required"})
		return
	}

	o, err := s.Recall(r.Context(), req.HeldOrderID)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrCartNotEmpty), errors.Is(err, lifecycle.ErrNotHeld):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, gateway.ErrOrderNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		default:
			log.Printf("ERROR: recall order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// Dispatch handles POST /outlets/{oid}/terminals/{tid}/cart/dispatch.
//
// A suspected duplicate comes back as 409 with the most recent matching
// order; the client repeats the request with resolution set to SEND_ANYWAY
// or NON_CHARGEABLE.
func (h *CartHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	s := h.session(r)

	var req dispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	resolution := lifecycle.Resolution(req.Resolution)
	switch resolution {
	case "", lifecycle.ResolutionSendAnyway, lifecycle.ResolutionNonChargeable:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid resolution"})
		return
	}

	o, err := s.Dispatch(r.Context(), lifecycle.DispatchRequest{
		OrderType:    req.OrderType,
		Source:       req.Source,
		CustomerName: req.CustomerName,
		Resolution:   resolution,
	})
	if err != nil {
		var dup *lifecycle.DuplicateError
		switch {
		case errors.As(err, &dup):
			resp := duplicateResponse{Error: "duplicate suspected"}
			if dup.Candidate != nil {
				c := toOrderResponse(*dup.Candidate)
				resp.Candidate = &c
			}
			writeJSON(w, http.StatusConflict, resp)
		case errors.Is(err, lifecycle.ErrEmptyCart), errors.Is(err, lifecycle.ErrInvalidOrderType):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		case errors.Is(err, lifecycle.ErrDispatchInFlight):
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		case errors.Is(err, gateway.ErrOrderNotFound):
			// The recalled record was deleted from another terminal.
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "recalled order no longer exists"})
		default:
			log.Printf("ERROR: dispatch order: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		}
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

// --- Helpers ---

func (h *CartHandler) session(r *http.Request) *lifecycle.Session {
	return h.mgr.Terminal(chi.URLParam(r, "oid"), chi.URLParam(r, "tid"))
}

func (h *CartHandler) cartResponse(s *lifecycle.Session) cartResponse {
	c := s.Cart()
	items := c.Items()
	resp := cartResponse{
		Items:        make([]lineItemResponse, len(items)),
		Total:        money(c.Total()),
		RecalledFrom: s.RecalledFrom(),
	}
	for i, li := range items {
		resp.Items[i] = toLineItemResponse(li)
	}
	amount, pct := c.Discounts()
	resp.DiscountAmount = money(amount)
	resp.DiscountPercentage = money(pct)
	return resp
}

func isPricingError(err error) bool {
	return errors.Is(err, pricing.ErrInvalidQuantity) ||
		errors.Is(err, pricing.ErrUnknownUnit) ||
		errors.Is(err, pricing.ErrUnitMismatch) ||
		errors.Is(err, pricing.ErrInvalidBasePrice) ||
		errors.Is(err, cart.ErrCustomNoName) ||
		errors.Is(err, cart.ErrNegativePrice)
}
