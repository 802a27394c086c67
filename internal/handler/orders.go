package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kedai-pos/engine/internal/enum"
	"github.com/kedai-pos/engine/internal/gateway"
	"github.com/kedai-pos/engine/internal/order"
)

// OrderStore defines the storage methods the order read/update handlers need.
// Satisfied by *gateway.PostgresStore; narrow interface for testability.
type OrderStore interface {
	List(ctx context.Context, outletID string, f gateway.ListFilter) ([]order.Order, error)
	Get(ctx context.Context, id string) (order.Order, error)
	Update(ctx context.Context, id string, p gateway.Patch) error
}

// OrderDeleter removes an order permanently and detaches any terminal session
// that still had it recalled. Satisfied by *lifecycle.Manager.
type OrderDeleter interface {
	Delete(ctx context.Context, orderID string) error
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	store   OrderStore
	deleter OrderDeleter
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(store OrderStore, deleter OrderDeleter) *OrderHandler {
	return &OrderHandler{store: store, deleter: deleter}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside an outlet-scoped subrouter: /outlets/{oid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type updateStatusRequest struct {
	Status string `json:"status"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// List handles GET /outlets/{oid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	outletID := chi.URLParam(r, "oid")

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}

	f := gateway.ListFilter{Limit: limit, Offset: offset}
	if s := r.URL.Query().Get("status"); s != "" {
		if !isValidOrderStatus(s) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
			return
		}
		f.Status = s
	}
	if s := r.URL.Query().Get("type"); s != "" {
		f.OrderType = s
	}

	orders, err := h.store.List(r.Context(), outletID, f)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, orderListResponse{Orders: resp, Limit: limit, Offset: offset})
}

// Get handles GET /outlets/{oid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	o, ok := h.fetchOutletOrder(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

// UpdateStatus handles PATCH /outlets/{oid}/orders/{id}/status.
// Kitchen-driven transitions only; HELD orders belong to the terminal flow
// and are moved through hold/recall/dispatch instead.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}
	if !isValidOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	current, ok := h.fetchOutletOrder(w, r)
	if !ok {
		return
	}

	if err := validateStatusTransition(current.Status, req.Status); err != nil {
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	}

	if err := h.store.Update(r.Context(), current.ID, gateway.Patch{Status: &req.Status}); err != nil {
		if errors.Is(err, gateway.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	updated, err := h.store.Get(r.Context(), current.ID)
	if err != nil {
		log.Printf("ERROR: get order after status update: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// Delete handles DELETE /outlets/{oid}/orders/{id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	o, ok := h.fetchOutletOrder(w, r)
	if !ok {
		return
	}

	if err := h.deleter.Delete(r.Context(), o.ID); err != nil {
		if errors.Is(err, gateway.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: delete order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

// fetchOutletOrder loads the {id} order and verifies it belongs to {oid}.
// Writes the error response itself and reports success via ok.
func (h *OrderHandler) fetchOutletOrder(w http.ResponseWriter, r *http.Request) (order.Order, bool) {
	orderID := chi.URLParam(r, "id")

	o, err := h.store.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, gateway.ErrOrderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return order.Order{}, false
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return order.Order{}, false
	}
	if o.OutletID != chi.URLParam(r, "oid") {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return order.Order{}, false
	}
	return o, true
}

// isValidOrderStatus checks if the given status is a known order status.
func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusHeld,
		enum.OrderStatusNew,
		enum.OrderStatusPreparing,
		enum.OrderStatusReady,
		enum.OrderStatusCompleted:
		return true
	}
	return false
}

// allowedTransitions defines valid kitchen status transitions.
// Key is current status, value is the set of statuses it can move to.
// HELD is deliberately absent on both sides: held orders only change
// through recall and dispatch.
var allowedTransitions = map[string][]string{
	enum.OrderStatusNew:       {enum.OrderStatusPreparing},
	enum.OrderStatusPreparing: {enum.OrderStatusReady},
	enum.OrderStatusReady:     {enum.OrderStatusCompleted},
}

// validateStatusTransition checks if the transition from current to next is allowed.
func validateStatusTransition(current, next string) error {
	allowed, ok := allowedTransitions[current]
	if !ok {
		return fmt.Errorf("cannot transition from %s", current)
	}
	for _, s := range allowed {
		if s == next {
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %s to %s", current, next)
}
