// Package lifecycle owns the order state machine at the terminal: hold,
// recall, dispatch, clear and delete, with identity continuity across
// hold→recall→dispatch and single-flight dispatch per cart.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kedai-pos/engine/internal/cart"
	"github.com/kedai-pos/engine/internal/dedupe"
	"github.com/kedai-pos/engine/internal/enum"
	"github.com/kedai-pos/engine/internal/gateway"
	"github.com/kedai-pos/engine/internal/order"
)

// Validation errors. Local, non-fatal, state unchanged.
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrCartNotEmpty         = errors.New("cart is not empty")
	ErrInvalidOrderType     = errors.New("invalid order_type")
	ErrConfirmationRequired = errors.New("clearing a non-empty cart requires confirmation")
	ErrDispatchInFlight     = errors.New("a dispatch is already in progress")
	ErrNotHeld              = errors.New("order is not held")
)

// DuplicateError reports a likely accidental repeat. The caller presents the
// candidate and retries the dispatch with an explicit Resolution.
type DuplicateError struct {
	Candidate *order.Order
}

func (e *DuplicateError) Error() string { return "order looks like a recent duplicate" }

// Resolution is the operator's decision on a flagged duplicate.
type Resolution string

const (
	// ResolutionSendAnyway dispatches as originally intended.
	ResolutionSendAnyway Resolution = "SEND_ANYWAY"
	// ResolutionNonChargeable forces the order type to NON_CHARGEABLE,
	// excluding it from revenue and from future duplicate matching.
	ResolutionNonChargeable Resolution = "NON_CHARGEABLE"
)

// DispatchRequest carries the dispatch parameters for a session's cart.
type DispatchRequest struct {
	OrderType    string
	Source       string
	CustomerName string
	Resolution   Resolution
}

// ReadyAlertFunc is called when the gateway reports a kitchen-driven
// transition into READY, so the UI can alert the operator.
type ReadyAlertFunc func(o order.Order)

// Manager hands out one Session per terminal and relays kitchen-driven status
// changes observed on the gateway subscription.
type Manager struct {
	store    gateway.Store
	detector *dedupe.Detector
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a Manager. Each session carries its own duplicate
// suppression cache, recorded on every successful dispatch.
func NewManager(store gateway.Store, detector *dedupe.Detector) *Manager {
	return &Manager{
		store:    store,
		detector: detector,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// Terminal returns the session for a terminal within an outlet, creating it
// with an empty cart on first use.
func (m *Manager) Terminal(outletID, terminalID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := outletID + "/" + terminalID
	if s, ok := m.sessions[key]; ok {
		return s
	}
	s := &Session{
		cart:     cart.New(),
		store:    m.store,
		detector: m.detector,
		cache:    dedupe.NewCache(),
		outletID: outletID,
		now:      m.now,
	}
	m.sessions[key] = s
	return s
}

// Delete removes a held or active order permanently and detaches any session
// that still had it recalled. Irreversible.
func (m *Manager) Delete(ctx context.Context, orderID string) error {
	if err := m.store.Delete(ctx, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	m.mu.Lock()
	for _, s := range m.sessions {
		s.detachRecall(orderID)
	}
	m.mu.Unlock()
	return nil
}

// ObserveStatusChanges subscribes to the notifier and fires alert on every
// transition into READY. Returns the unsubscribe function; the caller scopes
// it to the screen or session lifetime.
func (m *Manager) ObserveStatusChanges(n gateway.Notifier, alert ReadyAlertFunc) func() {
	return n.Subscribe(func(e gateway.Event) {
		if e.Kind != gateway.EventUpdate {
			return
		}
		if e.Order.Status == enum.OrderStatusReady && e.PreviousStatus != "" && e.PreviousStatus != enum.OrderStatusReady {
			alert(e.Order)
		}
	})
}

// Session is the per-terminal order-building state: one cart, one duplicate
// suppression cache, at most one recalled order, at most one dispatch in
// flight.
type Session struct {
	cart     *cart.Cart
	store    gateway.Store
	detector *dedupe.Detector
	cache    *dedupe.Cache
	outletID string
	now      func() time.Time

	// mu guards the recall marker, which concurrent requests for the same
	// terminal read and write. recalledID/recalledSource tie the cart back
	// to the held order it was loaded from; hold and dispatch then update
	// that record in place.
	mu             sync.Mutex
	recalledID     string
	recalledSource string

	dispatching atomic.Bool
}

// Cart exposes the session's cart for item mutations.
func (s *Session) Cart() *cart.Cart { return s.cart }

// RecalledFrom returns the held order id this cart was recalled from, if any.
func (s *Session) RecalledFrom() string {
	id, _ := s.recallState()
	return id
}

// Hold persists the cart as a held order and clears it. When the cart was
// recalled from an existing held order the same record is updated; a second
// record is never created.
func (s *Session) Hold(ctx context.Context, source string) (order.Order, error) {
	if s.cart.IsEmpty() {
		return order.Order{}, ErrEmptyCart
	}
	recalledID, recalledSource := s.recallState()
	if source == "" {
		source = recalledSource
	}

	o, err := s.persist(ctx, recalledID, source, "", enum.OrderStatusHeld, "")
	if err != nil {
		return order.Order{}, err
	}

	s.cart.Clear()
	s.clearRecall()
	return o, nil
}

// Recall loads a held order's items into the empty cart and remembers its
// identity so a later hold or dispatch updates the same record.
func (s *Session) Recall(ctx context.Context, heldOrderID string) (order.Order, error) {
	if !s.cart.IsEmpty() {
		return order.Order{}, ErrCartNotEmpty
	}

	o, err := s.store.Get(ctx, heldOrderID)
	if err != nil {
		return order.Order{}, fmt.Errorf("recall order: %w", err)
	}
	if o.Status != enum.OrderStatusHeld {
		return order.Order{}, ErrNotHeld
	}

	s.cart.Load(o.Items)
	s.cart.SetDiscount(o.DiscountAmount, o.DiscountPercentage)
	s.setRecall(o.ID, o.Source)
	return o, nil
}

// Dispatch sends the cart to the kitchen. The duplicate detector runs first
// unless the order is non-chargeable or the caller already resolved a
// duplicate report. Exactly one dispatch may be in flight per session; while
// one is running, further calls return ErrDispatchInFlight and are ignored.
func (s *Session) Dispatch(ctx context.Context, req DispatchRequest) (order.Order, error) {
	if s.cart.IsEmpty() {
		return order.Order{}, ErrEmptyCart
	}
	orderType, err := validateOrderType(req.OrderType)
	if err != nil {
		return order.Order{}, err
	}
	if req.Resolution == ResolutionNonChargeable {
		orderType = enum.OrderTypeNonChargeable
	}

	if !s.dispatching.CompareAndSwap(false, true) {
		return order.Order{}, ErrDispatchInFlight
	}
	defer s.dispatching.Store(false)

	recalledID, recalledSource := s.recallState()
	source := req.Source
	if source == "" {
		source = recalledSource
	}

	if req.Resolution == "" {
		res := s.detector.Check(ctx, s.cache, s.outletID, source, orderType, s.cart.Items())
		if res.Duplicate {
			return order.Order{}, &DuplicateError{Candidate: res.Candidate}
		}
	}

	o, err := s.persist(ctx, recalledID, source, orderType, enum.OrderStatusNew, req.CustomerName)
	if err != nil {
		// Cart stays intact so the operator can retry without re-entry.
		return order.Order{}, err
	}

	s.cache.Record(dedupe.Hash(source, o.Items), s.now())
	s.cart.Clear()
	s.clearRecall()
	return o, nil
}

// Clear discards the cart. A non-empty cart requires explicit confirmation;
// declining leaves every line untouched. Clearing an empty cart is a no-op.
func (s *Session) Clear(confirmed bool) error {
	if s.cart.IsEmpty() {
		return nil
	}
	if !confirmed {
		return ErrConfirmationRequired
	}
	s.cart.Clear()
	s.clearRecall()
	return nil
}

// persist creates the order, or updates the recalled record in place when one
// is attached. orderType is empty for holds, which keep the recalled type.
func (s *Session) persist(ctx context.Context, recalledID, source, orderType, status, customer string) (order.Order, error) {
	items := s.cart.Items()
	discountAmount, discountPct := s.cart.Discounts()

	if recalledID != "" {
		patch := gateway.Patch{
			Status:             &status,
			Source:             &source,
			Items:              items,
			DiscountAmount:     &discountAmount,
			DiscountPercentage: &discountPct,
		}
		if orderType != "" {
			patch.OrderType = &orderType
		}
		if customer != "" {
			patch.CustomerName = &customer
		}
		if err := s.store.Update(ctx, recalledID, patch); err != nil {
			return order.Order{}, fmt.Errorf("update order %s: %w", recalledID, err)
		}
		return s.store.Get(ctx, recalledID)
	}

	if orderType == "" {
		orderType = enum.OrderTypeDineIn
	}
	o := order.Order{
		OutletID:           s.outletID,
		Source:             source,
		OrderType:          orderType,
		Status:             status,
		Items:              items,
		DiscountAmount:     discountAmount,
		DiscountPercentage: discountPct,
		CustomerName:       customer,
	}
	id, err := s.store.Create(ctx, o)
	if err != nil {
		return order.Order{}, fmt.Errorf("create order: %w", err)
	}
	o.ID = id
	return o, nil
}

func (s *Session) recallState() (id, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recalledID, s.recalledSource
}

func (s *Session) setRecall(id, source string) {
	s.mu.Lock()
	s.recalledID = id
	s.recalledSource = source
	s.mu.Unlock()
}

func (s *Session) clearRecall() { s.setRecall("", "") }

// detachRecall drops the recall marker only if it points at orderID.
func (s *Session) detachRecall(orderID string) {
	s.mu.Lock()
	if s.recalledID == orderID {
		s.recalledID = ""
		s.recalledSource = ""
	}
	s.mu.Unlock()
}

func validateOrderType(t string) (string, error) {
	switch t {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeaway,
		enum.OrderTypeDelivery, enum.OrderTypeNonChargeable:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOrderType, t)
}
