// Package gateway is the only component that talks to persistent storage and
// realtime notification. The core depends on it through narrow contracts.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kedai-pos/engine/internal/order"
)

// Errors surfaced by gateway implementations.
var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrMenuItemNotFound = errors.New("menu item not found")
)

// Patch is a partial order update. Nil fields are left untouched.
type Patch struct {
	Status             *string
	OrderType          *string
	Source             *string
	Items              []order.LineItem
	DiscountAmount     *decimal.Decimal
	DiscountPercentage *decimal.Decimal
	CustomerName       *string
}

// Store is the persistence contract the lifecycle manager and the duplicate
// detector depend on.
type Store interface {
	// FetchActive returns orders in the given statuses created at or after
	// since, scoped to an outlet.
	FetchActive(ctx context.Context, outletID string, statuses []string, since time.Time) ([]order.Order, error)
	Get(ctx context.Context, id string) (order.Order, error)
	Create(ctx context.Context, o order.Order) (string, error)
	// Update patches an existing record. Returns ErrOrderNotFound when the id
	// is no longer known; callers must not fall back to creating a new record.
	Update(ctx context.Context, id string, p Patch) error
	Delete(ctx context.Context, id string) error
}

// EventKind is the class of change reported by a Notifier.
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// Event is a realtime change notification.
type Event struct {
	Kind           EventKind
	Order          order.Order
	PreviousStatus string // set on updates when the status changed
}

// Handler consumes change notifications. Handlers must not block.
type Handler func(Event)

// Notifier fans change notifications out to subscribers. Subscription
// lifecycle is scoped to the screen or session using it.
type Notifier interface {
	Subscribe(h Handler) (unsubscribe func())
}
