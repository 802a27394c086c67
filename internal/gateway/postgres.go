package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kedai-pos/engine/internal/order"
)

// PostgresStore implements Store on a pgx pool. Items are stored as a JSONB
// column and pass through the loose decode boundary on read. Writes publish
// change notifications on the bus when one is attached.
type PostgresStore struct {
	pool *pgxpool.Pool
	bus  *Bus
}

// NewPostgresStore creates a store over the given pool. bus may be nil when
// no realtime notification is wanted (tests, seeding).
func NewPostgresStore(pool *pgxpool.Pool, bus *Bus) *PostgresStore {
	return &PostgresStore{pool: pool, bus: bus}
}

const orderColumns = `id, outlet_id, source, order_type, status, items,
	discount_amount, discount_percentage, customer_name, created_at, updated_at`

// FetchActive returns outlet orders in the given statuses created at or
// after since, most recent first.
func (s *PostgresStore) FetchActive(ctx context.Context, outletID string, statuses []string, since time.Time) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE outlet_id = $1 AND status = ANY($2) AND created_at >= $3
		ORDER BY created_at DESC
	`, outletID, statuses, since)
	if err != nil {
		return nil, fmt.Errorf("fetch active orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListFilter narrows and pages an outlet order listing. Zero-value string
// fields are not applied.
type ListFilter struct {
	Status    string
	OrderType string
	Limit     int
	Offset    int
}

// List returns outlet orders, most recent first, with optional status and
// order-type filters.
func (s *PostgresStore) List(ctx context.Context, outletID string, f ListFilter) ([]order.Order, error) {
	where := []string{"outlet_id = $1"}
	args := []any{outletID}

	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.OrderType != "" {
		args = append(args, f.OrderType)
		where = append(where, fmt.Sprintf("order_type = $%d", len(args)))
	}
	args = append(args, f.Limit, f.Offset)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT `+orderColumns+`
		FROM orders
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, strings.Join(where, " AND "), len(args)-1, len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// Get loads a single order by id.
func (s *PostgresStore) Get(ctx context.Context, id string) (order.Order, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id)

	o, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, ErrOrderNotFound
		}
		return order.Order{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// Create inserts a new order and returns its id.
func (s *PostgresStore) Create(ctx context.Context, o order.Order) (string, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	items, err := json.Marshal(o.Items)
	if err != nil {
		return "", fmt.Errorf("marshal items: %w", err)
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO orders
			(id, outlet_id, source, order_type, status, items,
			 discount_amount, discount_percentage, customer_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		RETURNING created_at, updated_at
	`, o.ID, o.OutletID, o.Source, o.OrderType, o.Status, items,
		o.DiscountAmount, o.DiscountPercentage, nullable(o.CustomerName))
	if err := row.Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
		return "", fmt.Errorf("insert order: %w", err)
	}

	s.publish(Event{Kind: EventInsert, Order: o})
	return o.ID, nil
}

// Update applies a patch to an existing order. ErrOrderNotFound when the id
// is gone; identity continuity forbids falling back to an insert.
func (s *PostgresStore) Update(ctx context.Context, id string, p Patch) error {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	sets := []string{"updated_at = NOW()"}
	args := []any{id}

	add := func(col string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.OrderType != nil {
		add("order_type", *p.OrderType)
	}
	if p.Source != nil {
		add("source", *p.Source)
	}
	if p.Items != nil {
		items, err := json.Marshal(p.Items)
		if err != nil {
			return fmt.Errorf("marshal items: %w", err)
		}
		add("items", items)
	}
	if p.DiscountAmount != nil {
		add("discount_amount", *p.DiscountAmount)
	}
	if p.DiscountPercentage != nil {
		add("discount_percentage", *p.DiscountPercentage)
	}
	if p.CustomerName != nil {
		add("customer_name", nullable(*p.CustomerName))
	}

	tag, err := s.pool.Exec(ctx,
		"UPDATE orders SET "+strings.Join(sets, ", ")+" WHERE id = $1", args...)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	updated, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	ev := Event{Kind: EventUpdate, Order: updated}
	if updated.Status != prev.Status {
		ev.PreviousStatus = prev.Status
	}
	s.publish(ev)
	return nil
}

// Delete removes an order permanently.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	prev, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrOrderNotFound
	}

	s.publish(Event{Kind: EventDelete, Order: prev})
	return nil
}

// GetMenuItem resolves a catalog entry for the add-item flow.
func (s *PostgresStore) GetMenuItem(ctx context.Context, outletID, id string) (order.MenuItem, error) {
	var mi order.MenuItem
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, base_price, pricing_type, unit, base_unit_qty
		FROM menu_items
		WHERE id = $1 AND outlet_id = $2
	`, id, outletID).Scan(&mi.ID, &mi.Name, &mi.BasePrice, &mi.PricingType, &mi.Unit, &mi.BaseUnitQty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.MenuItem{}, ErrMenuItemNotFound
		}
		return order.MenuItem{}, fmt.Errorf("get menu item: %w", err)
	}
	return mi, nil
}

// ListMenuItems returns the outlet's catalog, name order.
func (s *PostgresStore) ListMenuItems(ctx context.Context, outletID string) ([]order.MenuItem, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, base_price, pricing_type, unit, base_unit_qty
		FROM menu_items
		WHERE outlet_id = $1
		ORDER BY name
	`, outletID)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	defer rows.Close()

	var items []order.MenuItem
	for rows.Next() {
		var mi order.MenuItem
		if err := rows.Scan(&mi.ID, &mi.Name, &mi.BasePrice, &mi.PricingType, &mi.Unit, &mi.BaseUnitQty); err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, mi)
	}
	return items, rows.Err()
}

func (s *PostgresStore) publish(e Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

// rowScanner is satisfied by both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(r rowScanner) (order.Order, error) {
	var (
		o        order.Order
		rawItems []byte
		customer *string
	)
	err := r.Scan(&o.ID, &o.OutletID, &o.Source, &o.OrderType, &o.Status, &rawItems,
		&o.DiscountAmount, &o.DiscountPercentage, &customer, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return order.Order{}, err
	}
	o.Items = order.DecodeLineItems(rawItems)
	if customer != nil {
		o.CustomerName = *customer
	}
	return o, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
