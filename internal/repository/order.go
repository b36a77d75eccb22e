package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/order"
)

const (
	createOrderSQL = `INSERT INTO orders (id, client_id, lines, total, status, placed_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	getOrderByIDSQL = `SELECT id, client_id, lines, total, status, placed_at
		FROM orders WHERE id = $1`

	updateOrderSQL = `UPDATE orders SET client_id = $2, lines = $3, total = $4, status = $5, placed_at = $6
		WHERE id = $1`

	listOrdersSQL = `SELECT id, client_id, lines, total, status, placed_at
		FROM orders ORDER BY placed_at DESC, id LIMIT $1 OFFSET $2`

	countOrdersSQL = `SELECT count(*) FROM orders`

	listOrdersByRangeSQL = `SELECT id, client_id, lines, total, status, placed_at
		FROM orders WHERE placed_at >= $1 AND placed_at < $2
		ORDER BY placed_at, id`

	listOrdersByRangeClientIDSQL = `SELECT id, client_id, lines, total, status, placed_at
		FROM orders WHERE placed_at >= $1 AND placed_at < $2 AND client_id = $3
		ORDER BY placed_at, id`

	listOrdersByRangeClientNameSQL = `SELECT o.id, o.client_id, o.lines, o.total, o.status, o.placed_at
		FROM orders o JOIN clients c ON c.id = o.client_id
		WHERE o.placed_at >= $1 AND o.placed_at < $2 AND c.name = $3
		ORDER BY o.placed_at, o.id`
)

// orderLine is the JSONB representation of a single order line.
type orderLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL. Order
// lines are serialized to a JSONB column: lines have no existence outside
// their order, so they travel with the row.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	linesJSON, err := marshalLines(o.Lines)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.ClientID, linesJSON, o.Total, string(o.Status), o.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID returns a single order by its identifier.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	return &o, nil
}

// Update overwrites an existing order row.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	linesJSON, err := marshalLines(o.Lines)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}

	tag, err := r.pool.Exec(ctx, updateOrderSQL,
		o.ID, o.ClientID, linesJSON, o.Total, string(o.Status), o.PlacedAt,
	)
	if err != nil {
		return fmt.Errorf("updating order %q: %w", o.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrNotFound
	}
	return nil
}

// List returns one page of orders, newest first.
func (r *OrderRepository) List(ctx context.Context, limit, offset int) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listOrdersSQL, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// Count returns the total number of orders.
func (r *OrderRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, countOrdersSQL).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting orders: %w", err)
	}
	return n, nil
}

// ListByPlacedRange returns orders placed in [from, to), optionally narrowed
// to one client by id or by exact name.
func (r *OrderRepository) ListByPlacedRange(ctx context.Context, from, to time.Time, f order.RangeFilter) ([]order.Order, error) {
	var (
		rows pgx.Rows
		err  error
	)
	switch {
	case f.ClientID != "":
		rows, err = r.pool.Query(ctx, listOrdersByRangeClientIDSQL, from, to, f.ClientID)
	case f.ClientName != "":
		rows, err = r.pool.Query(ctx, listOrdersByRangeClientNameSQL, from, to, f.ClientName)
	default:
		rows, err = r.pool.Query(ctx, listOrdersByRangeSQL, from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("listing orders by range: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

func marshalLines(lines []order.Line) ([]byte, error) {
	rows := make([]orderLine, len(lines))
	for i, l := range lines {
		rows[i] = orderLine{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, fmt.Errorf("marshaling order lines: %w", err)
	}
	return b, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		linesJSON []byte
		total     decimal.Decimal
		status    string
	)
	if err := row.Scan(&o.ID, &o.ClientID, &linesJSON, &total, &status, &o.PlacedAt); err != nil {
		return order.Order{}, err
	}

	var rows []orderLine
	if err := json.Unmarshal(linesJSON, &rows); err != nil {
		return order.Order{}, fmt.Errorf("unmarshaling order lines: %w", err)
	}
	o.Lines = make([]order.Line, len(rows))
	for i, l := range rows {
		o.Lines[i] = order.Line{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	o.Total = total
	o.Status = order.Status(status)
	o.PlacedAt = o.PlacedAt.UTC()
	return o, nil
}
