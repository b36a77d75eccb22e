package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of an order.
type Status string

const (
	// StatusPending is the state of every newly registered order.
	StatusPending Status = "PENDING"
	// StatusCompleted exists for reporting compatibility. No operation
	// transitions an order to it.
	StatusCompleted Status = "COMPLETED"
	// StatusCanceled is terminal: no further line changes or re-cancellation.
	StatusCanceled Status = "CANCELED"
)

// Sentinel errors for order lifecycle operations.
var (
	ErrNotFound        = errors.New("order not found")
	ErrAlreadyCanceled = errors.New("order already canceled")
)

// InvalidQuantityError indicates a requested line has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s, got %d",
		e.ProductID, e.Quantity)
}

// Line is a single line item within an order. UnitPrice is the catalog price
// snapshotted when the line was created; it never changes afterwards.
type Line struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is a client's sale. Lines are exclusively owned by the order; Total
// is derived from the lines and never set by a caller. PlacedAt is refreshed
// whenever the order is mutated.
type Order struct {
	ID       string
	ClientID string
	Lines    []Line
	Total    decimal.Decimal
	Status   Status
	PlacedAt time.Time
}

// RangeFilter narrows a date-range listing to a single client, by id or by
// exact name. At most one field may be set.
type RangeFilter struct {
	ClientID   string
	ClientName string
}

// Repository defines persistence operations for orders. Orders are never
// deleted; they persist indefinitely for reporting.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	Update(ctx context.Context, o *Order) error
	List(ctx context.Context, limit, offset int) ([]Order, error)
	Count(ctx context.Context) (int, error)
	// ListByPlacedRange returns orders with from <= PlacedAt < to, optionally
	// narrowed by the filter, ordered by PlacedAt.
	ListByPlacedRange(ctx context.Context, from, to time.Time, f RangeFilter) ([]Order, error)
}
