package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item. Stock is the number of units currently
// available for sale; outside of plain catalog CRUD it is mutated only
// through the inventory ledger.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	Stock int
}

// Repository defines persistence operations for the product catalog.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	GetByID(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context, limit, offset int) ([]Product, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
	// UpdateStock overwrites the stored stock quantity for a product.
	// Callers are responsible for serializing conflicting updates.
	UpdateStock(ctx context.Context, id string, stock int) error
}
