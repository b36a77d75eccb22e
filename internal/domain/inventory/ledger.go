// Package inventory owns all stock mutation. The Ledger is the only component
// allowed to change a product's stock quantity, and it guarantees no product
// is ever observed with negative stock.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/product"
)

// Item identifies a quantity of a single product within a batch operation.
type Item struct {
	ProductID string
	Quantity  int
}

// Reservation is the outcome of a successful reserve: the quantity taken and
// the unit price of the product at reservation time. The price snapshot is
// what order lines record, so later catalog price changes never alter
// historical totals.
type Reservation struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
}

// InsufficientStockError indicates a reserve asked for more units than are
// available.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// ConsistencyError indicates the catalog and the order history have diverged:
// a release targeted a product that no longer exists. It is not a business
// condition and must abort the enclosing operation.
type ConsistencyError struct {
	ProductID string
	Err       error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("inventory consistency violation for product %s: %v", e.ProductID, e.Err)
}

func (e *ConsistencyError) Unwrap() error { return e.Err }

// ProductStore is the slice of the catalog the ledger needs: reading a
// product and overwriting its stock count.
type ProductStore interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
	UpdateStock(ctx context.Context, id string, stock int) error
}

// Ledger serializes stock mutations per product id. Operations on different
// products proceed independently; operations on the same product are mutually
// exclusive, so two concurrent reserves can never both observe the same stale
// stock count.
type Ledger struct {
	store ProductStore
	locks *keyedMutex
}

// NewLedger creates a Ledger over the given product store.
func NewLedger(store ProductStore) *Ledger {
	return &Ledger{
		store: store,
		locks: newKeyedMutex(),
	}
}

// Reserve decrements the product's stock by quantity and returns the unit
// price snapshot. It fails with product.ErrNotFound when the product does not
// exist and with *InsufficientStockError when quantity exceeds the available
// stock; in both cases stock is left untouched.
func (l *Ledger) Reserve(ctx context.Context, productID string, quantity int) (Reservation, error) {
	l.locks.lock(productID)
	defer l.locks.unlock(productID)

	p, err := l.store.GetByID(ctx, productID)
	if err != nil {
		return Reservation{}, fmt.Errorf("reserving %d of product %q: %w", quantity, productID, err)
	}
	if quantity > p.Stock {
		return Reservation{}, &InsufficientStockError{
			ProductID: productID,
			Requested: quantity,
			Available: p.Stock,
		}
	}
	if err := l.store.UpdateStock(ctx, productID, p.Stock-quantity); err != nil {
		return Reservation{}, fmt.Errorf("reserving %d of product %q: %w", quantity, productID, err)
	}
	return Reservation{ProductID: productID, Quantity: quantity, UnitPrice: p.Price}, nil
}

// Release returns quantity units to the product's stock. A release against a
// missing product is a *ConsistencyError: the order history references a
// product the catalog no longer has.
func (l *Ledger) Release(ctx context.Context, productID string, quantity int) error {
	l.locks.lock(productID)
	defer l.locks.unlock(productID)

	p, err := l.store.GetByID(ctx, productID)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			return &ConsistencyError{ProductID: productID, Err: err}
		}
		return fmt.Errorf("releasing %d of product %q: %w", quantity, productID, err)
	}
	if err := l.store.UpdateStock(ctx, productID, p.Stock+quantity); err != nil {
		return fmt.Errorf("releasing %d of product %q: %w", quantity, productID, err)
	}
	return nil
}

// ReserveAll reserves every item, in order. The batch is all-or-nothing: if
// any item fails, the reservations already applied within this call are
// released before the failure is surfaced. On success the returned
// reservations are aligned with items.
func (l *Ledger) ReserveAll(ctx context.Context, items []Item) ([]Reservation, error) {
	reservations := make([]Reservation, 0, len(items))
	for _, it := range items {
		res, err := l.Reserve(ctx, it.ProductID, it.Quantity)
		if err != nil {
			if rbErr := l.ReleaseAll(ctx, itemsOf(reservations)); rbErr != nil {
				return nil, errors.Join(err, fmt.Errorf("rolling back partial reservation: %w", rbErr))
			}
			return nil, err
		}
		reservations = append(reservations, res)
	}
	return reservations, nil
}

// ReleaseAll releases every item best-effort: a failure on one item does not
// stop the rest, and all failures are reported together.
func (l *Ledger) ReleaseAll(ctx context.Context, items []Item) error {
	var errs []error
	for _, it := range items {
		if err := l.Release(ctx, it.ProductID, it.Quantity); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Rebalance moves stock from the current line set to the desired one by
// applying per-product quantity deltas: increases are reserved first as an
// all-or-nothing batch, decreases are released only afterwards. A failed
// rebalance therefore leaves stock exactly as it was. On success it returns a
// reservation (with a fresh price snapshot) for every desired item, aligned
// with desired.
func (l *Ledger) Rebalance(ctx context.Context, current, desired []Item) ([]Reservation, error) {
	deltas := make(map[string]int)
	for _, it := range desired {
		deltas[it.ProductID] += it.Quantity
	}
	for _, it := range current {
		deltas[it.ProductID] -= it.Quantity
	}

	// Deterministic delta order: desired first, then current-only products.
	var increases, decreases []Item
	seen := make(map[string]bool)
	for _, it := range append(append([]Item(nil), desired...), current...) {
		if seen[it.ProductID] {
			continue
		}
		seen[it.ProductID] = true
		switch d := deltas[it.ProductID]; {
		case d > 0:
			increases = append(increases, Item{ProductID: it.ProductID, Quantity: d})
		case d < 0:
			decreases = append(decreases, Item{ProductID: it.ProductID, Quantity: -d})
		}
	}

	if _, err := l.ReserveAll(ctx, increases); err != nil {
		return nil, err
	}
	if err := l.ReleaseAll(ctx, decreases); err != nil {
		return nil, err
	}

	// Fresh price snapshots for every desired line.
	prices := make(map[string]decimal.Decimal)
	reservations := make([]Reservation, len(desired))
	for i, it := range desired {
		price, ok := prices[it.ProductID]
		if !ok {
			p, err := l.store.GetByID(ctx, it.ProductID)
			if err != nil {
				return nil, fmt.Errorf("snapshotting price of product %q: %w", it.ProductID, err)
			}
			price = p.Price
			prices[it.ProductID] = price
		}
		reservations[i] = Reservation{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: price}
	}
	return reservations, nil
}

func itemsOf(reservations []Reservation) []Item {
	items := make([]Item, len(reservations))
	for i, r := range reservations {
		items[i] = Item{ProductID: r.ProductID, Quantity: r.Quantity}
	}
	return items
}
