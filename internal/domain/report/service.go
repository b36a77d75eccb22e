// Package report answers read-only historical queries over persisted orders.
// It performs no mutation and takes no stock locks.
package report

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/client"
	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/internal/domain/product"
)

// Validation errors for report filters.
var (
	ErrConflictingFilters = errors.New("clientId and clientName are mutually exclusive")
	ErrInvalidRange       = errors.New("start date must be before end date")
)

// totalExpenses is the expense figure reported by FinancialSummary. There is
// no expense ledger; until one exists the figure is a constant zero.
var totalExpenses = decimal.Zero

// OrderSource provides the date-range order listing the reports are built on.
type OrderSource interface {
	ListByPlacedRange(ctx context.Context, from, to time.Time, f order.RangeFilter) ([]order.Order, error)
}

// ClientDirectory resolves client names at report time.
type ClientDirectory interface {
	GetByID(ctx context.Context, id string) (*client.Client, error)
}

// ProductCatalog resolves product names at report time.
type ProductCatalog interface {
	GetByID(ctx context.Context, id string) (*product.Product, error)
}

// Filter selects orders for an itemized report: a half-open time range
// [From, To) and at most one of ClientID or ClientName.
type Filter struct {
	From       time.Time
	To         time.Time
	ClientID   string
	ClientName string
}

// LineDetail is one line of an itemized report row.
type LineDetail struct {
	ProductName string
	Quantity    int
}

// OrderDetail is one row of an itemized report. Names are resolved when the
// report runs, not stored redundantly on the order.
type OrderDetail struct {
	OrderID    string
	ClientName string
	PlacedAt   time.Time
	Status     order.Status
	Total      decimal.Decimal
	Lines      []LineDetail
}

// Summary is the financial view over a date range.
type Summary struct {
	TotalRevenue  decimal.Decimal
	TotalExpenses decimal.Decimal
	NetProfit     decimal.Decimal
}

// Service builds sales reports from persisted orders.
type Service struct {
	orders   OrderSource
	clients  ClientDirectory
	products ProductCatalog
}

// NewService creates a report Service with the required collaborators.
func NewService(orders OrderSource, clients ClientDirectory, products ProductCatalog) *Service {
	return &Service{
		orders:   orders,
		clients:  clients,
		products: products,
	}
}

// Itemized returns one detail row per order in range, canceled orders
// included with their historical totals.
func (s *Service) Itemized(ctx context.Context, f Filter) ([]OrderDetail, error) {
	if f.ClientID != "" && f.ClientName != "" {
		return nil, ErrConflictingFilters
	}
	if !f.From.Before(f.To) {
		return nil, ErrInvalidRange
	}

	orders, err := s.orders.ListByPlacedRange(ctx, f.From, f.To, order.RangeFilter{
		ClientID:   f.ClientID,
		ClientName: f.ClientName,
	})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	clientNames := make(map[string]string)
	productNames := make(map[string]string)

	details := make([]OrderDetail, len(orders))
	for i, o := range orders {
		clientName, ok := clientNames[o.ClientID]
		if !ok {
			c, err := s.clients.GetByID(ctx, o.ClientID)
			if err != nil {
				return nil, errors.Wrapf(err, "resolve client %s", o.ClientID)
			}
			clientName = c.Name
			clientNames[o.ClientID] = clientName
		}

		lines := make([]LineDetail, len(o.Lines))
		for j, l := range o.Lines {
			name, ok := productNames[l.ProductID]
			if !ok {
				p, err := s.products.GetByID(ctx, l.ProductID)
				if err != nil {
					return nil, errors.Wrapf(err, "resolve product %s", l.ProductID)
				}
				name = p.Name
				productNames[l.ProductID] = name
			}
			lines[j] = LineDetail{ProductName: name, Quantity: l.Quantity}
		}

		details[i] = OrderDetail{
			OrderID:    o.ID,
			ClientName: clientName,
			PlacedAt:   o.PlacedAt,
			Status:     o.Status,
			Total:      o.Total,
			Lines:      lines,
		}
	}
	return details, nil
}

// FinancialSummary sums order totals in [from, to). Expenses are a fixed zero
// until an expense ledger exists; net profit is revenue minus expenses.
func (s *Service) FinancialSummary(ctx context.Context, from, to time.Time) (*Summary, error) {
	if !from.Before(to) {
		return nil, ErrInvalidRange
	}

	orders, err := s.orders.ListByPlacedRange(ctx, from, to, order.RangeFilter{})
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}

	revenue := decimal.Zero
	for _, o := range orders {
		revenue = revenue.Add(o.Total)
	}
	return &Summary{
		TotalRevenue:  revenue,
		TotalExpenses: totalExpenses,
		NetProfit:     revenue.Sub(totalExpenses),
	}, nil
}
