package order

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/client"
	"github.com/xenking/backoffice/internal/domain/inventory"
	"github.com/xenking/backoffice/internal/domain/pricing"
)

// ClientDirectory is the slice of the client store the order service needs.
type ClientDirectory interface {
	GetByID(ctx context.Context, id string) (*client.Client, error)
}

// StockLedger is the inventory surface the order service drives. All stock
// mutation goes through it; the service itself never touches product stock.
type StockLedger interface {
	ReserveAll(ctx context.Context, items []inventory.Item) ([]inventory.Reservation, error)
	ReleaseAll(ctx context.Context, items []inventory.Item) error
	Rebalance(ctx context.Context, current, desired []inventory.Item) ([]inventory.Reservation, error)
}

// LineRequest is a requested (product, quantity) pair. Unit prices are never
// accepted from callers; they are snapshotted from the catalog.
type LineRequest struct {
	ProductID string
	Quantity  int
}

// Page is one page of an order listing.
type Page struct {
	Orders     []Order
	PageNumber int
	PageSize   int
	TotalCount int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Service orchestrates the order lifecycle: registration, revision and
// cancellation, each keeping stock and totals consistent as a unit.
type Service struct {
	clients ClientDirectory
	ledger  StockLedger
	orders  Repository
	now     func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(clients ClientDirectory, ledger StockLedger, orders Repository) *Service {
	return &Service{
		clients: clients,
		ledger:  ledger,
		orders:  orders,
		now:     time.Now,
	}
}

// Create registers a new sale for the given client. Stock for every requested
// line is reserved as an all-or-nothing batch; on any failure no stock is
// touched and nothing is persisted. A request with zero lines is permitted
// and yields a zero total.
func (s *Service) Create(ctx context.Context, clientID string, lines []LineRequest) (*Order, error) {
	items, err := toItems(lines)
	if err != nil {
		return nil, err
	}
	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return nil, errors.Wrap(err, "validate client")
	}

	reservations, err := s.ledger.ReserveAll(ctx, items)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:       uuid.New().String(),
		ClientID: clientID,
		Lines:    linesOf(reservations),
		Status:   StatusPending,
		PlacedAt: s.now().UTC(),
	}
	o.Total = totalOf(o.Lines)

	if err := s.orders.Create(ctx, o); err != nil {
		// The write failed after stock was taken: hand the reservation back so
		// the operation has no observable stock effect.
		if relErr := s.ledger.ReleaseAll(ctx, items); relErr != nil {
			return nil, stderrors.Join(errors.Wrap(err, "persist order"), relErr)
		}
		return nil, errors.Wrap(err, "persist order")
	}
	return o, nil
}

// Revise replaces the order's client and line set. Stock moves from the old
// line set to the new one as a single delta adjustment, so a failed revision
// leaves the order's stock impact exactly as it was. The total is recomputed
// from fresh price snapshots and the timestamp refreshed.
func (s *Service) Revise(ctx context.Context, orderID, clientID string, lines []LineRequest) (*Order, error) {
	desired, err := toItems(lines)
	if err != nil {
		return nil, err
	}

	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCanceled {
		return nil, ErrAlreadyCanceled
	}
	if _, err := s.clients.GetByID(ctx, clientID); err != nil {
		return nil, errors.Wrap(err, "validate client")
	}

	current := itemsOfLines(o.Lines)
	reservations, err := s.ledger.Rebalance(ctx, current, desired)
	if err != nil {
		return nil, err
	}

	o.ClientID = clientID
	o.Lines = linesOf(reservations)
	o.Total = totalOf(o.Lines)
	o.PlacedAt = s.now().UTC()

	if err := s.orders.Update(ctx, o); err != nil {
		if rbErr := s.rebalanceBack(ctx, desired, current); rbErr != nil {
			return nil, stderrors.Join(errors.Wrap(err, "persist order"), rbErr)
		}
		return nil, errors.Wrap(err, "persist order")
	}
	return o, nil
}

// Cancel releases all stock held by the order and marks it canceled. The
// total is left untouched as the historical record. Canceling an already
// canceled order fails with ErrAlreadyCanceled and changes nothing.
func (s *Service) Cancel(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status == StatusCanceled {
		return nil, ErrAlreadyCanceled
	}

	items := itemsOfLines(o.Lines)
	if err := s.ledger.ReleaseAll(ctx, items); err != nil {
		return nil, err
	}

	o.Status = StatusCanceled
	if err := s.orders.Update(ctx, o); err != nil {
		if resErr := s.reserveBack(ctx, items); resErr != nil {
			return nil, stderrors.Join(errors.Wrap(err, "persist order"), resErr)
		}
		return nil, errors.Wrap(err, "persist order")
	}
	return o, nil
}

// Get returns a single order by id.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// List returns one page of orders, newest first. Page numbers start at 1.
func (s *Service) List(ctx context.Context, pageNumber, pageSize int) (*Page, error) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	orders, err := s.orders.List(ctx, pageSize, (pageNumber-1)*pageSize)
	if err != nil {
		return nil, err
	}
	total, err := s.orders.Count(ctx)
	if err != nil {
		return nil, err
	}
	return &Page{
		Orders:     orders,
		PageNumber: pageNumber,
		PageSize:   pageSize,
		TotalCount: total,
	}, nil
}

// rebalanceBack undoes a delta adjustment after a failed persistence write.
func (s *Service) rebalanceBack(ctx context.Context, applied, previous []inventory.Item) error {
	_, err := s.ledger.Rebalance(ctx, applied, previous)
	return errors.Wrap(err, "restore stock after failed write")
}

// reserveBack re-takes released stock after a failed cancellation write.
func (s *Service) reserveBack(ctx context.Context, items []inventory.Item) error {
	_, err := s.ledger.ReserveAll(ctx, items)
	return errors.Wrap(err, "restore stock after failed write")
}

func toItems(lines []LineRequest) ([]inventory.Item, error) {
	items := make([]inventory.Item, len(lines))
	for i, l := range lines {
		if l.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: l.ProductID, Quantity: l.Quantity}
		}
		items[i] = inventory.Item{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return items, nil
}

func itemsOfLines(lines []Line) []inventory.Item {
	items := make([]inventory.Item, len(lines))
	for i, l := range lines {
		items[i] = inventory.Item{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return items
}

func linesOf(reservations []inventory.Reservation) []Line {
	lines := make([]Line, len(reservations))
	for i, r := range reservations {
		lines[i] = Line{ProductID: r.ProductID, Quantity: r.Quantity, UnitPrice: r.UnitPrice}
	}
	return lines
}

func totalOf(lines []Line) decimal.Decimal {
	priced := make([]pricing.Line, len(lines))
	for i, l := range lines {
		priced[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity}
	}
	return pricing.Total(priced)
}
