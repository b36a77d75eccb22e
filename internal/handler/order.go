package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/client"
	"github.com/xenking/backoffice/internal/domain/inventory"
	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/internal/domain/product"
)

type orderLineRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type orderRequest struct {
	ClientID string             `json:"clientId"`
	Lines    []orderLineRequest `json:"lines"`
}

type orderLineResponse struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type orderResponse struct {
	ID       string              `json:"id"`
	ClientID string              `json:"clientId"`
	Lines    []orderLineResponse `json:"lines"`
	Total    decimal.Decimal     `json:"total"`
	Status   order.Status        `json:"status"`
	PlacedAt time.Time           `json:"placedAt"`
}

type orderPageResponse struct {
	Orders     []orderResponse `json:"orders"`
	Page       int             `json:"page"`
	PageSize   int             `json:"pageSize"`
	TotalCount int             `json:"totalCount"`
}

// CreateOrder registers a new sale.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.Create(r.Context(), req.ClientID, toLineRequests(req.Lines))
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

// ReviseOrder replaces the order's client and line set.
func (h *Handler) ReviseOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if !decodeBody(w, r, &req) {
		return
	}

	o, err := h.orders.Revise(r.Context(), chi.URLParam(r, "id"), req.ClientID, toLineRequests(req.Lines))
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// CancelOrder releases the order's stock and marks it canceled.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Cancel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondOrderError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// GetOrder returns a single order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			respondError(w, http.StatusNotFound, "order not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// ListOrders returns one page of orders, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	p, err := h.orders.List(r.Context(), page, pageSize)
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	resp := orderPageResponse{
		Orders:     make([]orderResponse, len(p.Orders)),
		Page:       p.PageNumber,
		PageSize:   p.PageSize,
		TotalCount: p.TotalCount,
	}
	for i := range p.Orders {
		resp.Orders[i] = toOrderResponse(&p.Orders[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// respondOrderError maps order lifecycle errors to HTTP responses.
func (h *Handler) respondOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		iqErr *order.InvalidQuantityError
		isErr *inventory.InsufficientStockError
		csErr *inventory.ConsistencyError
	)
	switch {
	case errors.Is(err, order.ErrNotFound):
		respondError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, order.ErrAlreadyCanceled):
		respondError(w, http.StatusConflict, "order already canceled")
	case errors.As(err, &iqErr):
		respondError(w, http.StatusUnprocessableEntity, iqErr.Error())
	case errors.As(err, &isErr):
		respondError(w, http.StatusConflict, isErr.Error())
	case errors.Is(err, client.ErrNotFound):
		respondError(w, http.StatusUnprocessableEntity, "client not found")
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusUnprocessableEntity, "product not found")
	case errors.As(err, &csErr):
		respondInternal(w, r, err)
	default:
		respondInternal(w, r, err)
	}
}

func toLineRequests(lines []orderLineRequest) []order.LineRequest {
	reqs := make([]order.LineRequest, len(lines))
	for i, l := range lines {
		reqs[i] = order.LineRequest{ProductID: l.ProductID, Quantity: l.Quantity}
	}
	return reqs
}

func toOrderResponse(o *order.Order) orderResponse {
	lines := make([]orderLineResponse, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = orderLineResponse{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice}
	}
	return orderResponse{
		ID:       o.ID,
		ClientID: o.ClientID,
		Lines:    lines,
		Total:    o.Total,
		Status:   o.Status,
		PlacedAt: o.PlacedAt,
	}
}
