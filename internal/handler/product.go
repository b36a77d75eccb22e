package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/product"
)

type productRequest struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type productResponse struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type productPageResponse struct {
	Products   []productResponse `json:"products"`
	Page       int               `json:"page"`
	PageSize   int               `json:"pageSize"`
	TotalCount int               `json:"totalCount"`
}

func (h *Handler) validateProduct(w http.ResponseWriter, req *productRequest) bool {
	if req.Name == "" {
		respondError(w, http.StatusUnprocessableEntity, "name is required")
		return false
	}
	if req.Price.IsNegative() {
		respondError(w, http.StatusUnprocessableEntity, "price must not be negative")
		return false
	}
	if req.Stock < 0 {
		respondError(w, http.StatusUnprocessableEntity, "stock must not be negative")
		return false
	}
	return true
}

// CreateProduct adds a product to the catalog.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.validateProduct(w, &req) {
		return
	}

	p := &product.Product{
		ID:    uuid.New().String(),
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	}
	if err := h.products.Create(r.Context(), p); err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toProductResponse(p))
}

// GetProduct returns a single catalog product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}

// ListProducts returns one page of the catalog ordered by name.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	products, err := h.products.List(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	total, err := h.products.Count(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	resp := productPageResponse{
		Products:   make([]productResponse, len(products)),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}
	for i := range products {
		resp.Products[i] = toProductResponse(&products[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// UpdateProduct overwrites a product's mutable fields, stock included. Stock
// consumed by sales goes through the order endpoints, never through here
// concurrently with them.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !h.validateProduct(w, &req) {
		return
	}

	p := &product.Product{
		ID:    chi.URLParam(r, "id"),
		Name:  req.Name,
		Price: req.Price,
		Stock: req.Stock,
	}
	if err := h.products.Update(r.Context(), p); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toProductResponse(p))
}

// DeleteProduct removes a product from the catalog.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, http.StatusNotFound, "product not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toProductResponse(p *product.Product) productResponse {
	return productResponse{
		ID:    p.ID,
		Name:  p.Name,
		Price: p.Price,
		Stock: p.Stock,
	}
}
