// Package handler exposes the back-office over HTTP. Handlers decode
// requests, delegate to the domain layer, and map domain errors to status
// codes; no business rules live here.
package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/backoffice/internal/domain/client"
	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/internal/domain/product"
	"github.com/xenking/backoffice/internal/domain/report"
)

// Handler holds the domain collaborators behind the HTTP API.
type Handler struct {
	clients  client.Repository
	products product.Repository
	orders   *order.Service
	reports  *report.Service
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	clients client.Repository,
	products product.Repository,
	orders *order.Service,
	reports *report.Service,
) *Handler {
	return &Handler{
		clients:  clients,
		products: products,
		orders:   orders,
		reports:  reports,
	}
}

// Routes mounts all API routes on a fresh chi router. The auth middleware is
// applied to every route.
func (h *Handler) Routes(auth func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(auth)

	r.Route("/clients", func(r chi.Router) {
		r.Post("/", h.CreateClient)
		r.Get("/", h.ListClients)
		r.Get("/{id}", h.GetClient)
		r.Put("/{id}", h.UpdateClient)
		r.Delete("/{id}", h.DeleteClient)
	})

	r.Route("/products", func(r chi.Router) {
		r.Post("/", h.CreateProduct)
		r.Get("/", h.ListProducts)
		r.Get("/{id}", h.GetProduct)
		r.Put("/{id}", h.UpdateProduct)
		r.Delete("/{id}", h.DeleteProduct)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Post("/", h.CreateOrder)
		r.Get("/", h.ListOrders)
		r.Get("/{id}", h.GetOrder)
		r.Put("/{id}", h.ReviseOrder)
		r.Post("/{id}/cancel", h.CancelOrder)
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/sales", h.SalesReport)
		r.Get("/financial", h.FinancialReport)
	})

	return r
}

// errorBody is the JSON error envelope for every non-2xx response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorBody{Code: status, Message: message})
}

// respondInternal logs the error and hides its details from the client.
func respondInternal(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("request failed",
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	respondError(w, http.StatusInternalServerError, "internal server error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// pageParams reads page/pageSize query parameters with defaults.
func pageParams(r *http.Request) (page, pageSize int) {
	page, pageSize = 1, 20
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("pageSize")); err == nil && v > 0 {
		pageSize = v
	}
	return page, pageSize
}
