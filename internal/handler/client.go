package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/backoffice/internal/domain/client"
)

type clientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type clientResponse struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type clientPageResponse struct {
	Clients    []clientResponse `json:"clients"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalCount int              `json:"totalCount"`
}

// CreateClient registers a new client record.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	c := &client.Client{
		ID:      uuid.New().String(),
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if err := h.clients.Create(r.Context(), c); err != nil {
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, toClientResponse(c))
}

// GetClient returns a single client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	c, err := h.clients.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, client.ErrNotFound) {
			respondError(w, http.StatusNotFound, "client not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toClientResponse(c))
}

// ListClients returns one page of clients ordered by name.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)

	clients, err := h.clients.List(r.Context(), pageSize, (page-1)*pageSize)
	if err != nil {
		respondInternal(w, r, err)
		return
	}
	total, err := h.clients.Count(r.Context())
	if err != nil {
		respondInternal(w, r, err)
		return
	}

	resp := clientPageResponse{
		Clients:    make([]clientResponse, len(clients)),
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
	}
	for i := range clients {
		resp.Clients[i] = toClientResponse(&clients[i])
	}
	respondJSON(w, http.StatusOK, resp)
}

// UpdateClient overwrites a client's mutable fields.
func (h *Handler) UpdateClient(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusUnprocessableEntity, "name is required")
		return
	}

	c := &client.Client{
		ID:      chi.URLParam(r, "id"),
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
	}
	if err := h.clients.Update(r.Context(), c); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			respondError(w, http.StatusNotFound, "client not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toClientResponse(c))
}

// DeleteClient removes a client record. Historical orders are untouched.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.clients.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, client.ErrNotFound) {
			respondError(w, http.StatusNotFound, "client not found")
			return
		}
		respondInternal(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toClientResponse(c *client.Client) clientResponse {
	return clientResponse{
		ID:      c.ID,
		Name:    c.Name,
		Email:   c.Email,
		Phone:   c.Phone,
		Address: c.Address,
	}
}
