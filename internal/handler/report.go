package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/backoffice/internal/domain/order"
	"github.com/xenking/backoffice/internal/domain/report"
)

type reportLineResponse struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
}

type reportRowResponse struct {
	OrderID    string               `json:"orderId"`
	ClientName string               `json:"clientName"`
	PlacedAt   time.Time            `json:"placedAt"`
	Status     order.Status         `json:"status"`
	Total      decimal.Decimal      `json:"total"`
	Lines      []reportLineResponse `json:"lines"`
}

type financialResponse struct {
	TotalRevenue  decimal.Decimal `json:"totalRevenue"`
	TotalExpenses decimal.Decimal `json:"totalExpenses"`
	NetProfit     decimal.Decimal `json:"netProfit"`
}

// parseRange reads the start/end query parameters as RFC 3339 timestamps.
func parseRange(w http.ResponseWriter, r *http.Request) (from, to time.Time, ok bool) {
	q := r.URL.Query()
	from, err := time.Parse(time.RFC3339, q.Get("start"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "start must be an RFC 3339 timestamp")
		return from, to, false
	}
	to, err = time.Parse(time.RFC3339, q.Get("end"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "end must be an RFC 3339 timestamp")
		return from, to, false
	}
	return from, to, true
}

// SalesReport returns the itemized report for a date range, optionally
// filtered by clientId or clientName.
func (h *Handler) SalesReport(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}

	details, err := h.reports.Itemized(r.Context(), report.Filter{
		From:       from,
		To:         to,
		ClientID:   r.URL.Query().Get("clientId"),
		ClientName: r.URL.Query().Get("clientName"),
	})
	if err != nil {
		if errors.Is(err, report.ErrConflictingFilters) || errors.Is(err, report.ErrInvalidRange) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondInternal(w, r, err)
		return
	}

	rows := make([]reportRowResponse, len(details))
	for i, d := range details {
		lines := make([]reportLineResponse, len(d.Lines))
		for j, l := range d.Lines {
			lines[j] = reportLineResponse{ProductName: l.ProductName, Quantity: l.Quantity}
		}
		rows[i] = reportRowResponse{
			OrderID:    d.OrderID,
			ClientName: d.ClientName,
			PlacedAt:   d.PlacedAt,
			Status:     d.Status,
			Total:      d.Total,
			Lines:      lines,
		}
	}
	respondJSON(w, http.StatusOK, rows)
}

// FinancialReport returns revenue, expenses and net profit for a date range.
func (h *Handler) FinancialReport(w http.ResponseWriter, r *http.Request) {
	from, to, ok := parseRange(w, r)
	if !ok {
		return
	}

	s, err := h.reports.FinancialSummary(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, report.ErrInvalidRange) {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		respondInternal(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, financialResponse{
		TotalRevenue:  s.TotalRevenue,
		TotalExpenses: s.TotalExpenses,
		NetProfit:     s.NetProfit,
	})
}
