package http

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"github.com/fjod/go_cart/bakery-pos/internal/export"
	"github.com/fjod/go_cart/bakery-pos/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type SalesHandler struct {
	checkout *service.CheckoutService
	timeout  time.Duration
}

func NewSalesHandler(checkout *service.CheckoutService, timeout time.Duration) *SalesHandler {
	return &SalesHandler{
		checkout: checkout,
		timeout:  timeout,
	}
}

// ListSales returns the sale lines newest first. An optional limit query
// parameter bounds the page; without it every line is returned.
func (h *SalesHandler) ListSales(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "invalid_limit", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	sales, err := h.checkout.RecentSales(ctx, limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if sales == nil {
		sales = []domain.SaleLine{}
	}

	respondJSON(w, http.StatusOK, SalesResponseDTO{Sales: sales})
}

func (h *SalesHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var buf bytes.Buffer
	if _, err := export.WriteWorkbook(&buf, h.checkout.History(ctx)); err != nil {
		handleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="ventes.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
