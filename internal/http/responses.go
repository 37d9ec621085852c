package http

import (
	"encoding/json"
	"net/http"

	"github.com/fjod/go_cart/bakery-pos/internal/cart"
	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

type SetQuantityRequestDTO struct {
	ProductName string `json:"product_name"`
	Quantity    *int   `json:"quantity"`
}

type SetReceivedRequestDTO struct {
	Amount *int64 `json:"amount"`
}

type CartLineDTO struct {
	ProductName string        `json:"product_name"`
	Quantity    int           `json:"quantity"`
	UnitPrice   domain.Amount `json:"unit_price"`
	Subtotal    domain.Amount `json:"subtotal"`
}

type CartResponseDTO struct {
	Lines      []CartLineDTO `json:"lines"`
	Total      domain.Amount `json:"total"`
	Received   domain.Amount `json:"received"`
	Change     domain.Amount `json:"change"`
	Sufficient bool          `json:"sufficient"`
}

type CheckoutResponseDTO struct {
	Lines    []domain.SaleLine `json:"lines"`
	Total    domain.Amount     `json:"total"`
	Received domain.Amount     `json:"received"`
	Change   domain.Amount     `json:"change"`

	// false when the sale was recorded but the session still holds the old cart
	SessionCleared bool `json:"session_cleared"`
}

type SalesResponseDTO struct {
	Sales []domain.SaleLine `json:"sales"`
}

func toCartResponse(c *cart.Cart) CartResponseDTO {
	lines := c.Lines()
	resp := CartResponseDTO{
		Lines:      make([]CartLineDTO, 0, len(lines)),
		Total:      c.Total(),
		Received:   c.Received(),
		Change:     c.Change(),
		Sufficient: c.Change() >= 0,
	}
	for _, line := range lines {
		resp.Lines = append(resp.Lines, CartLineDTO{
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Subtotal:    cart.LineSubtotal(line),
		})
	}
	return resp
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}
