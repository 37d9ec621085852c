package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/bakery-pos/internal/cart"
	"github.com/fjod/go_cart/bakery-pos/internal/catalog"
	"github.com/fjod/go_cart/bakery-pos/internal/logging"
	"github.com/fjod/go_cart/bakery-pos/internal/service"
	"go.uber.org/zap"
)

var errInsufficientPayment = errors.New("received amount is lower than the cart total")

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, catalog.ErrUnknownProduct):
		httpStatus = http.StatusNotFound
		code = "unknown_product"
	case errors.Is(err, cart.ErrInvalidQuantity):
		httpStatus = http.StatusBadRequest
		code = "invalid_quantity"
	case errors.Is(err, cart.ErrInvalidAmount):
		httpStatus = http.StatusBadRequest
		code = "invalid_amount"
	case errors.Is(err, service.ErrEmptyCart):
		httpStatus = http.StatusUnprocessableEntity
		code = "empty_cart"
	case errors.Is(err, errInsufficientPayment):
		httpStatus = http.StatusConflict
		code = "insufficient_payment"
	case errors.Is(err, service.ErrPersistence):
		httpStatus = http.StatusServiceUnavailable
		code = "persistence_error"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus = http.StatusGatewayTimeout
		code = "timeout"
	default:
		logging.FromCtx(r.Context(), zap.L()).Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}
