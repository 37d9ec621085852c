package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/fjod/go_cart/bakery-pos/internal/cart"
	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"github.com/fjod/go_cart/bakery-pos/internal/metrics"
	"github.com/fjod/go_cart/bakery-pos/internal/service"
)

type CartHandler struct {
	sessions *service.Sessions
	checkout *service.CheckoutService
	timeout  time.Duration
}

func NewCartHandler(sessions *service.Sessions, checkout *service.CheckoutService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		sessions: sessions,
		checkout: checkout,
		timeout:  timeout,
	}
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.sessions.Load(ctx, getSessionID(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *CartHandler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetQuantityRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ProductName == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "product_name is required")
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "quantity is required")
		return
	}

	c, err := h.sessions.Update(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		return c.SetQuantity(req.ProductName, *req.Quantity)
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(c))
}

func (h *CartHandler) SetReceived(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req SetReceivedRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.Amount == nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "amount is required")
		return
	}

	c, err := h.sessions.Update(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		return c.SetReceived(domain.Amount(*req.Amount))
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(c))
}

// Checkout records the sale. It is refused while the received amount does
// not cover the total.
func (h *CartHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := CheckoutResponseDTO{SessionCleared: true}
	_, err := h.sessions.Commit(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		if !c.IsEmpty() && c.Change() < 0 {
			metrics.Checkouts.WithLabelValues(metrics.ResultInsufficient).Inc()
			return errInsufficientPayment
		}
		resp.Total = c.Total()
		resp.Received = c.Received()
		resp.Change = c.Change()

		lines, err := h.checkout.Checkout(ctx, c)
		if err != nil {
			return err
		}
		resp.Lines = lines
		return nil
	})
	if errors.Is(err, service.ErrSessionNotCleared) {
		// the sale is in the ledger, so it must not be reported as retryable
		resp.SessionCleared = false
		err = nil
	}
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, resp)
}

func (h *CartHandler) Reset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	c, err := h.sessions.Update(ctx, getSessionID(r.Context()), func(c *cart.Cart) error {
		c.Reset()
		return nil
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toCartResponse(c))
}
