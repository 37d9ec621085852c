package service

import "errors"

var (
	ErrEmptyCart   = errors.New("cart is empty, nothing to checkout")
	ErrPersistence = errors.New("failed to persist sale")

	// ErrSessionNotCleared means the sale is recorded but the session still
	// holds its cart. Retrying the checkout would record the sale twice.
	ErrSessionNotCleared = errors.New("sale recorded but session cart not cleared")
)
