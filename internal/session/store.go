package session

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
)

var ErrSessionNotFound = errors.New("session not found")

// Store keeps the cart of every operator session. Implementations must
// isolate sessions from each other.
type Store interface {
	Get(ctx context.Context, sessionID string) (domain.CartState, error)
	Save(ctx context.Context, sessionID string, state domain.CartState) error
	Delete(ctx context.Context, sessionID string) error
}
