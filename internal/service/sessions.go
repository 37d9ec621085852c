package service

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"

	"github.com/fjod/go_cart/bakery-pos/internal/cart"
	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"github.com/fjod/go_cart/bakery-pos/internal/session"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const lockStripes = 64

// Sessions keeps one cart per operator session.
type Sessions struct {
	store       session.Store
	prices      cart.PriceLookup
	cartOptions []cart.Option
	logger      *zap.Logger
	sfg         singleflight.Group // collapses concurrent loads of one session
	locks       [lockStripes]sync.Mutex
}

func NewSessions(store session.Store, prices cart.PriceLookup, logger *zap.Logger, opts ...cart.Option) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{
		store:       store,
		prices:      prices,
		cartOptions: opts,
		logger:      logger,
	}
}

// Load returns the cart of a session, or a new empty one. Every caller gets
// its own Cart even when loads were collapsed.
func (s *Sessions) Load(ctx context.Context, sessionID string) (*cart.Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		return s.fetch(ctx, sessionID)
	})
	if err != nil {
		return nil, err
	}
	return s.restore(sessionID, v.(domain.CartState)), nil
}

// Update runs fn on the session cart and saves the result when fn succeeds.
// Updates of one session are serialised so concurrent requests never lose
// each other's changes.
func (s *Sessions) Update(ctx context.Context, sessionID string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.apply(ctx, sessionID, fn)
	if err != nil {
		return c, err
	}
	if err := s.Save(ctx, sessionID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Commit is Update for an fn whose success cannot be undone, such as a
// recorded sale. If the cart cannot be saved afterwards the session is
// dropped so the old cart is never replayed. ErrSessionNotCleared is
// returned only when the drop fails too.
func (s *Sessions) Commit(ctx context.Context, sessionID string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	c, err := s.apply(ctx, sessionID, fn)
	if err != nil {
		return c, err
	}

	saveErr := s.Save(ctx, sessionID, c)
	if saveErr == nil {
		return c, nil
	}
	s.logger.Error("failed to save session after commit, dropping it",
		zap.String("session_id", sessionID), zap.Error(saveErr))

	if dropErr := s.Drop(ctx, sessionID); dropErr != nil {
		s.logger.Error("failed to drop session after commit",
			zap.String("session_id", sessionID), zap.Error(dropErr))
		return c, fmt.Errorf("%w: %w", ErrSessionNotCleared, errors.Join(saveErr, dropErr))
	}
	return c, nil
}

func (s *Sessions) apply(ctx context.Context, sessionID string, fn func(*cart.Cart) error) (*cart.Cart, error) {
	// not collapsed: a shared in-flight read could predate the last save
	state, err := s.fetch(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c := s.restore(sessionID, state)
	if err := fn(c); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Sessions) Save(ctx context.Context, sessionID string, c *cart.Cart) error {
	if err := s.store.Save(ctx, sessionID, c.Snapshot()); err != nil {
		return fmt.Errorf("save session %q: %w", sessionID, err)
	}
	return nil
}

func (s *Sessions) Drop(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("drop session %q: %w", sessionID, err)
	}
	return nil
}

func (s *Sessions) fetch(ctx context.Context, sessionID string) (domain.CartState, error) {
	state, err := s.store.Get(ctx, sessionID)
	if errors.Is(err, session.ErrSessionNotFound) {
		return domain.CartState{}, nil
	}
	if err != nil {
		return domain.CartState{}, fmt.Errorf("load session %q: %w", sessionID, err)
	}
	return state, nil
}

func (s *Sessions) restore(sessionID string, state domain.CartState) *cart.Cart {
	// Restore copies the lines, so a state shared by collapsed loads is never aliased
	c, err := cart.Restore(s.prices, state, s.cartOptions...)
	if err != nil {
		// a catalog change can invalidate a stored cart; start over
		s.logger.Warn("discarding stored cart", zap.String("session_id", sessionID), zap.Error(err))
		return cart.New(s.prices, s.cartOptions...)
	}
	return c
}

func (s *Sessions) lockFor(sessionID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return &s.locks[h.Sum32()%lockStripes]
}
