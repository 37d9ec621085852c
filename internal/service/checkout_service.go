package service

import (
	"context"
	"fmt"
	"iter"
	"time"

	"github.com/fjod/go_cart/bakery-pos/internal/cart"
	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"github.com/fjod/go_cart/bakery-pos/internal/ledger"
	"github.com/fjod/go_cart/bakery-pos/internal/metrics"
	"go.uber.org/zap"
)

// SaleStore is the part of the ledger the checkout needs.
type SaleStore interface {
	Append(ctx context.Context, lines []domain.SaleLine) ([]domain.SaleLine, error)
	ListAll(ctx context.Context) iter.Seq2[domain.SaleLine, error]
	List(ctx context.Context, limit int) ([]domain.SaleLine, error)
}

var _ SaleStore = (*ledger.Repository)(nil)

type CheckoutService struct {
	store  SaleStore
	clock  func() time.Time
	logger *zap.Logger
}

type CheckoutOption func(*CheckoutService)

// WithClock replaces time.Now as the source of sale timestamps.
func WithClock(clock func() time.Time) CheckoutOption {
	return func(s *CheckoutService) {
		s.clock = clock
	}
}

func WithLogger(logger *zap.Logger) CheckoutOption {
	return func(s *CheckoutService) {
		s.logger = logger
	}
}

func NewCheckoutService(store SaleStore, opts ...CheckoutOption) *CheckoutService {
	s := &CheckoutService{
		store:  store,
		clock:  time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout writes one sale line per cart line, all with the same timestamp,
// and clears the cart once they are stored. On failure the cart is untouched.
func (s *CheckoutService) Checkout(ctx context.Context, c *cart.Cart) ([]domain.SaleLine, error) {
	if c.IsEmpty() {
		metrics.Checkouts.WithLabelValues(metrics.ResultEmptyCart).Inc()
		return nil, ErrEmptyCart
	}

	timestamp := domain.FormatTimestamp(s.clock())
	cartLines := c.Lines()
	lines := make([]domain.SaleLine, 0, len(cartLines))
	for _, cl := range cartLines {
		lines = append(lines, domain.SaleLine{
			Timestamp:   timestamp,
			ProductName: cl.ProductName,
			Quantity:    cl.Quantity,
			UnitPrice:   cl.UnitPrice.Decimal(),
			Total:       cart.LineSubtotal(cl).Decimal(),
		})
	}

	stored, err := s.store.Append(ctx, lines)
	if err != nil {
		metrics.Checkouts.WithLabelValues(metrics.ResultPersistence).Inc()
		s.logger.Error("checkout failed", zap.Int("lines", len(lines)), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	total := c.Total()
	c.Clear()

	metrics.Checkouts.WithLabelValues(metrics.ResultCompleted).Inc()
	metrics.SaleLines.Add(float64(len(stored)))
	metrics.SoldAmount.Add(float64(total))
	s.logger.Info("checkout completed",
		zap.String("timestamp", timestamp),
		zap.Int("lines", len(stored)),
		zap.Int64("total", int64(total)),
	)

	return stored, nil
}

// History yields every recorded sale line, newest first.
func (s *CheckoutService) History(ctx context.Context) iter.Seq2[domain.SaleLine, error] {
	return s.store.ListAll(ctx)
}

func (s *CheckoutService) RecentSales(ctx context.Context, limit int) ([]domain.SaleLine, error) {
	return s.store.List(ctx, limit)
}
