package cart

import (
	"errors"
	"fmt"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
)

// DefaultMaxQuantity caps a single line, mirroring the till's input widget.
const DefaultMaxQuantity = 100

var (
	ErrInvalidQuantity = errors.New("invalid quantity")
	ErrInvalidAmount   = errors.New("invalid amount")
)

// PriceLookup is the part of the catalog the cart needs.
type PriceLookup interface {
	PriceOf(name string) (domain.Amount, error)
}

// Cart holds the lines of the current transaction of one session.
// It is not safe for concurrent use; every session owns its own Cart.
type Cart struct {
	prices      PriceLookup
	maxQuantity int
	lines       []domain.CartLine
	received    domain.Amount
}

type Option func(*Cart)

func WithMaxQuantity(n int) Option {
	return func(c *Cart) {
		if n > 0 {
			c.maxQuantity = n
		}
	}
}

func New(prices PriceLookup, opts ...Option) *Cart {
	c := &Cart{
		prices:      prices,
		maxQuantity: DefaultMaxQuantity,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetQuantity sets the quantity of a product. Zero removes the line.
func (c *Cart) SetQuantity(productName string, quantity int) error {
	price, err := c.prices.PriceOf(productName)
	if err != nil {
		return err
	}
	if quantity < 0 || quantity > c.maxQuantity {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidQuantity, quantity, c.maxQuantity)
	}

	idx := c.indexOf(productName)
	if quantity == 0 {
		if idx >= 0 {
			c.lines = append(c.lines[:idx], c.lines[idx+1:]...)
		}
		return nil
	}

	line := domain.CartLine{ProductName: productName, Quantity: quantity, UnitPrice: price}
	if idx >= 0 {
		c.lines[idx] = line
		return nil
	}
	c.lines = append(c.lines, line)
	return nil
}

// Lines returns the current lines in insertion order.
func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Len() int {
	return len(c.lines)
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

// LineSubtotal returns quantity x unit price of a line.
func LineSubtotal(line domain.CartLine) domain.Amount {
	return line.Subtotal()
}

// Total is recomputed from the lines on every call.
func (c *Cart) Total() domain.Amount {
	var total domain.Amount
	for _, line := range c.lines {
		total += LineSubtotal(line)
	}
	return total
}

// ComputeChange returns amountReceived - Total(). A negative result means
// the payment is insufficient; the caller decides whether to block checkout.
func (c *Cart) ComputeChange(amountReceived domain.Amount) domain.Amount {
	return amountReceived - c.Total()
}

func (c *Cart) SetReceived(amount domain.Amount) error {
	if amount < 0 {
		return fmt.Errorf("%w: received amount %d is negative", ErrInvalidAmount, amount)
	}
	c.received = amount
	return nil
}

func (c *Cart) Received() domain.Amount {
	return c.received
}

// Change is ComputeChange applied to the pending received amount.
func (c *Cart) Change() domain.Amount {
	return c.ComputeChange(c.received)
}

// Reset empties the cart and forgets the received amount.
func (c *Cart) Reset() {
	c.lines = nil
	c.received = 0
}

// Clear drops the lines after a completed checkout. The received amount
// is kept until Reset, as on the till screen.
func (c *Cart) Clear() {
	c.lines = nil
}

func (c *Cart) Snapshot() domain.CartState {
	return domain.CartState{
		Lines:    c.Lines(),
		Received: c.received,
	}
}

// Restore rebuilds a cart from a snapshot. Lines keep their captured unit
// price, but every product must still exist in the catalog.
func Restore(prices PriceLookup, state domain.CartState, opts ...Option) (*Cart, error) {
	c := New(prices, opts...)
	for _, line := range state.Lines {
		if _, err := prices.PriceOf(line.ProductName); err != nil {
			return nil, err
		}
		if line.Quantity <= 0 || line.Quantity > c.maxQuantity {
			return nil, fmt.Errorf("%w: %d for %q", ErrInvalidQuantity, line.Quantity, line.ProductName)
		}
		if c.indexOf(line.ProductName) >= 0 {
			return nil, fmt.Errorf("duplicate line for %q", line.ProductName)
		}
		c.lines = append(c.lines, line)
	}
	if err := c.SetReceived(state.Received); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cart) indexOf(productName string) int {
	for i, line := range c.lines {
		if line.ProductName == productName {
			return i
		}
	}
	return -1
}
