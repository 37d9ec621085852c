package catalog

import (
	"errors"
	"fmt"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
)

var (
	ErrUnknownProduct = errors.New("unknown product")
	ErrInvalidCatalog = errors.New("invalid catalog")
)

// Catalog is the immutable product -> price lookup of the till.
type Catalog struct {
	products []domain.Product
	prices   map[string]domain.Amount
}

// New builds a catalog keeping the order of products.
func New(products []domain.Product) (*Catalog, error) {
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: no products", ErrInvalidCatalog)
	}

	c := &Catalog{
		products: make([]domain.Product, 0, len(products)),
		prices:   make(map[string]domain.Amount, len(products)),
	}
	for _, p := range products {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: product without name", ErrInvalidCatalog)
		}
		if p.UnitPrice < 0 {
			return nil, fmt.Errorf("%w: negative price for %q", ErrInvalidCatalog, p.Name)
		}
		if _, dup := c.prices[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate product %q", ErrInvalidCatalog, p.Name)
		}
		c.prices[p.Name] = p.UnitPrice
		c.products = append(c.products, p)
	}
	return c, nil
}

func (c *Catalog) PriceOf(name string) (domain.Amount, error) {
	price, ok := c.prices[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownProduct, name)
	}
	return price, nil
}

// Products returns a copy of the catalog in display order.
func (c *Catalog) Products() []domain.Product {
	out := make([]domain.Product, len(c.products))
	copy(out, c.products)
	return out
}

func (c *Catalog) Len() int {
	return len(c.products)
}
