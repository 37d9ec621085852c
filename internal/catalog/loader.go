package catalog

import (
	"fmt"
	"os"

	"github.com/fjod/go_cart/bakery-pos/internal/domain"
	"gopkg.in/yaml.v3"
)

// Default is the product list of the shop till, prices in FCFA.
var Default = []domain.Product{
	{Name: "Baguette", UnitPrice: 100},
	{Name: "Croissant", UnitPrice: 300},
	{Name: "Pain au chocolat", UnitPrice: 400},
	{Name: "Pain aux raisins", UnitPrice: 300},
	{Name: "Pain complet", UnitPrice: 150},
	{Name: "Pain de campagne", UnitPrice: 300},
	{Name: "Brioche", UnitPrice: 300},
	{Name: "Pain aux céréales", UnitPrice: 200},
}

type fileFormat struct {
	Products []domain.Product `yaml:"products"`
}

// Load reads a catalog file. An empty path yields the built-in catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return New(Default)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Catalog, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return New(f.Products)
}
