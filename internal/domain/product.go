package domain

// Product is a catalog entry. Name is unique and acts as the key.
type Product struct {
	Name      string `json:"name" yaml:"name"`
	UnitPrice Amount `json:"unit_price" yaml:"unit_price"`
}
