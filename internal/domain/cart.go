package domain

type CartLine struct {
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   Amount `json:"unit_price"` // captured when the quantity was set
}

// Subtotal returns quantity x unit price.
func (l CartLine) Subtotal() Amount {
	return Amount(l.Quantity) * l.UnitPrice
}

// CartState is the serialisable form of a session cart.
type CartState struct {
	Lines    []CartLine `json:"lines"`
	Received Amount     `json:"received"`
}
