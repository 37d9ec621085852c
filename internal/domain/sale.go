package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TimestampLayout is the text format of SaleLine.Timestamp.
const TimestampLayout = "2006-01-02 15:04:05"

// SaleLine is one persisted product line of a completed checkout.
type SaleLine struct {
	ID          int64           `json:"id"`
	Timestamp   string          `json:"timestamp"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

func FormatTimestamp(t time.Time) string {
	return t.Format(TimestampLayout)
}

// SaleCompletedEvent is the outbox payload written for one checkout.
type SaleCompletedEvent struct {
	CheckoutID  string          `json:"checkout_id"`
	Timestamp   string          `json:"timestamp"`
	Lines       []SaleLine      `json:"lines"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}
