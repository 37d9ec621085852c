package domain

import "github.com/shopspring/decimal"

// Amount is a sum of money in whole currency units.
type Amount int64

func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromInt(int64(a))
}
