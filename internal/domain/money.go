package domain

import "github.com/shopspring/decimal"

// MoneyPlaces is the number of fractional digits kept for every amount.
const MoneyPlaces = 2

// Money rounds an amount to MoneyPlaces.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
