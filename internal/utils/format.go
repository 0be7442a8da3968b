package utils

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatPortfolioPercentage returns value as a share of total, e.g. "60.00%".
// A zero total yields "0.00%".
func FormatPortfolioPercentage(value, total float64) string {
	if total == 0 {
		return "0.00%"
	}
	share := decimal.NewFromFloat(value).Div(decimal.NewFromFloat(total)).Mul(decimal.NewFromInt(100))
	return share.StringFixed(2) + "%"
}

// FormatYearlyGain renders a projected gain as "+$12.34/year".
func FormatYearlyGain(gain decimal.Decimal) string {
	return fmt.Sprintf("+$%s/year", gain.StringFixed(2))
}

// YearlyGain is capital * (newAPY - currentAPY) / 100, with APYs in percent.
func YearlyGain(capital, currentAPY, newAPY float64) decimal.Decimal {
	spread := decimal.NewFromFloat(newAPY).Sub(decimal.NewFromFloat(currentAPY))
	return decimal.NewFromFloat(capital).Mul(spread).Div(decimal.NewFromInt(100))
}
