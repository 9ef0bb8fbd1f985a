package game

import "github.com/shopspring/decimal"

var (
	thousand = decimal.NewFromInt(1_000)
	million  = decimal.NewFromInt(1_000_000)
	hundred  = decimal.NewFromInt(100)
)

// FormatMoney renders an amount in thousands, e.g. 850 -> "$850K", 1500 -> "$1.5M".
func FormatMoney(thousands int64) string {
	d := decimal.NewFromInt(thousands)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}
	switch {
	case d.GreaterThanOrEqual(million):
		return sign + "$" + d.Div(million).StringFixed(1) + "B"
	case d.GreaterThanOrEqual(thousand):
		return sign + "$" + d.Div(thousand).StringFixed(1) + "M"
	default:
		return sign + "$" + d.String() + "K"
	}
}

func FormatMultiple(m float64) string {
	return decimal.NewFromFloat(m).StringFixed(1) + "x"
}

// FormatPercent takes a fraction: 0.123 -> "12.3%".
func FormatPercent(f float64) string {
	return decimal.NewFromFloat(f).Mul(hundred).StringFixed(1) + "%"
}
