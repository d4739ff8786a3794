package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUSD renders a whole-dollar amount with thousands separators, e.g. $3,050,000.
func FormatUSD(d decimal.Decimal) string {
	s := d.Round(0).StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	var b strings.Builder
	pre := len(s) % 3
	if pre > 0 {
		b.WriteString(s[:pre])
	}
	for i := pre; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	if neg {
		return "-$" + b.String()
	}
	return "$" + b.String()
}

// SurchargeLabel renders an option price the way the configurator lists it.
func SurchargeLabel(d decimal.Decimal) string {
	if d.IsZero() {
		return "Included"
	}
	return "+" + FormatUSD(d)
}
