package format

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const currencySymbol = "S/"

// Money renders an amount as soles with two decimals and thousands
// separators, e.g. "S/ 1,234.50" or "-S/ 20.00".
func Money(amount decimal.Decimal) string {
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Neg()
	}

	fixed := amount.StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")

	var grouped strings.Builder
	for i, c := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped.WriteByte(',')
		}
		grouped.WriteRune(c)
	}
	return sign + currencySymbol + " " + grouped.String() + "." + frac
}

// Signed prefixes income with "+" and expense with "-".
func Signed(amount decimal.Decimal, income bool) string {
	if income {
		return "+" + Money(amount)
	}
	return "-" + Money(amount)
}

var weekdays = [...]string{"dom", "lun", "mar", "mié", "jue", "vie", "sáb"}

// Date renders a calendar date as "mar 05/03".
func Date(t time.Time) string {
	return weekdays[t.Weekday()] + " " + t.Format("02/01")
}
