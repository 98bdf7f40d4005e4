package revenue

import (
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// CurrencyFormatter renders revenue amounts with locale aware digit grouping.
type CurrencyFormatter struct {
	Symbol string
}

// NewCurrencyFormatter returns a formatter using the dollar sign.
func NewCurrencyFormatter() CurrencyFormatter {
	return CurrencyFormatter{Symbol: "$"}
}

// Format renders amount for locale, e.g. 150000 as "$150,000". Whole amounts
// drop their decimals.
func (f CurrencyFormatter) Format(locale string, amount float64) string {
	printer := message.NewPrinter(resolveLanguage(locale))
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	var digits string
	if amount == math.Trunc(amount) {
		digits = printer.Sprintf("%.0f", amount)
	} else {
		digits = printer.Sprintf("%.2f", amount)
	}
	return sign + f.symbol() + digits
}

func (f CurrencyFormatter) symbol() string {
	if f.Symbol == "" {
		return "$"
	}
	return f.Symbol
}

func resolveLanguage(locale string) language.Tag {
	locale = strings.TrimSpace(locale)
	if locale == "" {
		return language.English
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.English
	}
	return tag
}
