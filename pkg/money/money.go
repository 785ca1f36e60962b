// Package money provides tolerant parsing of monetary and quantity text from
// brokerage exports, plus ISO-4217 currency handling. Amounts arrive with
// currency prefixes, quote characters and regional thousands separators; the
// parser strips all of that before converting with shopspring/decimal.
package money

import (
	"errors"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var ErrEmptyAmount = errors.New("empty amount")

// currency markers stripped before numeric conversion; longer tokens first so
// "R$" wins over "$".
var currencyMarkers = []string{
	"USD", "EUR", "GBP", "BRL", "CHF", "CAD", "AUD",
	"R$", "US$", "$", "€", "£", "Fr",
}

// ParseAmount converts a raw cell value into a decimal. It tolerates currency
// symbols/codes, surrounding quotes, whitespace, parenthesised negatives and
// both regional separator conventions ("1,234.56" and "1.234,56").
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}

	for _, marker := range currencyMarkers {
		s = strings.ReplaceAll(s, marker, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00a0", "")

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.Trim(s, "()")
	}
	if strings.HasPrefix(s, "-") {
		negative = true
		s = strings.TrimPrefix(s, "-")
	}
	s = strings.TrimPrefix(s, "+")

	s = normalizeSeparators(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// normalizeSeparators rewrites a numeric string into dot-decimal form. When
// both separators appear, whichever comes last is the decimal separator. A
// lone comma or dot followed by exactly three digits is treated as a
// thousands separator only when another group precedes it; otherwise a lone
// comma is a European decimal.
func normalizeSeparators(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			// European: 1.234,56
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// US: 1,234.56
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		idx := strings.LastIndex(s, ",")
		if len(s)-idx-1 == 3 && strings.Count(s, ",") == 1 && idx > 0 && !strings.HasPrefix(s, "0") {
			// Ambiguous "1,234": the thousands reading is far more common in
			// trade exports than a three-decimal price. "0,125" stays decimal.
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.ReplaceAll(s[:idx], ",", "") + "." + s[idx+1:]
		}
	case hasDot:
		if strings.Count(s, ".") > 1 {
			// Multiple dots: European grouping ("1.234.567") unless the final
			// group breaks the three-digit pattern ("1.234.5" → decimal).
			idx := strings.LastIndex(s, ".")
			if len(s)-idx-1 == 3 {
				s = strings.ReplaceAll(s, ".", "")
			} else {
				s = strings.ReplaceAll(s[:idx], ".", "") + "." + s[idx+1:]
			}
		}
	}
	return s
}

// ValidCurrency reports whether code is a known ISO-4217 currency code.
func ValidCurrency(code string) bool {
	if len(code) != 3 {
		return false
	}
	return gomoney.GetCurrency(strings.ToUpper(code)) != nil
}

// ResolveCurrency returns the uppercased code when valid, otherwise the
// broker's default.
func ResolveCurrency(code, fallback string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if ValidCurrency(code) {
		return code
	}
	return fallback
}
