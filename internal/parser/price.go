package parser

import (
	"strconv"
	"strings"
)

// currencyReplacer strips the currency symbol, whitespace variants, and
// thousands separators from a locale-formatted price string, then turns
// the decimal comma into a dot.
var currencyReplacer = strings.NewReplacer(
	"€", "",
	"EUR", "",
	" ", "",
	" ", "",
	".", "",
)

// ParseLocalePrice parses a locale-formatted currency string such as
// "€ 1.234,00" into 1234.0. It returns 0 and false when the string does
// not contain a parseable amount.
func ParseLocalePrice(s string) (float64, bool) {
	s = currencyReplacer.Replace(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// parseDecimalComma parses a plain decimal-comma number such as "62,5".
func parseDecimalComma(s string) (float64, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, false
	}

	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}
