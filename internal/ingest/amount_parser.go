package ingest

import (
	"fmt"
	"strconv"
	"strings"
)

var currencyTokens = []string{"usd", "us$", "$", "£", "€", "gbp", "eur"}

// ParseAmount reads a revenue cell such as "$1,250.00", "1250" or "(300)".
// Empty cells are zero. Parenthesised values are negative.
func ParseAmount(text string) (float64, error) {
	s := strings.ToLower(normalizeSpace(text))
	if s == "" || s == "-" {
		return 0, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, " ", "")

	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unable to parse amount: %s", text)
	}
	if negative {
		val = -val
	}
	return val, nil
}
