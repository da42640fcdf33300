// Package priceparse normalizes heterogeneous price text into a numeric
// amount. It is a heuristic, not an i18n-correct parser: "1.234" is read
// as one-point-two-three-four even on sites that mean thousands.
package priceparse

import (
	"strconv"
	"strings"
)

// Amount parses raw price text into a non-negative amount.
// Unparseable input yields 0, which callers treat as a missing price.
func Amount(text string) float64 {
	if text == "" {
		return 0
	}

	cleaned := stripNonNumeric(text)
	if cleaned == "" {
		return 0
	}

	hasComma := strings.Contains(cleaned, ",")
	hasDot := strings.Contains(cleaned, ".")

	switch {
	case hasComma && hasDot:
		// Comma is a thousands separator, dot the decimal point.
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case hasComma:
		parts := strings.Split(cleaned, ",")
		if len(parts) == 2 && len(parts[1]) <= 2 {
			// Single comma with a short fraction reads as a decimal comma.
			cleaned = parts[0] + "." + parts[1]
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || amount < 0 {
		return 0
	}
	return amount
}

// stripNonNumeric keeps digits, commas and dots only.
func stripNonNumeric(text string) string {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == ',' || r == '.' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
