package normalize

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var nonPriceChars = regexp.MustCompile(`[^\d.,]`)

// ParsePrice converts a raw price string into a decimal amount. It strips
// currency tokens and whitespace, detects which separator is the decimal
// point from the digit grouping, and rejects negative or non-numeric input.
// The boolean result is false when no valid amount could be parsed.
func ParsePrice(text string) (decimal.Decimal, bool) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" || strings.HasPrefix(trimmed, "-") {
		return decimal.Zero, false
	}

	cleaned := nonPriceChars.ReplaceAllString(trimmed, "")
	if cleaned == "" {
		return decimal.Zero, false
	}

	canonical, ok := canonicalizeSeparators(cleaned)
	if !ok {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(canonical)
	if err != nil || amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount, true
}

// canonicalizeSeparators rewrites a localized numeric string into the
// canonical dot-decimal form. "1.234,56" and "1,234.56" both become
// "1234.56".
func canonicalizeSeparators(s string) (string, bool) {
	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")

	switch {
	case lastDot >= 0 && lastComma >= 0:
		// Both present: the rightmost one is the decimal separator.
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		s = resolveSingleSeparator(s, ",", lastComma)
	case lastDot >= 0:
		s = resolveSingleSeparator(s, ".", lastDot)
	}

	if strings.Count(s, ".") > 1 || strings.ContainsAny(s, ",") {
		return "", false
	}
	if s == "" || s == "." {
		return "", false
	}
	return s, true
}

// resolveSingleSeparator decides whether a lone separator groups thousands
// or marks decimals. Exactly three trailing digits with valid grouping reads
// as thousands ("1,234" and "1.234.567"); anything else reads as a decimal
// mark ("24,9", "89.99").
func resolveSingleSeparator(s, sep string, lastIdx int) string {
	trailing := len(s) - lastIdx - 1
	if trailing == 3 && validGrouping(s, sep) {
		return strings.ReplaceAll(s, sep, "")
	}
	if strings.Count(s, sep) > 1 {
		// Multiple separators that are not valid grouping: unparseable,
		// leave for the caller to reject.
		return s
	}
	return s[:lastIdx] + "." + s[lastIdx+1:]
}

// validGrouping reports whether every separator-delimited group after the
// first has exactly three digits.
func validGrouping(s, sep string) bool {
	groups := strings.Split(s, sep)
	if len(groups) < 2 || len(groups[0]) == 0 || len(groups[0]) > 3 {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}
