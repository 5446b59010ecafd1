package util

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	reGroupedComma = regexp.MustCompile(`^\d{1,3}(?:,\d{3})+(?:\.\d+)?$`)
	reGroupedSpace = regexp.MustCompile(`^\d{1,3}(?: \d{3})+(?:\.\d+)?$`)
	rePlainNumber  = regexp.MustCompile(`^\d+(?:\.\d+)?$`)
	reDecimalComma = regexp.MustCompile(`^\d+,\d{1,2}$`)
)

// ParseAmount reads a money or weight token such as "$1,234.50", "1 200" or
// "(12.00)". Parenthesised values are negative.
func ParseAmount(token string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(token)
	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	if strings.HasPrefix(s, "-") {
		neg = true
		s = strings.TrimSpace(s[1:])
	}
	s = strings.ToUpper(s)
	for _, prefix := range []string{"CAD", "USD", "$"} {
		s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
	}

	norm := normalizeNumericToken(s)
	if norm == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(norm)
	if err != nil {
		return decimal.Zero, false
	}
	if neg {
		d = d.Neg()
	}
	return d, true
}

// ParseInt reads a whole quantity, tolerating thousands separators.
func ParseInt(token string) (int, bool) {
	norm := normalizeNumericToken(strings.TrimSpace(token))
	if norm == "" || strings.Contains(norm, ".") {
		if d, err := decimal.NewFromString(norm); err == nil && d.IsInteger() {
			return int(d.IntPart()), true
		}
		return 0, false
	}
	n, err := strconv.Atoi(norm)
	if err != nil {
		return 0, false
	}
	return n, true
}

func normalizeNumericToken(token string) string {
	compact := strings.ReplaceAll(token, "\u00a0", " ")
	switch {
	case reGroupedComma.MatchString(compact):
		return strings.ReplaceAll(compact, ",", "")
	case reGroupedSpace.MatchString(compact):
		return strings.ReplaceAll(compact, " ", "")
	case reDecimalComma.MatchString(compact):
		return strings.ReplaceAll(compact, ",", ".")
	case rePlainNumber.MatchString(compact):
		return compact
	}
	return ""
}
