package extract

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	minAmount = decimal.NewFromInt(1)
	maxAmount = decimal.NewFromInt(10_000_000)
)

// numberRe matches a grouped or plain number, with optional decimals.
var numberRe = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

// currencyAmountRe matches currency-prefixed amounts in running text.
var currencyAmountRe = regexp.MustCompile(`(?:₹|\bRs\.?|\bINR|\$|€|£)\s*(\d[\d,]*(?:\.\d+)?)`)

// mrpLabelRe matches an explicit "MRP ₹N" style label.
var mrpLabelRe = regexp.MustCompile(`(?i)\bM\.?R\.?P\.?\s*(?:[:\-]|is)?\s*(?:₹|Rs\.?|INR)?\s*(\d[\d,]*(?:\.\d+)?)`)

// ParseAmount pulls the first number out of s and returns it as a decimal.
// Separators are stripped, so both Indian (1,24,999) and western (124,999)
// grouping parse the same. Amounts outside the plausible range yield nil.
func ParseAmount(s string) *decimal.Decimal {
	m := numberRe.FindString(s)
	if m == "" {
		return nil
	}
	return parseNumber(m)
}

func parseNumber(raw string) *decimal.Decimal {
	clean := strings.TrimRight(strings.ReplaceAll(raw, ",", ""), ".")
	d, err := decimal.NewFromString(clean)
	if err != nil {
		return nil
	}
	if d.LessThan(minAmount) || d.GreaterThan(maxAmount) {
		return nil
	}
	return &d
}

// CurrencyAmounts returns every currency-prefixed amount in text, in
// document order.
func CurrencyAmounts(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, m := range currencyAmountRe.FindAllStringSubmatch(text, -1) {
		if d := parseNumber(m[1]); d != nil {
			out = append(out, *d)
		}
	}
	return out
}

func labelledMRP(text string) *decimal.Decimal {
	m := mrpLabelRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	return parseNumber(m[1])
}
