package analysis

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	crore = 1e7
	lakh  = 1e5
)

// amountPattern matches rupee amounts written with a currency marker, an
// Indian unit word, or both: "Rs. 12,50,000", "INR 4.5 crore", "₹3 lakhs",
// "75 lakh".
var amountPattern = regexp.MustCompile(`(?i)(₹|\brs\.?|\binr)?\s*([0-9][0-9,]*(?:\.[0-9]+)?)(?:\s*(crores?\b|cr\b|lakhs?\b|lacs?\b))?`)

// Amount is a monetary value found in a line of text.
type Amount struct {
	Value float64
	Raw   string
}

// ExtractAmounts returns every amount in s, in order of appearance. Bare
// numbers without a currency marker or unit are ignored so dates, clause
// numbers and quantities are not mistaken for money.
func ExtractAmounts(s string) []Amount {
	var out []Amount
	for _, m := range amountPattern.FindAllStringSubmatch(s, -1) {
		currency, number, unit := m[1], m[2], strings.ToLower(m[3])
		if currency == "" && unit == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.ReplaceAll(number, ",", ""), 64)
		if err != nil || v <= 0 {
			continue
		}
		switch {
		case strings.HasPrefix(unit, "cr"):
			v *= crore
		case strings.HasPrefix(unit, "la"):
			v *= lakh
		}
		out = append(out, Amount{Value: v, Raw: strings.TrimSpace(m[0])})
	}
	return out
}

// FormatRupees renders v in lakh/crore notation for human-readable messages.
func FormatRupees(v float64) string {
	switch {
	case v >= crore:
		return "Rs. " + strconv.FormatFloat(v/crore, 'f', 2, 64) + " crore"
	case v >= lakh:
		return "Rs. " + strconv.FormatFloat(v/lakh, 'f', 2, 64) + " lakh"
	default:
		return "Rs. " + strconv.FormatFloat(v, 'f', 0, 64)
	}
}
