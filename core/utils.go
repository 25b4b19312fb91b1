package core

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	hundred     = decimal.NewFromInt(100)
	nonDigitsRe = regexp.MustCompile(`\D`)
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanName trims s and collapses inner runs of whitespace into single spaces.
func CleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Percentage returns part/whole*100 rounded to 2 decimal places, or 0 when whole <= 0.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if whole.Sign() <= 0 {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole).Round(2)
}

// NormalizePhone converts a phone number to E.164.
// Bare 10-digit numbers are assumed to be Indian (+91).
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return ""
	}
	digits := nonDigitsRe.ReplaceAllString(phone, "")
	if strings.HasPrefix(phone, "+") {
		return "+" + digits
	}
	digits = strings.TrimLeft(digits, "0")
	if len(digits) == 10 {
		return "+91" + digits
	}
	return "+" + digits
}
