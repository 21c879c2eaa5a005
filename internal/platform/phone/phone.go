// Package phone converts user-entered phone numbers into the canonical digits-only form used as the
// candidate lookup key.
package phone

import "strings"

// DefaultCountryCode is prefixed to national numbers (area code + subscriber).
const DefaultCountryCode = "55"

// MinDigits is the smallest digit count accepted for a contact phone.
const MinDigits = 10

// Digits strips every non-digit character from raw.
func Digits(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Canonicalize strips non-digits and, when 10 or 11 digits remain (area + subscriber), prefixes
// countryCode. Any other length passes through unchanged. Stored candidate rows are keyed by this form,
// so the rule must not change.
//
// countryCode must be at least two digits long for the result to be stable under repeated application.
func Canonicalize(raw, countryCode string) string {
	d := Digits(raw)
	if n := len(d); n == 10 || n == 11 {
		return countryCode + d
	}
	return d
}

// Mask hides all but the last four digits, for logs.
func Mask(p string) string {
	if len(p) <= 4 {
		return strings.Repeat("*", len(p))
	}
	return strings.Repeat("*", len(p)-4) + p[len(p)-4:]
}
