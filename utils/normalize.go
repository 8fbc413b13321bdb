// Package utils provides utility functions for the application.
package utils

import (
	"strings"
	"unicode"
)

// NormalizeEmail lowers and trims a raw email address and returns its
// canonical comparison form. Returns nil when the value carries no usable
// email signal (no "@", or a domain without a dot). Never fails: a malformed
// identifier is simply treated as absent.
func NormalizeEmail(raw string) *string {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return nil
	}
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return nil
	}
	domain := email[at+1:]
	if !strings.Contains(domain, ".") {
		return nil
	}
	return &email
}

// NormalizePhone strips a raw phone number to digits and prefixes a country
// code: 10 digits are assumed US/CA and get "+1", 11 digits starting with "1"
// get "+", anything else keeps its digits behind "+". Returns nil when no
// digits remain.
func NormalizePhone(raw string) *string {
	var digits strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if d == "" {
		return nil
	}

	var normalized string
	switch {
	case len(d) == 10:
		normalized = "+1" + d
	case len(d) == 11 && d[0] == '1':
		normalized = "+" + d
	default:
		normalized = "+" + d
	}
	return &normalized
}

// NormalizeName lowers a raw name, strips everything except letters and
// spaces, and collapses runs of whitespace. Returns nil when nothing is left.
func NormalizeName(raw string) *string {
	lowered := strings.ToLower(raw)
	var b strings.Builder
	for _, r := range lowered {
		if unicode.IsLetter(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	name := strings.Join(strings.Fields(b.String()), " ")
	if name == "" {
		return nil
	}
	return &name
}
