package utils

import (
	"strings"
	"unicode/utf8"
)

// domainTypoTable maps common TLD misspellings to their intended form.
// The fix is applied to the substring after the last dot of the domain only.
var domainTypoTable = map[string]string{
	"con":  "com",
	"cmo":  "com",
	"ocm":  "com",
	"vom":  "com",
	"xom":  "com",
	"comm": "com",
	"cpm":  "com",
	"ogr":  "org",
	"rog":  "org",
	"orh":  "org",
	"ner":  "net",
	"nte":  "net",
	"met":  "net",
}

// Similarity returns 1 - editDistance(a,b)/max(|a|,|b|) in [0,1], with
// lengths counted in runes so the ratio uses the same unit as the distance.
// Empty input on either side scores 0.
func Similarity(a, b string) float64 {
	if a == "" || b == "" {
		return 0
	}
	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}
	return 1 - float64(editDistance(a, b))/float64(maxLen)
}

// editDistance computes the Levenshtein distance between two strings using a
// rolling single-row table.
func editDistance(a, b string) int {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur := prev[0]
		prev[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			ins := prev[j] + 1
			del := prev[j-1] + 1
			sub := cur + cost
			cur = prev[j]
			m := ins
			if del < m {
				m = del
			}
			if sub < m {
				m = sub
			}
			prev[j] = m
		}
	}
	return prev[len(rb)]
}

// FixDomainTypo corrects a known TLD misspelling in the domain part of an
// email address. Values without an "@" or an unknown TLD pass through
// unchanged.
func FixDomainTypo(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	domain := email[at+1:]
	dot := strings.LastIndex(domain, ".")
	if dot < 0 {
		return email
	}
	tld := domain[dot+1:]
	fixed, ok := domainTypoTable[tld]
	if !ok {
		return email
	}
	return email[:at+1] + domain[:dot+1] + fixed
}

// DomainsMatch reports whether the domains of two email addresses are equal
// after typo correction.
func DomainsMatch(a, b string) bool {
	da := emailDomain(FixDomainTypo(a))
	db := emailDomain(FixDomainTypo(b))
	return da != "" && da == db
}

func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return ""
	}
	return email[at+1:]
}
