package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	t.Run("IdenticalIsOne", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("jane@gmail.com", "jane@gmail.com"))
	})

	t.Run("EmptyIsZero", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("", "jane@gmail.com"))
		assert.Equal(t, 0.0, Similarity("jane@gmail.com", ""))
	})

	t.Run("OneEditOverTen", func(t *testing.T) {
		// One substitution over max length 10 scores exactly 0.90.
		assert.InDelta(t, 0.90, Similarity("abcdefghij", "abcdefghix"), 1e-9)
	})

	t.Run("OneEditOverNineIsBelowThreshold", func(t *testing.T) {
		sim := Similarity("abcdefghi", "abcdefghx")
		assert.Less(t, sim, FuzzyMatchThreshold)
	})

	t.Run("Transposition", func(t *testing.T) {
		// Plain Levenshtein counts a swap as two edits.
		assert.InDelta(t, 0.80, Similarity("abcdefghij", "abcdefghji"), 1e-9)
	})

	t.Run("MultiByteRunesCountOnce", func(t *testing.T) {
		// One substitution over nine Greek runes is 1 - 1/9, the same score
		// the equivalent ASCII pair gets. Byte lengths must not inflate the
		// denominator.
		sim := Similarity("ααααααααα", "αααααααβα")
		assert.InDelta(t, 1.0-1.0/9.0, sim, 1e-9)
		assert.Less(t, sim, FuzzyMatchThreshold)
	})
}

func TestFixDomainTypo(t *testing.T) {
	t.Run("CorrectsKnownTypos", func(t *testing.T) {
		assert.Equal(t, "jane@gmail.com", FixDomainTypo("jane@gmail.con"))
		assert.Equal(t, "jane@example.org", FixDomainTypo("jane@example.ogr"))
		assert.Equal(t, "jane@example.net", FixDomainTypo("jane@example.ner"))
	})

	t.Run("ClosureOverTypoTable", func(t *testing.T) {
		for typo, want := range domainTypoTable {
			fixed := FixDomainTypo("x@gmail." + typo)
			assert.Equal(t, "x@gmail."+want, fixed, "typo %q", typo)
			if want == "com" {
				assert.Equal(t, FixDomainTypo("x@gmail.com"), fixed, "typo %q", typo)
			}
			// Corrected forms are fixed points.
			assert.Equal(t, fixed, FixDomainTypo(fixed), "typo %q", typo)
		}
	})

	t.Run("PassesThroughUnknown", func(t *testing.T) {
		assert.Equal(t, "jane@gmail.com", FixDomainTypo("jane@gmail.com"))
		assert.Equal(t, "jane@club.dev", FixDomainTypo("jane@club.dev"))
		assert.Equal(t, "not-an-email", FixDomainTypo("not-an-email"))
	})
}

func TestDomainsMatch(t *testing.T) {
	assert.True(t, DomainsMatch("jane@gmail.con", "janet@gmail.com"))
	assert.True(t, DomainsMatch("a@example.ogr", "b@example.org"))
	assert.False(t, DomainsMatch("a@gmail.com", "b@yahoo.com"))
	assert.False(t, DomainsMatch("no-at-sign", "b@yahoo.com"))
}
