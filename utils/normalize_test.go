package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	t.Run("LowersAndTrims", func(t *testing.T) {
		got := NormalizeEmail("  Jane.Doe@Example.COM ")
		require.NotNil(t, got)
		assert.Equal(t, "jane.doe@example.com", *got)
	})

	t.Run("RejectsMissingAt", func(t *testing.T) {
		assert.Nil(t, NormalizeEmail("jane.doe.example.com"))
	})

	t.Run("RejectsDomainWithoutDot", func(t *testing.T) {
		assert.Nil(t, NormalizeEmail("jane@localhost"))
	})

	t.Run("RejectsEmpty", func(t *testing.T) {
		assert.Nil(t, NormalizeEmail(""))
		assert.Nil(t, NormalizeEmail("   "))
	})

	t.Run("RejectsTrailingAt", func(t *testing.T) {
		assert.Nil(t, NormalizeEmail("jane@"))
	})
}

func TestNormalizePhone(t *testing.T) {
	t.Run("TenDigitsGetsCountryCode", func(t *testing.T) {
		got := NormalizePhone("(555) 123-4567")
		require.NotNil(t, got)
		assert.Equal(t, "+15551234567", *got)
	})

	t.Run("ElevenDigitsStartingWithOne", func(t *testing.T) {
		got := NormalizePhone("1-555-123-4567")
		require.NotNil(t, got)
		assert.Equal(t, "+15551234567", *got)
	})

	t.Run("OtherLengthsKeepDigits", func(t *testing.T) {
		got := NormalizePhone("+44 20 7946 0958")
		require.NotNil(t, got)
		assert.Equal(t, "+442079460958", *got)
	})

	t.Run("NoDigitsIsAbsent", func(t *testing.T) {
		assert.Nil(t, NormalizePhone(""))
		assert.Nil(t, NormalizePhone("n/a"))
	})
}

func TestNormalizeName(t *testing.T) {
	t.Run("LowersStripsAndCollapses", func(t *testing.T) {
		got := NormalizeName("  O'Brien,   Janet 2nd ")
		require.NotNil(t, got)
		assert.Equal(t, "obrien janet nd", *got)
	})

	t.Run("EmptyIsAbsent", func(t *testing.T) {
		assert.Nil(t, NormalizeName("123 !!!"))
		assert.Nil(t, NormalizeName(""))
	})
}
