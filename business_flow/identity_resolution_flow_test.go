package businessflow

import (
	"testing"
	"time"

	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCustomerRegistry_NoIdentifiableSignal(t *testing.T) {
	reg := NewCustomerRegistry(0)

	_, ok := reg.Resolve(ContactRecord{Name: "Jane Doe", Source: utils.SourceCapitan})
	assert.False(t, ok)
	assert.Equal(t, 0, reg.Size())

	_, ok = reg.Resolve(ContactRecord{Email: "not-an-email", Phone: "n/a", Source: utils.SourceCapitan})
	assert.False(t, ok, "unusable identifiers normalize to nil and the record is discarded")
}

func TestCustomerRegistry_Idempotence(t *testing.T) {
	reg := NewCustomerRegistry(0)
	rec := ContactRecord{Email: "A@X.com", Phone: "(555) 123-4567", Source: utils.SourceCapitan, FirstSeen: time.Now()}

	first, ok := reg.Resolve(rec)
	require.True(t, ok)
	require.True(t, first.Created)
	assert.Equal(t, models.ConfidenceExact, first.Confidence)
	assert.Equal(t, models.MatchReasonNewCustomer, first.Reason)

	second, ok := reg.Resolve(rec)
	require.True(t, ok)
	assert.False(t, second.Created)
	assert.Equal(t, first.Customer.UUID, second.Customer.UUID)
	assert.Equal(t, models.ConfidenceHigh, second.Confidence)
	assert.Equal(t, models.MatchReasonExactEmailAndPhone, second.Reason)
	assert.Equal(t, 1, reg.Size())
}

func TestCustomerRegistry_TierDeterminism(t *testing.T) {
	// Same normalized email always matches exact_email/high once the first
	// record creates the customer, regardless of what else the record carries.
	reg := NewCustomerRegistry(0)

	first, ok := reg.Resolve(ContactRecord{Email: "a@x.com", Source: utils.SourceCapitan})
	require.True(t, ok)
	require.True(t, first.Created)

	second, ok := reg.Resolve(ContactRecord{Email: "  A@x.COM ", Phone: "5551234567", Source: utils.SourceStripe})
	require.True(t, ok)
	assert.False(t, second.Created)
	assert.Equal(t, models.MatchReasonExactEmail, second.Reason)
	assert.Equal(t, models.ConfidenceHigh, second.Confidence)
}

func TestCustomerRegistry_ExactPhone(t *testing.T) {
	reg := NewCustomerRegistry(0)

	first, ok := reg.Resolve(ContactRecord{Phone: "5551234567", Source: utils.SourceSquare})
	require.True(t, ok)
	require.True(t, first.Created)

	second, ok := reg.Resolve(ContactRecord{Phone: "+1 (555) 123-4567", Source: utils.SourceStripe})
	require.True(t, ok)
	assert.False(t, second.Created)
	assert.Equal(t, first.Customer.UUID, second.Customer.UUID)
	assert.Equal(t, models.MatchReasonExactPhone, second.Reason)
}

func TestCustomerRegistry_FuzzyBoundary(t *testing.T) {
	t.Run("similarity at threshold matches", func(t *testing.T) {
		reg := NewCustomerRegistry(0)
		seed, ok := reg.Resolve(ContactRecord{Email: "abcde@x.io", Source: utils.SourceCapitan})
		require.True(t, ok)

		// One edit over ten characters, same domain: similarity 0.90 exactly.
		got, ok := reg.Resolve(ContactRecord{Email: "abcdz@x.io", Source: utils.SourceMailchimp})
		require.True(t, ok)
		assert.False(t, got.Created)
		assert.Equal(t, seed.Customer.UUID, got.Customer.UUID)
		assert.Equal(t, models.ConfidenceLow, got.Confidence)
		assert.Equal(t, "fuzzy_email_90", got.Reason)
	})

	t.Run("similarity below threshold creates a new customer", func(t *testing.T) {
		reg := NewCustomerRegistry(0)
		_, ok := reg.Resolve(ContactRecord{Email: "ab@x.com", Source: utils.SourceCapitan})
		require.True(t, ok)

		// One edit over eight characters: similarity 0.875.
		got, ok := reg.Resolve(ContactRecord{Email: "az@x.com", Source: utils.SourceCapitan})
		require.True(t, ok)
		assert.True(t, got.Created)
		assert.Equal(t, models.MatchReasonNewCustomer, got.Reason)
		assert.Equal(t, 2, reg.Size())
	})

	t.Run("similar email with mismatched domain does not match", func(t *testing.T) {
		reg := NewCustomerRegistry(0)
		_, ok := reg.Resolve(ContactRecord{Email: "abcdefghij@gmail.com", Source: utils.SourceCapitan})
		require.True(t, ok)

		// Similarity 0.95 but gmail.co is not a recognized typo of gmail.com,
		// so the domain gate rejects the candidate.
		got, ok := reg.Resolve(ContactRecord{Email: "abcdefghij@gmail.co", Source: utils.SourceCapitan})
		require.True(t, ok)
		assert.True(t, got.Created)
	})

	t.Run("typo-corrected domain still matches", func(t *testing.T) {
		reg := NewCustomerRegistry(0)
		seed, ok := reg.Resolve(ContactRecord{Email: "abcdefgh@gmail.com", Source: utils.SourceCapitan})
		require.True(t, ok)

		got, ok := reg.Resolve(ContactRecord{Email: "abcdefgh@gmail.con", Source: utils.SourceStripe})
		require.True(t, ok)
		assert.False(t, got.Created)
		assert.Equal(t, seed.Customer.UUID, got.Customer.UUID)
	})
}

func TestCustomerRegistry_FirstWriterWins(t *testing.T) {
	reg := NewCustomerRegistry(0)

	a, ok := reg.Resolve(ContactRecord{Email: "a@x.com", Phone: "5551234567", Source: utils.SourceCapitan})
	require.True(t, ok)

	// Same phone with a fresh email: matched by phone, and the new email is
	// indexed to the same customer.
	b, ok := reg.Resolve(ContactRecord{Email: "b@y.com", Phone: "5551234567", Source: utils.SourceStripe})
	require.True(t, ok)
	assert.False(t, b.Created)
	assert.Equal(t, a.Customer.UUID, b.Customer.UUID)
	assert.Equal(t, models.MatchReasonExactPhone, b.Reason)

	c, ok := reg.Resolve(ContactRecord{Email: "b@y.com", Source: utils.SourceMailchimp})
	require.True(t, ok)
	assert.Equal(t, a.Customer.UUID, c.Customer.UUID)
	assert.Equal(t, models.MatchReasonExactEmail, c.Reason)

	// The original index entry is never re-pointed.
	d, ok := reg.Resolve(ContactRecord{Email: "a@x.com", Source: utils.SourceCommerce})
	require.True(t, ok)
	assert.Equal(t, a.Customer.UUID, d.Customer.UUID)
}

func TestCustomerRegistry_EmailWinsOverConflictingPhone(t *testing.T) {
	reg := NewCustomerRegistry(0)

	a, ok := reg.Resolve(ContactRecord{Email: "a@x.com", Source: utils.SourceCapitan})
	require.True(t, ok)
	b, ok := reg.Resolve(ContactRecord{Phone: "5551234567", Source: utils.SourceSquare})
	require.True(t, ok)
	require.NotEqual(t, a.Customer.UUID, b.Customer.UUID)

	// Email points at A, phone points at B: the email hit wins and no merge
	// happens.
	got, ok := reg.Resolve(ContactRecord{Email: "a@x.com", Phone: "5551234567", Source: utils.SourceStripe})
	require.True(t, ok)
	assert.Equal(t, a.Customer.UUID, got.Customer.UUID)
	assert.Equal(t, models.MatchReasonExactEmail, got.Reason)
	assert.Equal(t, 2, reg.Size())
}

func TestCustomerRegistry_EndToEnd(t *testing.T) {
	reg := NewCustomerRegistry(0)
	d1 := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 2, 1, 14, 30, 0, 0, time.UTC)

	first, ok := reg.Resolve(ContactRecord{Email: "a@x.com", Source: "crm", SourceID: "c-1", FirstSeen: d1})
	require.True(t, ok)
	require.True(t, first.Created)
	require.Len(t, first.Identifiers, 1)
	assert.Equal(t, models.MatchReasonNewCustomer, first.Identifiers[0].MatchReason)
	assert.Equal(t, models.ConfidenceExact, first.Identifiers[0].MatchConfidence)
	assert.True(t, first.Identifiers[0].IsPrimary)

	second, ok := reg.Resolve(ContactRecord{Email: "a@x.com", Phone: "+15551234567", Source: "pay", SourceID: "p-9", FirstSeen: d2})
	require.True(t, ok)
	assert.False(t, second.Created)
	assert.Equal(t, first.Customer.UUID, second.Customer.UUID)
	require.Len(t, second.Identifiers, 2)
	for _, id := range second.Identifiers {
		assert.Equal(t, models.ConfidenceHigh, id.MatchConfidence)
		assert.Equal(t, models.MatchReasonExactEmail, id.MatchReason)
	}

	customer := first.Customer
	require.NotNil(t, customer.PrimaryEmail)
	assert.Equal(t, "a@x.com", *customer.PrimaryEmail)
	assert.Nil(t, customer.PrimaryPhone, "primary values are fixed at creation")
	assert.Equal(t, d1, customer.FirstSeen)
	assert.Equal(t, d2, customer.LastSeen)
	assert.ElementsMatch(t, []string{"crm", "pay"}, []string(customer.Sources))
	assert.Equal(t, 1, reg.Size())
}

func TestCustomerRegistry_LoadRestoresIndices(t *testing.T) {
	seeded := NewCustomerRegistry(0)
	a, ok := seeded.Resolve(ContactRecord{Email: "a@x.com", Phone: "5551234567", Source: utils.SourceCapitan})
	require.True(t, ok)
	_, ok = seeded.Resolve(ContactRecord{Email: "b@y.com", Phone: "5551234567", Source: utils.SourceStripe})
	require.True(t, ok)

	var identifiers []*models.Identifier
	for _, r := range []*ResolvedContact{a} {
		identifiers = append(identifiers, r.Identifiers...)
	}
	identifiers = append(identifiers, &models.Identifier{
		CustomerUUID:    a.Customer.UUID,
		IdentifierType:  models.IdentifierTypeEmail,
		NormalizedValue: "b@y.com",
		Source:          utils.SourceStripe,
	})

	restored := NewCustomerRegistry(0)
	restored.Load(seeded.Customers(), identifiers)
	assert.Equal(t, seeded.Size(), restored.Size())

	got, ok := restored.Resolve(ContactRecord{Email: "b@y.com", Source: utils.SourceMailchimp})
	require.True(t, ok)
	assert.False(t, got.Created)
	assert.Equal(t, a.Customer.UUID, got.Customer.UUID)
}
