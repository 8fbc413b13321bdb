package businessflow

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/repository"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/utils"
	"gorm.io/gorm"
)

// ResolvedContact is the outcome of matching one contact record.
type ResolvedContact struct {
	Customer    *models.Customer
	Created     bool
	Confidence  string
	Reason      string
	Identifiers []*models.Identifier
}

// ResolutionSummary reports what one resolution batch did.
type ResolutionSummary struct {
	Total        int `json:"total"`
	Skipped      int `json:"skipped"`
	NewCustomers int `json:"new_customers"`
	ExactMatches int `json:"exact_matches"`
	FuzzyMatches int `json:"fuzzy_matches"`
	Identifiers  int `json:"identifiers"`
}

// CustomerRegistry is the in-memory matching state: all resolved customers
// plus one index per identifier type. Every normalized email/phone maps to at
// most one customer; the first writer wins and later observations of the same
// value are matched, never re-pointed.
type CustomerRegistry struct {
	customers  map[uuid.UUID]*models.Customer
	emailIndex map[string]uuid.UUID
	phoneIndex map[string]uuid.UUID

	// emailOrder preserves index insertion order so the fuzzy scan is
	// deterministic regardless of map iteration.
	emailOrder []string

	fuzzyThreshold float64
}

// NewCustomerRegistry creates an empty registry with the given fuzzy-match
// threshold (0 falls back to the default 0.90).
func NewCustomerRegistry(fuzzyThreshold float64) *CustomerRegistry {
	if fuzzyThreshold <= 0 {
		fuzzyThreshold = utils.FuzzyMatchThreshold
	}
	return &CustomerRegistry{
		customers:      make(map[uuid.UUID]*models.Customer),
		emailIndex:     make(map[string]uuid.UUID),
		phoneIndex:     make(map[string]uuid.UUID),
		fuzzyThreshold: fuzzyThreshold,
	}
}

// Load rebuilds registry state from previously persisted customers and their
// identifier log. Identifiers must arrive in write order so first-writer
// wins is preserved across runs.
func (reg *CustomerRegistry) Load(customers []*models.Customer, identifiers []*models.Identifier) {
	for _, c := range customers {
		reg.customers[c.UUID] = c
		if c.PrimaryEmail != nil {
			reg.indexEmail(*c.PrimaryEmail, c.UUID)
		}
		if c.PrimaryPhone != nil {
			reg.indexPhone(*c.PrimaryPhone, c.UUID)
		}
	}
	for _, id := range identifiers {
		if _, ok := reg.customers[id.CustomerUUID]; !ok {
			continue
		}
		switch id.IdentifierType {
		case models.IdentifierTypeEmail:
			reg.indexEmail(id.NormalizedValue, id.CustomerUUID)
		case models.IdentifierTypePhone:
			reg.indexPhone(id.NormalizedValue, id.CustomerUUID)
		}
	}
}

// Customers returns all customers currently known to the registry.
func (reg *CustomerRegistry) Customers() []*models.Customer {
	out := make([]*models.Customer, 0, len(reg.customers))
	for _, c := range reg.customers {
		out = append(out, c)
	}
	return out
}

// Size returns the number of resolved customers.
func (reg *CustomerRegistry) Size() int { return len(reg.customers) }

func (reg *CustomerRegistry) indexEmail(normalized string, customerUUID uuid.UUID) {
	if _, exists := reg.emailIndex[normalized]; exists {
		return
	}
	reg.emailIndex[normalized] = customerUUID
	reg.emailOrder = append(reg.emailOrder, normalized)
}

func (reg *CustomerRegistry) indexPhone(normalized string, customerUUID uuid.UUID) {
	if _, exists := reg.phoneIndex[normalized]; exists {
		return
	}
	reg.phoneIndex[normalized] = customerUUID
}

// Resolve matches one contact record against the registry, creating a new
// customer when no tier matches. It returns false when the record carries no
// identifiable signal and is discarded.
func (reg *CustomerRegistry) Resolve(rec ContactRecord) (*ResolvedContact, bool) {
	email := utils.NormalizeEmail(rec.Email)
	phone := utils.NormalizePhone(rec.Phone)
	name := utils.NormalizeName(rec.Name)

	if email == nil && phone == nil {
		return nil, false
	}

	observedAt := utils.TimeToUTC(rec.FirstSeen)
	if rec.FirstSeen.IsZero() {
		observedAt = utils.UTCNow()
	}

	var (
		emailHit, phoneHit *models.Customer
	)
	if email != nil {
		if id, ok := reg.emailIndex[*email]; ok {
			emailHit = reg.customers[id]
		}
	}
	if phone != nil {
		if id, ok := reg.phoneIndex[*phone]; ok {
			phoneHit = reg.customers[id]
		}
	}

	var (
		customer   *models.Customer
		created    bool
		confidence string
		reason     string
	)
	switch {
	case emailHit != nil && phoneHit != nil && emailHit.UUID == phoneHit.UUID:
		// Corroborated: both indices agree.
		customer = emailHit
		confidence = models.ConfidenceHigh
		reason = models.MatchReasonExactEmailAndPhone
	case emailHit != nil:
		// Exact email. When the phone index points at a different customer
		// the phone signal is discarded rather than merged (open product
		// question; see DESIGN.md).
		customer = emailHit
		confidence = models.ConfidenceHigh
		reason = models.MatchReasonExactEmail
	case phoneHit != nil:
		customer = phoneHit
		confidence = models.ConfidenceHigh
		reason = models.MatchReasonExactPhone
	default:
		if email != nil {
			if match, sim := reg.fuzzyEmailMatch(*email); match != nil {
				customer = match
				confidence = models.ConfidenceLow
				reason = fmt.Sprintf("fuzzy_email_%d", int(math.Round(sim*100)))
			}
		}
	}

	if customer == nil {
		customer = &models.Customer{
			UUID:         uuid.New(),
			PrimaryEmail: email,
			PrimaryPhone: phone,
			PrimaryName:  name,
			FirstSeen:    observedAt,
			LastSeen:     observedAt,
		}
		created = true
		confidence = models.ConfidenceExact
		reason = models.MatchReasonNewCustomer
		reg.customers[customer.UUID] = customer
	}

	customer.AddSource(rec.Source)
	customer.Touch(observedAt)

	if email != nil {
		reg.indexEmail(*email, customer.UUID)
	}
	if phone != nil {
		reg.indexPhone(*phone, customer.UUID)
	}

	resolved := &ResolvedContact{
		Customer:   customer,
		Created:    created,
		Confidence: confidence,
		Reason:     reason,
	}
	if email != nil {
		resolved.Identifiers = append(resolved.Identifiers, &models.Identifier{
			CustomerUUID:    customer.UUID,
			IdentifierType:  models.IdentifierTypeEmail,
			RawValue:        rec.Email,
			NormalizedValue: *email,
			Source:          rec.Source,
			SourceRecordID:  rec.SourceID,
			MatchConfidence: confidence,
			MatchReason:     reason,
			ObservedAt:      observedAt,
			IsPrimary:       customer.PrimaryEmail != nil && *customer.PrimaryEmail == *email,
		})
	}
	if phone != nil {
		resolved.Identifiers = append(resolved.Identifiers, &models.Identifier{
			CustomerUUID:    customer.UUID,
			IdentifierType:  models.IdentifierTypePhone,
			RawValue:        rec.Phone,
			NormalizedValue: *phone,
			Source:          rec.Source,
			SourceRecordID:  rec.SourceID,
			MatchConfidence: confidence,
			MatchReason:     reason,
			ObservedAt:      observedAt,
			IsPrimary:       customer.PrimaryPhone != nil && *customer.PrimaryPhone == *phone,
		})
	}
	return resolved, true
}

// fuzzyEmailMatch scans the email index in insertion order and accepts the
// first candidate over the similarity threshold with a typo-tolerant domain
// match. Linear in registry size; fine at small-business scale, needs a
// domain-bucketed index beyond a few thousand customers.
func (reg *CustomerRegistry) fuzzyEmailMatch(email string) (*models.Customer, float64) {
	for _, candidate := range reg.emailOrder {
		sim := utils.Similarity(email, candidate)
		if sim >= reg.fuzzyThreshold && utils.DomainsMatch(email, candidate) {
			return reg.customers[reg.emailIndex[candidate]], sim
		}
	}
	return nil, 0
}

// IdentityResolutionFlow resolves batches of contact records into the
// persistent customer registry and identifier log.
type IdentityResolutionFlow interface {
	ResolveContacts(ctx context.Context, records []ContactRecord) (*ResolutionSummary, error)
}

// IdentityResolutionFlowImpl implements the identity resolution business flow
type IdentityResolutionFlowImpl struct {
	customerRepo   repository.CustomerRepository
	identifierRepo repository.IdentifierRepository
	fuzzyThreshold float64
	db             *gorm.DB
	logger         *log.Logger
}

// NewIdentityResolutionFlow creates a new identity resolution flow instance
func NewIdentityResolutionFlow(
	customerRepo repository.CustomerRepository,
	identifierRepo repository.IdentifierRepository,
	fuzzyThreshold float64,
	db *gorm.DB,
	logger *log.Logger,
) IdentityResolutionFlow {
	if logger == nil {
		logger = log.Default()
	}
	return &IdentityResolutionFlowImpl{
		customerRepo:   customerRepo,
		identifierRepo: identifierRepo,
		fuzzyThreshold: fuzzyThreshold,
		db:             db,
		logger:         logger,
	}
}

// ResolveContacts loads the persisted registry state, resolves the batch in
// memory, and writes new customers, seen-state updates, and identifier rows
// in one transaction.
func (f *IdentityResolutionFlowImpl) ResolveContacts(ctx context.Context, records []ContactRecord) (*ResolutionSummary, error) {
	customers, err := f.customerRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("REGISTRY_LOAD_FAILED", "Failed to load customer registry", err)
	}
	identifiers, err := f.identifierRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("REGISTRY_LOAD_FAILED", "Failed to load identifier log", err)
	}

	registry := NewCustomerRegistry(f.fuzzyThreshold)
	registry.Load(customers, identifiers)

	summary := &ResolutionSummary{Total: len(records)}
	var (
		newCustomers   []*models.Customer
		matched        = make(map[uuid.UUID]*models.Customer)
		newIdentifiers []*models.Identifier
	)
	for _, rec := range records {
		resolved, ok := registry.Resolve(rec)
		if !ok {
			summary.Skipped++
			continue
		}
		switch {
		case resolved.Created:
			summary.NewCustomers++
			newCustomers = append(newCustomers, resolved.Customer)
		case resolved.Confidence == models.ConfidenceLow:
			summary.FuzzyMatches++
			matched[resolved.Customer.UUID] = resolved.Customer
		default:
			summary.ExactMatches++
			matched[resolved.Customer.UUID] = resolved.Customer
		}
		newIdentifiers = append(newIdentifiers, resolved.Identifiers...)
	}
	summary.Identifiers = len(newIdentifiers)

	// Matched customers that were created in this same batch are persisted by
	// the insert, not the update.
	for _, c := range newCustomers {
		delete(matched, c.UUID)
	}

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.customerRepo.SaveBatch(txCtx, newCustomers); err != nil {
			return err
		}
		for _, c := range matched {
			if err := f.customerRepo.UpdateSeen(txCtx, c); err != nil {
				return err
			}
		}
		return f.identifierRepo.SaveBatch(txCtx, newIdentifiers)
	})
	if err != nil {
		return nil, NewBusinessError("RESOLUTION_PERSIST_FAILED", "Failed to persist resolution output", err)
	}

	f.logger.Printf("resolution: %d records, %d new customers, %d exact, %d fuzzy, %d skipped",
		summary.Total, summary.NewCustomers, summary.ExactMatches, summary.FuzzyMatches, summary.Skipped)
	return summary, nil
}
