package businessflow

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/repository"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/utils"
	"gorm.io/gorm"
)

// FlaggingSummary reports what one evaluation run did.
type FlaggingSummary struct {
	CustomersEvaluated int `json:"customers_evaluated"`
	NewFlags           int `json:"new_flags"`
	ActiveFlags        int `json:"active_flags"`
	ExpiredFlags       int `json:"expired_flags"`
	ExperimentEntries  int `json:"experiment_entries"`
	FlagSetEvents      int `json:"flag_set_events"`
}

// EngineContext carries all per-run collaborator state explicitly, so
// evaluation is a pure function of its inputs and safe to run in parallel
// tests. Nothing in it is mutated during evaluation.
type EngineContext struct {
	Contacts      ContactCache
	Family        FamilyGraph
	Rules         []FlagRule
	ReferenceDate time.Time
	IsPersistent  PersistentFlagClassifier
	TTL           time.Duration
	Logger        *log.Logger
}

// EvaluateCustomer runs every rule against one customer's event history and
// returns the flags that fired. Events are sorted ascending before rules see
// them. A rule error is logged and skips only that rule.
func EvaluateCustomer(engCtx *EngineContext, customerUUID uuid.UUID, events []*models.Event) []*models.Flag {
	sorted := make([]*models.Event, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return utils.TimeToUTC(sorted[i].EventDate).Before(utils.TimeToUTC(sorted[j].EventDate))
	})

	contact := engCtx.Contacts[customerUUID]
	usingParentContact := false
	if !contact.HasAny() {
		if parentUUID, ok := engCtx.Family[customerUUID]; ok {
			if parentContact := engCtx.Contacts[parentUUID]; parentContact.HasAny() {
				contact = parentContact
				usingParentContact = true
			}
		}
	}

	input := RuleInput{
		CustomerUUID:  customerUUID,
		Events:        sorted,
		ReferenceDate: engCtx.ReferenceDate,
		Email:         contact.Email,
		Phone:         contact.Phone,
	}

	var flags []*models.Flag
	for _, rule := range engCtx.Rules {
		flag, err := rule.Evaluate(input)
		if err != nil {
			engCtx.Logger.Printf("rule %s failed for customer %s: %v", rule.Name(), customerUUID, err)
			continue
		}
		if flag == nil {
			continue
		}
		flag.CustomerUUID = customerUUID
		flag.FlagAddedDate = engCtx.ReferenceDate
		if usingParentContact {
			// Downstream messaging addresses the parent; rules stay unaware
			// of the substitution.
			flag.FlagType += ChildFlagSuffix
			data := flag.DataMap()
			data[models.FlagDataUsingParentContact] = true
			flag.SetData(data)
		}
		flags = append(flags, flag)
	}
	return flags
}

// MergeFlags deduplicates by (customer, flag_type), keeping the row with the
// latest flag_added_date. On equal dates the later argument wins, so passing
// fresh flags second lets a same-day re-trigger replace the persisted row.
func MergeFlags(existing, fresh []*models.Flag) []*models.Flag {
	type key struct {
		customer uuid.UUID
		flagType string
	}
	byKey := make(map[key]*models.Flag)
	var order []key
	for _, f := range append(append([]*models.Flag{}, existing...), fresh...) {
		k := key{f.CustomerUUID, f.FlagType}
		current, ok := byKey[k]
		if !ok {
			byKey[k] = f
			order = append(order, k)
			continue
		}
		if !f.FlagAddedDate.Before(current.FlagAddedDate) {
			byKey[k] = f
		}
	}
	out := make([]*models.Flag, 0, len(order))
	for _, k := range order {
		out = append(out, byKey[k])
	}
	return out
}

// ApplyExpiration drops non-persistent flags whose triggered_date is more
// than ttl before the reference date. Persistent flag types are exempt
// regardless of age.
func ApplyExpiration(flags []*models.Flag, reference time.Time, ttl time.Duration, isPersistent PersistentFlagClassifier) (kept []*models.Flag, expired int) {
	cutoff := reference.Add(-ttl)
	for _, f := range flags {
		if isPersistent != nil && isPersistent(f.FlagType) {
			kept = append(kept, f)
			continue
		}
		if utils.TimeToUTC(f.TriggeredDate).Before(cutoff) {
			expired++
			continue
		}
		kept = append(kept, f)
	}
	return kept, expired
}

// FlaggingFlow runs the full rule evaluation over every customer with events.
type FlaggingFlow interface {
	EvaluateAllCustomers(ctx context.Context) (*FlaggingSummary, error)
}

// FlaggingFlowImpl implements the flagging business flow
type FlaggingFlowImpl struct {
	customerRepo   repository.CustomerRepository
	eventRepo      repository.EventRepository
	flagRepo       repository.FlagRepository
	familyEdgeRepo repository.FamilyEdgeRepository
	experimentRepo repository.ExperimentEntryRepository
	rules          []FlagRule
	isPersistent   PersistentFlagClassifier
	flagTTL        time.Duration
	db             *gorm.DB
	logger         *log.Logger
}

// NewFlaggingFlow creates a new flagging flow instance
func NewFlaggingFlow(
	customerRepo repository.CustomerRepository,
	eventRepo repository.EventRepository,
	flagRepo repository.FlagRepository,
	familyEdgeRepo repository.FamilyEdgeRepository,
	experimentRepo repository.ExperimentEntryRepository,
	rules []FlagRule,
	isPersistent PersistentFlagClassifier,
	flagTTL time.Duration,
	db *gorm.DB,
	logger *log.Logger,
) FlaggingFlow {
	if flagTTL <= 0 {
		flagTTL = utils.FlagTTL
	}
	if logger == nil {
		logger = log.Default()
	}
	return &FlaggingFlowImpl{
		customerRepo:   customerRepo,
		eventRepo:      eventRepo,
		flagRepo:       flagRepo,
		familyEdgeRepo: familyEdgeRepo,
		experimentRepo: experimentRepo,
		rules:          rules,
		isPersistent:   isPersistent,
		flagTTL:        flagTTL,
		db:             db,
		logger:         logger,
	}
}

// EvaluateAllCustomers loads the event feed and persisted flags, evaluates
// every customer independently, merges, expires, and writes the new flags
// table, flag_set events, and experiment entries in one transaction. Contact
// cache and family edge load failures degrade the run; everything else is
// fatal.
func (f *FlaggingFlowImpl) EvaluateAllCustomers(ctx context.Context) (*FlaggingSummary, error) {
	if len(f.rules) == 0 {
		return nil, NewBusinessError("NO_RULES", "No rules registered", ErrNoRulesRegistered)
	}

	events, err := f.eventRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("EVENT_LOAD_FAILED", "Failed to load event feed", err)
	}
	existingFlags, err := f.flagRepo.ListAll(ctx)
	if err != nil {
		return nil, NewBusinessError("FLAG_LOAD_FAILED", "Failed to load persisted flags", err)
	}

	reference := utils.UTCNow()
	engCtx := &EngineContext{
		Contacts:      f.loadContactCache(ctx),
		Family:        f.loadFamilyGraph(ctx),
		Rules:         f.rules,
		ReferenceDate: reference,
		IsPersistent:  f.isPersistent,
		TTL:           f.flagTTL,
		Logger:        f.logger,
	}

	byCustomer := make(map[uuid.UUID][]*models.Event)
	var customerOrder []uuid.UUID
	for _, ev := range events {
		if _, seen := byCustomer[ev.CustomerUUID]; !seen {
			customerOrder = append(customerOrder, ev.CustomerUUID)
		}
		byCustomer[ev.CustomerUUID] = append(byCustomer[ev.CustomerUUID], ev)
	}
	sort.Slice(customerOrder, func(i, j int) bool {
		return customerOrder[i].String() < customerOrder[j].String()
	})

	summary := &FlaggingSummary{CustomersEvaluated: len(customerOrder)}
	var newFlags []*models.Flag
	for _, customerUUID := range customerOrder {
		newFlags = append(newFlags, EvaluateCustomer(engCtx, customerUUID, byCustomer[customerUUID])...)
	}
	summary.NewFlags = len(newFlags)

	entries := f.collectExperimentEntries(ctx, newFlags, reference)
	summary.ExperimentEntries = len(entries)

	merged := MergeFlags(existingFlags, newFlags)
	kept, expired := ApplyExpiration(merged, reference, f.flagTTL, f.isPersistent)
	summary.ActiveFlags = len(kept)
	summary.ExpiredFlags = expired

	surviving := make(map[*models.Flag]struct{}, len(kept))
	for _, fl := range kept {
		surviving[fl] = struct{}{}
	}
	var flagEvents []*models.Event
	for _, fl := range newFlags {
		if _, ok := surviving[fl]; !ok {
			continue
		}
		flagEvents = append(flagEvents, newFlagSetEvent(fl, reference))
	}
	summary.FlagSetEvents = len(flagEvents)

	err = repository.WithTransaction(ctx, f.db, func(txCtx context.Context) error {
		if err := f.flagRepo.ReplaceAll(txCtx, kept); err != nil {
			return err
		}
		if err := f.eventRepo.SaveBatch(txCtx, flagEvents); err != nil {
			return err
		}
		return f.experimentRepo.SaveBatch(txCtx, entries)
	})
	if err != nil {
		return nil, NewBusinessError("FLAG_PERSIST_FAILED", "Failed to persist flag output", err)
	}

	f.logger.Printf("flagging: %d customers, %d new flags, %d active, %d expired, %d experiment entries",
		summary.CustomersEvaluated, summary.NewFlags, summary.ActiveFlags, summary.ExpiredFlags, summary.ExperimentEntries)
	return summary, nil
}

// loadContactCache builds the customer -> contact map. Load failure is
// non-fatal; evaluation proceeds with an empty cache and rules see nil
// contact fields.
func (f *FlaggingFlowImpl) loadContactCache(ctx context.Context) ContactCache {
	customers, err := f.customerRepo.ListAll(ctx)
	if err != nil {
		f.logger.Printf("contact cache load failed, continuing without contact info: %v", err)
		return ContactCache{}
	}
	cache := make(ContactCache, len(customers))
	for _, c := range customers {
		cache[c.UUID] = Contact{Email: c.PrimaryEmail, Phone: c.PrimaryPhone}
	}
	return cache
}

// loadFamilyGraph builds the child -> parent map. Load failure is non-fatal;
// the run continues with no parent-contact fallback.
func (f *FlaggingFlowImpl) loadFamilyGraph(ctx context.Context) FamilyGraph {
	edges, err := f.familyEdgeRepo.ListAll(ctx)
	if err != nil {
		f.logger.Printf("family edge load failed, continuing without parent fallback: %v", err)
		return FamilyGraph{}
	}
	graph := make(FamilyGraph, len(edges))
	for _, e := range edges {
		graph[e.ChildUUID] = e.ParentUUID
	}
	return graph
}

// collectExperimentEntries records first-time experiment assignments carried
// in the new flags. Dedup check failures are logged and skip the entry rather
// than fail the run; the sink is advisory.
func (f *FlaggingFlowImpl) collectExperimentEntries(ctx context.Context, flags []*models.Flag, enteredAt time.Time) []*models.ExperimentEntry {
	var entries []*models.ExperimentEntry
	batch := make(map[string]struct{})
	for _, fl := range flags {
		experimentID, abGroup, ok := fl.ExperimentInfo()
		if !ok {
			continue
		}
		dedupKey := fl.CustomerUUID.String() + "|" + experimentID
		if _, dup := batch[dedupKey]; dup {
			continue
		}
		exists, err := f.experimentRepo.HasEntry(ctx, fl.CustomerUUID, experimentID)
		if err != nil {
			f.logger.Printf("experiment entry check failed for customer %s: %v", fl.CustomerUUID, err)
			continue
		}
		if exists {
			continue
		}
		batch[dedupKey] = struct{}{}
		entries = append(entries, &models.ExperimentEntry{
			CustomerUUID: fl.CustomerUUID,
			ExperimentID: experimentID,
			ABGroup:      abGroup,
			FlagType:     fl.FlagType,
			EnteredAt:    enteredAt,
		})
	}
	return entries
}

func newFlagSetEvent(flag *models.Flag, eventDate time.Time) *models.Event {
	payload, _ := json.Marshal(map[string]any{
		"flag_type":      flag.FlagType,
		"priority":       flag.Priority,
		"triggered_date": flag.TriggeredDate,
	})
	return &models.Event{
		CustomerUUID: flag.CustomerUUID,
		EventType:    models.EventTypeFlagSet,
		EventDate:    eventDate,
		Source:       utils.SourcePipeline,
		Payload:      payload,
	}
}
