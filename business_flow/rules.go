package businessflow

import (
	"time"

	"github.com/google/uuid"
	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
)

// RuleInput carries everything a rule may consume. Optional fields are
// pointers with nil meaning "not available"; rules take what they need and
// ignore the rest, so the engine never has to probe for rule capabilities.
type RuleInput struct {
	CustomerUUID  uuid.UUID
	Events        []*models.Event // sorted ascending by event_date
	ReferenceDate time.Time
	Email         *string
	Phone         *string
}

// FlagRule evaluates one customer's chronological event history. A nil flag
// means the rule did not fire. Returned flags carry flag_type,
// triggered_date, priority and flag_data; the engine fills in the customer
// and flag_added_date.
type FlagRule interface {
	Name() string
	Evaluate(input RuleInput) (*models.Flag, error)
}

// PersistentFlagClassifier decides whether a flag type represents durable
// state exempt from time-based expiration.
type PersistentFlagClassifier func(flagType string) bool

// NewPersistentFlagClassifier builds a classifier from a fixed set of flag
// types. Types carrying the parent-contact suffix classify like their base
// type.
func NewPersistentFlagClassifier(persistentTypes []string) PersistentFlagClassifier {
	set := make(map[string]struct{}, len(persistentTypes))
	for _, t := range persistentTypes {
		set[t] = struct{}{}
	}
	return func(flagType string) bool {
		if _, ok := set[flagType]; ok {
			return true
		}
		base, found := trimChildSuffix(flagType)
		if !found {
			return false
		}
		_, ok := set[base]
		return ok
	}
}

// DefaultRules returns the rule registry in evaluation order.
func DefaultRules() []FlagRule {
	return []FlagRule{
		NewMembershipCanceledRule(),
		NewMemberWinBackRule(DefaultWinBackInactivity),
		NewDayPassFollowUpRule(DefaultDayPassLookback, WelcomeOfferExperimentID),
	}
}
