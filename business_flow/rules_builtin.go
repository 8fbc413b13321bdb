package businessflow

import (
	"hash/fnv"
	"strings"
	"time"

	"github.com/steelferguson/basin-climbing-data-pipeline-sub000/models"
)

// Flag types produced by the built-in rules
const (
	FlagTypeDayPassFollowUp    = "day_pass_follow_up"
	FlagTypeMemberWinBack      = "member_win_back"
	FlagTypeMembershipCanceled = "membership_canceled"
)

// ChildFlagSuffix marks flags emitted for a customer addressed through a
// parent's contact info.
const ChildFlagSuffix = "_child"

// Rule defaults
const (
	DefaultDayPassLookback   = 30 * 24 * time.Hour
	DefaultWinBackInactivity = 45 * 24 * time.Hour
	WelcomeOfferExperimentID = "welcome_offer_v1"
)

func trimChildSuffix(flagType string) (string, bool) {
	if strings.HasSuffix(flagType, ChildFlagSuffix) {
		return strings.TrimSuffix(flagType, ChildFlagSuffix), true
	}
	return flagType, false
}

// abGroupFor deterministically buckets a customer into one of two experiment
// groups so repeated triggers land in the same group.
func abGroupFor(input RuleInput) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(input.CustomerUUID.String()))
	if h.Sum32()%2 == 0 {
		return "a"
	}
	return "b"
}

// DayPassFollowUpRule flags day-pass buyers who have not converted to a
// membership, so marketing can follow up with a welcome offer. The flag
// carries an A/B experiment assignment for the offer variant.
type DayPassFollowUpRule struct {
	lookback     time.Duration
	experimentID string
}

func NewDayPassFollowUpRule(lookback time.Duration, experimentID string) *DayPassFollowUpRule {
	if lookback <= 0 {
		lookback = DefaultDayPassLookback
	}
	return &DayPassFollowUpRule{lookback: lookback, experimentID: experimentID}
}

func (r *DayPassFollowUpRule) Name() string { return "day_pass_follow_up" }

func (r *DayPassFollowUpRule) Evaluate(input RuleInput) (*models.Flag, error) {
	var lastDayPass *time.Time
	converted := false
	for _, ev := range input.Events {
		switch ev.EventType {
		case models.EventTypeDayPassPurchase:
			d := ev.EventDate
			lastDayPass = &d
			converted = false
		case models.EventTypeMembershipPurchase:
			converted = true
		}
	}
	if lastDayPass == nil || converted {
		return nil, nil
	}
	if input.ReferenceDate.Sub(*lastDayPass) > r.lookback {
		return nil, nil
	}

	flag := &models.Flag{
		FlagType:      FlagTypeDayPassFollowUp,
		TriggeredDate: *lastDayPass,
		Priority:      models.FlagPriorityMedium,
	}
	data := map[string]any{"last_day_pass": lastDayPass.Format(time.RFC3339)}
	if r.experimentID != "" {
		data[models.FlagDataExperimentID] = r.experimentID
		data[models.FlagDataABGroup] = abGroupFor(input)
	}
	flag.SetData(data)
	return flag, nil
}

// MemberWinBackRule flags active members whose last check-in is older than
// the configured inactivity gap.
type MemberWinBackRule struct {
	inactivity time.Duration
}

func NewMemberWinBackRule(inactivity time.Duration) *MemberWinBackRule {
	if inactivity <= 0 {
		inactivity = DefaultWinBackInactivity
	}
	return &MemberWinBackRule{inactivity: inactivity}
}

func (r *MemberWinBackRule) Name() string { return "member_win_back" }

func (r *MemberWinBackRule) Evaluate(input RuleInput) (*models.Flag, error) {
	member := false
	var lastCheckIn *time.Time
	for _, ev := range input.Events {
		switch ev.EventType {
		case models.EventTypeMembershipPurchase:
			member = true
		case models.EventTypeMembershipCanceled:
			member = false
		case models.EventTypeCheckIn:
			d := ev.EventDate
			lastCheckIn = &d
		}
	}
	if !member || lastCheckIn == nil {
		return nil, nil
	}
	gap := input.ReferenceDate.Sub(*lastCheckIn)
	if gap <= r.inactivity {
		return nil, nil
	}

	// The condition became true once the inactivity gap elapsed, not at the
	// last check-in itself.
	triggered := lastCheckIn.Add(r.inactivity)
	flag := &models.Flag{
		FlagType:      FlagTypeMemberWinBack,
		TriggeredDate: triggered,
		Priority:      models.FlagPriorityHigh,
	}
	flag.SetData(map[string]any{
		"last_check_in": lastCheckIn.Format(time.RFC3339),
		"days_inactive": int(gap.Hours() / 24),
	})
	return flag, nil
}

// MembershipCanceledRule records durable suppression state for customers who
// canceled and have not re-joined. The flag type is classified persistent, so
// it never expires by time.
type MembershipCanceledRule struct{}

func NewMembershipCanceledRule() *MembershipCanceledRule { return &MembershipCanceledRule{} }

func (r *MembershipCanceledRule) Name() string { return "membership_canceled" }

func (r *MembershipCanceledRule) Evaluate(input RuleInput) (*models.Flag, error) {
	var canceledAt *time.Time
	for _, ev := range input.Events {
		switch ev.EventType {
		case models.EventTypeMembershipCanceled:
			d := ev.EventDate
			canceledAt = &d
		case models.EventTypeMembershipPurchase:
			canceledAt = nil
		}
	}
	if canceledAt == nil {
		return nil, nil
	}
	flag := &models.Flag{
		FlagType:      FlagTypeMembershipCanceled,
		TriggeredDate: *canceledAt,
		Priority:      models.FlagPriorityLow,
	}
	flag.SetData(map[string]any{"canceled_at": canceledAt.Format(time.RFC3339)})
	return flag, nil
}
