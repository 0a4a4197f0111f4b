package domain

import (
	"encoding/json"
	"fmt"
)

// CalendarConditions fire for events starting within a minute window.
type CalendarConditions struct {
	MinutesBefore [2]int   `json:"minutes_before"`
	EventTypes    []string `json:"event_types,omitempty"`
}

// GoalConditions fire for goals that have gone stale without progress.
type GoalConditions struct {
	DaysSinceUpdate   int `json:"days_since_update"`
	ProgressThreshold int `json:"progress_threshold"`
}

// PatternConditions fire when the user is historically active this hour
// and an interests pattern is present.
type PatternConditions struct {
	ActiveHourThreshold int  `json:"active_hour_threshold"`
	InterestMatch       bool `json:"interest_match"`
}

// LearningConditions fire when enough fresh insights have accumulated.
type LearningConditions struct {
	InsightCount        int     `json:"insight_count"`
	ConfidenceThreshold float64 `json:"confidence_threshold"`
}

// Conditions is the decoded, typed form of a rule's condition JSON.
// Exactly one member is non-nil, matching the rule's type.
type Conditions struct {
	Calendar *CalendarConditions
	Goal     *GoalConditions
	Pattern  *PatternConditions
	Learning *LearningConditions
}

// ErrBadConditions marks a rule whose condition JSON cannot be decoded
// for its declared type. Callers skip the rule but never auto-disable it.
type ErrBadConditions struct {
	RuleID   string
	RuleType RuleType
	Cause    error
}

func (e *ErrBadConditions) Error() string {
	return fmt.Sprintf("rule %s: invalid %s conditions: %v", e.RuleID, e.RuleType, e.Cause)
}

func (e *ErrBadConditions) Unwrap() error { return e.Cause }

// DecodeConditions parses the rule's condition JSON into the typed struct
// for its rule type, applying the documented defaults for absent fields.
func (r *TriggerRule) DecodeConditions() (Conditions, error) {
	raw := r.Conditions
	if raw == "" {
		raw = "{}"
	}

	bad := func(err error) (Conditions, error) {
		return Conditions{}, &ErrBadConditions{RuleID: r.ID, RuleType: r.RuleType, Cause: err}
	}

	switch r.RuleType {
	case RuleTypeCalendar:
		c := CalendarConditions{MinutesBefore: [2]int{30, 120}}
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return bad(err)
		}
		if c.MinutesBefore[0] > c.MinutesBefore[1] {
			return bad(fmt.Errorf("minutes_before window [%d,%d] is inverted", c.MinutesBefore[0], c.MinutesBefore[1]))
		}
		return Conditions{Calendar: &c}, nil

	case RuleTypeGoal:
		c := GoalConditions{DaysSinceUpdate: 3, ProgressThreshold: 100}
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return bad(err)
		}
		return Conditions{Goal: &c}, nil

	case RuleTypePattern:
		c := PatternConditions{ActiveHourThreshold: 5}
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return bad(err)
		}
		return Conditions{Pattern: &c}, nil

	case RuleTypeLearning:
		c := LearningConditions{InsightCount: 3, ConfidenceThreshold: 0.7}
		if err := json.Unmarshal([]byte(raw), &c); err != nil {
			return bad(err)
		}
		return Conditions{Learning: &c}, nil

	default:
		return bad(fmt.Errorf("unknown rule type"))
	}
}

// EncodeConditions is the write-side counterpart used when seeding rules.
func EncodeConditions(v interface{}) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
