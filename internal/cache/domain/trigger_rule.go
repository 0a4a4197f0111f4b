package domain

import "time"

// RuleType identifies the class of proactive check a trigger rule performs
type RuleType string

const (
	RuleTypeCalendar RuleType = "calendar"
	RuleTypeGoal     RuleType = "goal"
	RuleTypePattern  RuleType = "pattern"
	RuleTypeLearning RuleType = "learning"
)

// Preference represents how eagerly the user wants a rule's notifications
type Preference string

const (
	PreferenceHigh     Preference = "high"
	PreferenceMedium   Preference = "medium"
	PreferenceLow      Preference = "low"
	PreferenceDisabled Preference = "disabled"
)

// rank orders preferences for rule evaluation priority (high first)
func (p Preference) Rank() int {
	switch p {
	case PreferenceHigh:
		return 3
	case PreferenceMedium:
		return 2
	case PreferenceLow:
		return 1
	default:
		return 0
	}
}

// TriggerRule is a named policy for one class of proactive notification.
// Conditions is the raw JSON for the rule type's condition struct; decode
// it with DecodeConditions before evaluating.
type TriggerRule struct {
	ID             string     `json:"id" gorm:"primaryKey;column:rule_id"`
	RuleType       RuleType   `json:"rule_type" gorm:"index:idx_triggers_enabled;not null"`
	Conditions     string     `json:"conditions" gorm:"not null"`
	Threshold      float64    `json:"threshold" gorm:"not null"` // advisory ranking cutoff, not a hard gate
	Enabled        bool       `json:"enabled" gorm:"index:idx_triggers_enabled;default:true"`
	UserPreference Preference `json:"user_preference" gorm:"default:medium"`
	LastTriggered  *time.Time `json:"last_triggered,omitempty"`
	TriggerCount   int        `json:"trigger_count" gorm:"default:0"`
	SuccessRate    float64    `json:"success_rate" gorm:"default:0"`
}

// TableName keeps the cache table naming from the original schema
func (TriggerRule) TableName() string {
	return "trigger_rules"
}

// MinInterval returns the minimum re-fire interval for a rule type.
// These are fixed per type and intentionally not user-configurable.
func (t RuleType) MinInterval() time.Duration {
	switch t {
	case RuleTypeCalendar:
		return 30 * time.Minute
	case RuleTypeGoal:
		return 240 * time.Minute
	case RuleTypePattern:
		return 120 * time.Minute
	case RuleTypeLearning:
		return 480 * time.Minute
	default:
		return 120 * time.Minute
	}
}
