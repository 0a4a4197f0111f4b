package domain

import (
	"errors"
	"testing"
)

func TestDecodeConditionsDefaults(t *testing.T) {
	rule := &TriggerRule{ID: "r1", RuleType: RuleTypeCalendar, Conditions: "{}"}
	conds, err := rule.DecodeConditions()
	if err != nil {
		t.Fatalf("DecodeConditions: %v", err)
	}
	if conds.Calendar == nil {
		t.Fatal("expected calendar conditions")
	}
	if conds.Calendar.MinutesBefore != [2]int{30, 120} {
		t.Errorf("default window = %v, want [30 120]", conds.Calendar.MinutesBefore)
	}

	rule = &TriggerRule{ID: "r2", RuleType: RuleTypeGoal, Conditions: ""}
	conds, err = rule.DecodeConditions()
	if err != nil {
		t.Fatalf("DecodeConditions: %v", err)
	}
	if conds.Goal.DaysSinceUpdate != 3 || conds.Goal.ProgressThreshold != 100 {
		t.Errorf("goal defaults = %+v, want 3/100", conds.Goal)
	}

	rule = &TriggerRule{ID: "r3", RuleType: RuleTypeLearning, Conditions: "{}"}
	conds, err = rule.DecodeConditions()
	if err != nil {
		t.Fatalf("DecodeConditions: %v", err)
	}
	if conds.Learning.InsightCount != 3 || conds.Learning.ConfidenceThreshold != 0.7 {
		t.Errorf("learning defaults = %+v, want 3/0.7", conds.Learning)
	}
}

func TestDecodeConditionsExplicitValues(t *testing.T) {
	rule := &TriggerRule{
		ID:         "r1",
		RuleType:   RuleTypeCalendar,
		Conditions: `{"minutes_before":[10,45],"event_types":["meeting"]}`,
	}
	conds, err := rule.DecodeConditions()
	if err != nil {
		t.Fatalf("DecodeConditions: %v", err)
	}
	if conds.Calendar.MinutesBefore != [2]int{10, 45} {
		t.Errorf("window = %v, want [10 45]", conds.Calendar.MinutesBefore)
	}
	if len(conds.Calendar.EventTypes) != 1 || conds.Calendar.EventTypes[0] != "meeting" {
		t.Errorf("event types = %v", conds.Calendar.EventTypes)
	}
}

func TestDecodeConditionsInvertedWindow(t *testing.T) {
	rule := &TriggerRule{
		ID:         "bad",
		RuleType:   RuleTypeCalendar,
		Conditions: `{"minutes_before":[120,30]}`,
	}
	_, err := rule.DecodeConditions()
	if err == nil {
		t.Fatal("expected error for inverted window")
	}
	var badErr *ErrBadConditions
	if !errors.As(err, &badErr) {
		t.Fatalf("error type = %T, want *ErrBadConditions", err)
	}
	if badErr.RuleID != "bad" {
		t.Errorf("RuleID = %q", badErr.RuleID)
	}
}

func TestDecodeConditionsMalformedJSON(t *testing.T) {
	rule := &TriggerRule{ID: "r1", RuleType: RuleTypePattern, Conditions: "{not json"}
	if _, err := rule.DecodeConditions(); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

func TestDecodeConditionsUnknownType(t *testing.T) {
	rule := &TriggerRule{ID: "r1", RuleType: RuleType("weather"), Conditions: "{}"}
	var badErr *ErrBadConditions
	if _, err := rule.DecodeConditions(); !errors.As(err, &badErr) {
		t.Fatalf("err = %v, want *ErrBadConditions", err)
	}
}

func TestMinInterval(t *testing.T) {
	cases := []struct {
		ruleType RuleType
		minutes  int
	}{
		{RuleTypeCalendar, 30},
		{RuleTypeGoal, 240},
		{RuleTypePattern, 120},
		{RuleTypeLearning, 480},
		{RuleType("unknown"), 120},
	}
	for _, tc := range cases {
		if got := int(tc.ruleType.MinInterval().Minutes()); got != tc.minutes {
			t.Errorf("MinInterval(%s) = %dmin, want %dmin", tc.ruleType, got, tc.minutes)
		}
	}
}

func TestHourCounts(t *testing.T) {
	p := &UserPattern{Data: `{"9":5,"14":2,"25":9,"bad":1}`}
	counts := p.HourCounts()
	if counts[9] != 5 || counts[14] != 2 {
		t.Errorf("counts = %v", counts)
	}
	if _, ok := counts[25]; ok {
		t.Error("out-of-range hour should be dropped")
	}
	if counts[10] != 0 {
		t.Error("missing hour should read as zero")
	}
}

func TestPositiveResponse(t *testing.T) {
	for _, action := range []string{ResponseClicked, ResponseActed, "action_view", "action_ok"} {
		if !PositiveResponse(action) {
			t.Errorf("PositiveResponse(%q) = false, want true", action)
		}
	}
	for _, action := range []string{ResponseDismissed, ResponseSnoozed, ResponseAutoDismissed, "action_no"} {
		if PositiveResponse(action) {
			t.Errorf("PositiveResponse(%q) = true, want false", action)
		}
	}
}

func TestPreferenceRank(t *testing.T) {
	if PreferenceHigh.Rank() <= PreferenceMedium.Rank() || PreferenceMedium.Rank() <= PreferenceLow.Rank() {
		t.Error("preference ranks must be strictly ordered high > medium > low")
	}
	if PreferenceDisabled.Rank() != 0 {
		t.Errorf("disabled rank = %d, want 0", PreferenceDisabled.Rank())
	}
}
