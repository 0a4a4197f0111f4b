package sync

import (
	"strconv"
	"testing"
	"time"

	"proactive-backend/internal/cache/domain"
)

func seedNotification(t *testing.T, store interface {
	Upsert(rule *domain.TriggerRule) error
	Record(rec *domain.NotificationRecord) error
}, ruleID string) {
	t.Helper()
	if ruleID != domain.ManualRuleID {
		rule := &domain.TriggerRule{
			ID:             ruleID,
			RuleType:       domain.RuleTypeGoal,
			Conditions:     "{}",
			Enabled:        true,
			UserPreference: domain.PreferenceMedium,
		}
		if err := store.Upsert(rule); err != nil {
			t.Fatalf("upsert rule: %v", err)
		}
	}
	rec := &domain.NotificationRecord{
		ID:            "n1",
		TriggerRuleID: ruleID,
		Content:       "check your goal",
		SentAt:        time.Now().Add(-30 * time.Second),
	}
	if err := store.Record(rec); err != nil {
		t.Fatalf("record: %v", err)
	}
}

func TestHandleResponsePositive(t *testing.T) {
	store := newTestStore(t)
	seedNotification(t, store, "goal_rule")

	f := NewFeedback(store)
	if err := f.HandleResponse("n1", domain.ResponseClicked); err != nil {
		t.Fatalf("handle response: %v", err)
	}

	rec, err := store.FindNotification("n1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if rec.UserResponse == nil || *rec.UserResponse != domain.ResponseClicked {
		t.Errorf("response = %v", rec.UserResponse)
	}
	if rec.ResponseTime == nil || *rec.ResponseTime < 29 || *rec.ResponseTime > 60 {
		t.Errorf("response time = %v, want ~30s", rec.ResponseTime)
	}

	rule, err := store.FindRule("goal_rule")
	if err != nil {
		t.Fatalf("find rule: %v", err)
	}
	if rule.SuccessRate != 1.0 || rule.TriggerCount != 1 {
		t.Errorf("rule learning state = %v/%d, want 1.0/1", rule.SuccessRate, rule.TriggerCount)
	}

	// Positive response reinforces the timing pattern
	timing, err := store.Pattern(domain.PatternNotificationTiming)
	if err != nil || timing == nil {
		t.Fatalf("timing pattern missing: %v", err)
	}
	hour := time.Now().Add(-30 * time.Second).Hour()
	if timing.HourCounts()[hour] != 1 {
		t.Errorf("timing counts = %v, want hour %d == 1", timing.HourCounts(), hour)
	}
	if timing.Confidence != 0.6 {
		t.Errorf("timing confidence = %v, want 0.6 (0.5 + 0.1)", timing.Confidence)
	}
}

func TestHandleResponseNegative(t *testing.T) {
	store := newTestStore(t)
	seedNotification(t, store, "goal_rule")

	f := NewFeedback(store)
	if err := f.HandleResponse("n1", domain.ResponseDismissed); err != nil {
		t.Fatalf("handle response: %v", err)
	}

	rule, _ := store.FindRule("goal_rule")
	if rule.SuccessRate != 0.0 || rule.TriggerCount != 1 {
		t.Errorf("rule learning state = %v/%d, want 0.0/1", rule.SuccessRate, rule.TriggerCount)
	}

	if timing, _ := store.Pattern(domain.PatternNotificationTiming); timing != nil {
		t.Error("negative response must not reinforce timing")
	}
}

func TestHandleResponseManualNotification(t *testing.T) {
	store := newTestStore(t)
	seedNotification(t, store, domain.ManualRuleID)

	f := NewFeedback(store)
	if err := f.HandleResponse("n1", domain.ResponseClicked); err != nil {
		t.Fatalf("handle response: %v", err)
	}

	rec, _ := store.FindNotification("n1")
	if rec.UserResponse == nil {
		t.Error("response not recorded for manual notification")
	}
}

func TestHandleResponseUnknownNotification(t *testing.T) {
	store := newTestStore(t)
	f := NewFeedback(store)
	if err := f.HandleResponse("ghost", domain.ResponseClicked); err != nil {
		t.Errorf("unknown notification must be ignored, got %v", err)
	}
}

func TestHandleResponseFirstWins(t *testing.T) {
	store := newTestStore(t)
	seedNotification(t, store, "goal_rule")

	f := NewFeedback(store)
	if err := f.HandleResponse("n1", domain.ResponseClicked); err != nil {
		t.Fatalf("first response: %v", err)
	}
	if err := f.HandleResponse("n1", domain.ResponseAutoDismissed); err != nil {
		t.Fatalf("second response: %v", err)
	}

	rec, _ := store.FindNotification("n1")
	if *rec.UserResponse != domain.ResponseClicked {
		t.Errorf("response = %q, want first response kept", *rec.UserResponse)
	}

	rule, _ := store.FindRule("goal_rule")
	if rule.TriggerCount != 1 {
		t.Errorf("TriggerCount = %d, want 1 (duplicate must not re-teach)", rule.TriggerCount)
	}
}

func TestTimingConfidenceCap(t *testing.T) {
	store := newTestStore(t)

	hour := strconv.Itoa(time.Now().Hour())
	if err := store.UpdatePattern(domain.PatternNotificationTiming, map[string]int{hour: 4}, 0.95); err != nil {
		t.Fatalf("seed timing: %v", err)
	}
	seedNotification(t, store, "goal_rule")

	f := NewFeedback(store)
	if err := f.HandleResponse("n1", domain.ResponseActed); err != nil {
		t.Fatalf("handle response: %v", err)
	}

	timing, _ := store.Pattern(domain.PatternNotificationTiming)
	if timing.Confidence != 1.0 {
		t.Errorf("confidence = %v, want capped at 1.0", timing.Confidence)
	}
	if timing.HourCounts()[time.Now().Hour()] != 5 {
		t.Errorf("counts = %v, want incremented to 5", timing.HourCounts())
	}
}
