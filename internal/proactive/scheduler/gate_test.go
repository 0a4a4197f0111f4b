package scheduler

import (
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"proactive-backend/internal/cache/domain"
	"proactive-backend/internal/cache/repository"
	"proactive-backend/pkg/database"
)

func newTestStore(t *testing.T) repository.CacheStore {
	t.Helper()
	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := repository.NewGormCacheStore(db)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// noon avoids the default quiet hours in gate tests
var noon = time.Date(2026, 8, 28, 12, 30, 0, 0, time.Local)

func TestGateRateLimit(t *testing.T) {
	store := newTestStore(t)
	gate := NewGate(store, 2, 23, 7)

	rule := &domain.TriggerRule{ID: "r", RuleType: domain.RuleTypeCalendar, UserPreference: domain.PreferenceHigh}
	if !gate.ShouldCheckRule(rule, noon) {
		t.Fatal("fresh gate should pass")
	}

	gate.RecordSent()
	gate.RecordSent()
	if !gate.RateLimited() {
		t.Fatal("expected rate limit after 2 sends")
	}
	if gate.ShouldCheckRule(rule, noon) {
		t.Error("rate-limited gate should reject every rule")
	}
}

func TestGateHourRollover(t *testing.T) {
	store := newTestStore(t)
	gate := NewGate(store, 2, 23, 7)

	gate.RecordSent()
	gate.RecordSent()
	if !gate.RateLimited() {
		t.Fatal("expected rate limit")
	}

	// Same hour: no reset
	sameHour := time.Date(2026, 8, 28, time.Now().Hour(), 59, 0, 0, time.Local)
	if gate.RollHour(sameHour) {
		t.Error("counter must not reset within the same wall-clock hour")
	}

	nextHour := sameHour.Add(time.Hour)
	if !gate.RollHour(nextHour) {
		t.Fatal("expected reset on hour boundary")
	}
	if gate.RateLimited() {
		t.Error("counter should be zero after rollover")
	}
	if gate.SentThisHour() != 0 {
		t.Errorf("SentThisHour = %d, want 0", gate.SentThisHour())
	}
}

func TestGateMinInterval(t *testing.T) {
	store := newTestStore(t)
	gate := NewGate(store, 6, 23, 7)

	recent := noon.Add(-10 * time.Minute)
	rule := &domain.TriggerRule{
		ID:             "cal",
		RuleType:       domain.RuleTypeCalendar,
		UserPreference: domain.PreferenceHigh,
		LastTriggered:  &recent,
	}
	if gate.ShouldCheckRule(rule, noon) {
		t.Error("calendar rule fired 10min ago must wait for the 30min interval")
	}

	old := noon.Add(-31 * time.Minute)
	rule.LastTriggered = &old
	if !gate.ShouldCheckRule(rule, noon) {
		t.Error("calendar rule fired 31min ago should pass")
	}

	// Learning needs 8 hours
	fourHours := noon.Add(-4 * time.Hour)
	learning := &domain.TriggerRule{
		ID:             "learn",
		RuleType:       domain.RuleTypeLearning,
		UserPreference: domain.PreferenceHigh,
		LastTriggered:  &fourHours,
	}
	if gate.ShouldCheckRule(learning, noon) {
		t.Error("learning rule fired 4h ago must wait for the 8h interval")
	}
}

func TestGateQuietHours(t *testing.T) {
	store := newTestStore(t)
	gate := NewGate(store, 6, 23, 7)

	lateNight := time.Date(2026, 8, 28, 23, 30, 0, 0, time.Local)
	earlyMorning := time.Date(2026, 8, 28, 3, 0, 0, 0, time.Local)
	sevenAM := time.Date(2026, 8, 28, 7, 0, 0, 0, time.Local)

	high := &domain.TriggerRule{ID: "h", RuleType: domain.RuleTypeCalendar, UserPreference: domain.PreferenceHigh}
	medium := &domain.TriggerRule{ID: "m", RuleType: domain.RuleTypeGoal, UserPreference: domain.PreferenceMedium}
	low := &domain.TriggerRule{ID: "l", RuleType: domain.RuleTypePattern, UserPreference: domain.PreferenceLow}

	for _, now := range []time.Time{lateNight, earlyMorning} {
		if !gate.ShouldCheckRule(high, now) {
			t.Errorf("high preference must pass quiet hours at %02d:00", now.Hour())
		}
		if gate.ShouldCheckRule(medium, now) || gate.ShouldCheckRule(low, now) {
			t.Errorf("non-high preferences must be suppressed at %02d:00", now.Hour())
		}
	}

	// Quiet hours end is exclusive: 07:00 is daytime
	if !gate.ShouldCheckRule(medium, sevenAM) {
		t.Error("07:00 is outside quiet hours")
	}
}

func TestGateActivityThresholds(t *testing.T) {
	store := newTestStore(t)
	gate := NewGate(store, 6, 23, 7)

	high := &domain.TriggerRule{ID: "h", RuleType: domain.RuleTypeCalendar, UserPreference: domain.PreferenceHigh}
	medium := &domain.TriggerRule{ID: "m", RuleType: domain.RuleTypeGoal, UserPreference: domain.PreferenceMedium}
	low := &domain.TriggerRule{ID: "l", RuleType: domain.RuleTypePattern, UserPreference: domain.PreferenceLow}

	// No pattern at all: no constraint
	if !gate.ShouldCheckRule(low, noon) {
		t.Error("missing active_hours pattern must not constrain")
	}

	hours := map[string]int{strconv.Itoa(noon.Hour()): 2}
	if err := store.UpdatePattern(domain.PatternActiveHours, hours, 0.9); err != nil {
		t.Fatalf("update pattern: %v", err)
	}

	if gate.ShouldCheckRule(low, noon) {
		t.Error("low preference needs activity >= 3")
	}
	if !gate.ShouldCheckRule(medium, noon) {
		t.Error("medium preference passes at activity 2")
	}
	if !gate.ShouldCheckRule(high, noon) {
		t.Error("high preference always passes outside quiet hours")
	}

	hours[strconv.Itoa(noon.Hour())] = 1
	if err := store.UpdatePattern(domain.PatternActiveHours, hours, 0.9); err != nil {
		t.Fatalf("update pattern: %v", err)
	}
	if gate.ShouldCheckRule(medium, noon) {
		t.Error("medium preference needs activity >= 2")
	}
}

func TestGateUpdateLimits(t *testing.T) {
	store := newTestStore(t)
	gate := NewGate(store, 6, 23, 7)

	gate.UpdateLimits(1, -1, -1)
	gate.RecordSent()
	if !gate.RateLimited() {
		t.Error("updated limit of 1 should be in effect")
	}

	// Move quiet hours to cover noon
	gate.UpdateLimits(0, 11, 14)
	medium := &domain.TriggerRule{ID: "m", RuleType: domain.RuleTypeGoal, UserPreference: domain.PreferenceMedium}
	gate.UpdateLimits(10, -1, -1) // lift the rate limit again
	if gate.ShouldCheckRule(medium, noon) {
		t.Error("noon is inside the updated quiet window")
	}
}

func TestInQuietHours(t *testing.T) {
	cases := []struct {
		hour, start, end int
		want             bool
	}{
		{23, 23, 7, true},
		{3, 23, 7, true},
		{7, 23, 7, false},
		{12, 23, 7, false},
		{12, 11, 14, true},
		{14, 11, 14, false},
		{5, 5, 5, false}, // start==end disables quiet hours
	}
	for _, tc := range cases {
		if got := inQuietHours(tc.hour, tc.start, tc.end); got != tc.want {
			t.Errorf("inQuietHours(%d, %d, %d) = %v, want %v", tc.hour, tc.start, tc.end, got, tc.want)
		}
	}
}
