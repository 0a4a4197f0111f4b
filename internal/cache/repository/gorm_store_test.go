package repository

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"proactive-backend/internal/cache/domain"
	"proactive-backend/pkg/database"
)

func newTestStore(t *testing.T) CacheStore {
	t.Helper()
	db, err := database.NewSQLiteConnection(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	store, err := NewGormCacheStore(db)
	if err != nil {
		t.Fatalf("create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRule(id string, ruleType domain.RuleType, pref domain.Preference) *domain.TriggerRule {
	return &domain.TriggerRule{
		ID:             id,
		RuleType:       ruleType,
		Conditions:     "{}",
		Threshold:      0.5,
		Enabled:        true,
		UserPreference: pref,
	}
}

func TestUpsertPreservesLearningState(t *testing.T) {
	store := newTestStore(t)

	rule := testRule("r1", domain.RuleTypeGoal, domain.PreferenceMedium)
	if err := store.Upsert(rule); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Accumulate learning state
	if err := store.UpdateTriggerSuccess("r1", true); err != nil {
		t.Fatalf("update success: %v", err)
	}

	// Rewriting the rule's config must not reset its history
	updated := testRule("r1", domain.RuleTypeGoal, domain.PreferenceHigh)
	updated.Conditions = `{"days_since_update":5}`
	if err := store.Upsert(updated); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := store.FindRule("r1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.TriggerCount != 1 {
		t.Errorf("TriggerCount = %d, want 1", got.TriggerCount)
	}
	if got.SuccessRate != 1.0 {
		t.Errorf("SuccessRate = %v, want 1.0", got.SuccessRate)
	}
	if got.UserPreference != domain.PreferenceHigh {
		t.Errorf("UserPreference = %s, want high", got.UserPreference)
	}
	if got.LastTriggered == nil {
		t.Error("LastTriggered lost across upsert")
	}
}

func TestUpdateTriggerSuccessRunningAverage(t *testing.T) {
	store := newTestStore(t)
	if err := store.Upsert(testRule("r1", domain.RuleTypeCalendar, domain.PreferenceHigh)); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// success then failure: 1.0 -> 0.5
	if err := store.UpdateTriggerSuccess("r1", true); err != nil {
		t.Fatalf("first update: %v", err)
	}
	if err := store.UpdateTriggerSuccess("r1", false); err != nil {
		t.Fatalf("second update: %v", err)
	}

	got, err := store.FindRule("r1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.SuccessRate != 0.5 {
		t.Errorf("SuccessRate = %v, want 0.5", got.SuccessRate)
	}
	if got.TriggerCount != 2 {
		t.Errorf("TriggerCount = %d, want 2", got.TriggerCount)
	}

	if err := store.UpdateTriggerSuccess("missing", true); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestActiveRulesOrderingAndFilter(t *testing.T) {
	store := newTestStore(t)

	low := testRule("low", domain.RuleTypePattern, domain.PreferenceLow)
	high := testRule("high", domain.RuleTypeCalendar, domain.PreferenceHigh)
	medium := testRule("medium", domain.RuleTypeGoal, domain.PreferenceMedium)
	disabled := testRule("off", domain.RuleTypeGoal, domain.PreferenceHigh)
	disabled.Enabled = false

	for _, r := range []*domain.TriggerRule{low, high, medium, disabled} {
		if err := store.Upsert(r); err != nil {
			t.Fatalf("upsert %s: %v", r.ID, err)
		}
	}

	rules, err := store.ActiveRules(nil)
	if err != nil {
		t.Fatalf("active rules: %v", err)
	}
	if len(rules) != 3 {
		t.Fatalf("len = %d, want 3 (disabled rule excluded)", len(rules))
	}
	if rules[0].ID != "high" || rules[1].ID != "medium" || rules[2].ID != "low" {
		t.Errorf("order = %s, %s, %s; want high, medium, low", rules[0].ID, rules[1].ID, rules[2].ID)
	}

	goalType := domain.RuleTypeGoal
	rules, err = store.ActiveRules(&goalType)
	if err != nil {
		t.Fatalf("filtered rules: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != "medium" {
		t.Errorf("filtered = %v, want only medium", rules)
	}
}

func TestPatternRoundTripAndAccessCount(t *testing.T) {
	store := newTestStore(t)

	if p, err := store.Pattern("active_hours"); err != nil || p != nil {
		t.Fatalf("missing pattern: got %v, %v; want nil, nil", p, err)
	}

	hours := map[string]int{"9": 5, "14": 3}
	if err := store.UpdatePattern(domain.PatternActiveHours, hours, 0.9); err != nil {
		t.Fatalf("update pattern: %v", err)
	}

	p, err := store.Pattern(domain.PatternActiveHours)
	if err != nil {
		t.Fatalf("read pattern: %v", err)
	}
	if p.Confidence != 0.9 {
		t.Errorf("confidence = %v", p.Confidence)
	}
	if counts := p.HourCounts(); counts[9] != 5 || counts[14] != 3 {
		t.Errorf("counts = %v", counts)
	}
	if p.AccessCount != 1 {
		t.Errorf("AccessCount = %d, want 1", p.AccessCount)
	}

	// Re-upserting keeps the access counter
	if err := store.UpdatePattern(domain.PatternActiveHours, hours, 0.95); err != nil {
		t.Fatalf("second update: %v", err)
	}
	p, _ = store.Pattern(domain.PatternActiveHours)
	if p.AccessCount != 2 {
		t.Errorf("AccessCount after update = %d, want 2", p.AccessCount)
	}
}

func TestSyncGoalsReplacesAll(t *testing.T) {
	store := newTestStore(t)

	first := []domain.GoalSnapshot{
		{GoalID: "g1", Title: "Learn Go", Progress: 40, LastUpdated: time.Now().AddDate(0, 0, -5), Status: domain.GoalStatusActive, DaysSinceUpdate: 5},
		{GoalID: "g2", Title: "Run 10k", Progress: 80, LastUpdated: time.Now(), Status: domain.GoalStatusActive},
	}
	if err := store.SyncGoals(first); err != nil {
		t.Fatalf("first sync: %v", err)
	}

	second := []domain.GoalSnapshot{
		{GoalID: "g3", Title: "Read more", Progress: 10, LastUpdated: time.Now().AddDate(0, 0, -7), Status: domain.GoalStatusActive, DaysSinceUpdate: 7},
	}
	if err := store.SyncGoals(second); err != nil {
		t.Fatalf("second sync: %v", err)
	}

	stale, err := store.StaleGoals(3)
	if err != nil {
		t.Fatalf("stale goals: %v", err)
	}
	if len(stale) != 1 || stale[0].GoalID != "g3" {
		t.Fatalf("stale = %v, want only g3 (previous sync gone)", stale)
	}
}

func TestStaleGoalsFilters(t *testing.T) {
	store := newTestStore(t)

	goals := []domain.GoalSnapshot{
		{GoalID: "stale", Title: "stale", Progress: 20, LastUpdated: time.Now(), Status: domain.GoalStatusActive, DaysSinceUpdate: 6},
		{GoalID: "fresh", Title: "fresh", Progress: 20, LastUpdated: time.Now(), Status: domain.GoalStatusActive, DaysSinceUpdate: 1},
		{GoalID: "done", Title: "done", Progress: 100, LastUpdated: time.Now(), Status: domain.GoalStatusActive, DaysSinceUpdate: 10},
		{GoalID: "paused", Title: "paused", Progress: 20, LastUpdated: time.Now(), Status: domain.GoalStatusPaused, DaysSinceUpdate: 10},
		{GoalID: "older", Title: "older", Progress: 50, Priority: 2, LastUpdated: time.Now(), Status: domain.GoalStatusActive, DaysSinceUpdate: 9},
	}
	if err := store.SyncGoals(goals); err != nil {
		t.Fatalf("sync: %v", err)
	}

	stale, err := store.StaleGoals(3)
	if err != nil {
		t.Fatalf("stale goals: %v", err)
	}
	if len(stale) != 2 {
		t.Fatalf("len = %d, want 2", len(stale))
	}
	// Most stale first
	if stale[0].GoalID != "older" || stale[1].GoalID != "stale" {
		t.Errorf("order = %s, %s; want older, stale", stale[0].GoalID, stale[1].GoalID)
	}
}

func TestDeadlineApproaching(t *testing.T) {
	store := newTestStore(t)

	soon := time.Now().AddDate(0, 0, 2)
	far := time.Now().AddDate(0, 0, 30)
	goals := []domain.GoalSnapshot{
		{GoalID: "due", Title: "due", Progress: 50, TargetDate: &soon, LastUpdated: time.Now(), Status: domain.GoalStatusActive},
		{GoalID: "later", Title: "later", Progress: 50, TargetDate: &far, LastUpdated: time.Now(), Status: domain.GoalStatusActive},
		{GoalID: "nodate", Title: "nodate", Progress: 50, LastUpdated: time.Now(), Status: domain.GoalStatusActive},
	}
	if err := store.SyncGoals(goals); err != nil {
		t.Fatalf("sync: %v", err)
	}

	due, err := store.DeadlineApproaching(7)
	if err != nil {
		t.Fatalf("deadline query: %v", err)
	}
	if len(due) != 1 || due[0].GoalID != "due" {
		t.Errorf("due = %v, want only 'due'", due)
	}
}

func TestUpdateResponseOnlyOnce(t *testing.T) {
	store := newTestStore(t)

	rec := &domain.NotificationRecord{
		ID:            "n1",
		TriggerRuleID: "r1",
		Content:       "hello",
		SentAt:        time.Now().Add(-time.Minute),
	}
	if err := store.Record(rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	if err := store.UpdateResponse("n1", domain.ResponseClicked, 12.5); err != nil {
		t.Fatalf("first response: %v", err)
	}
	// A later auto_dismiss must not clobber the real click
	if err := store.UpdateResponse("n1", domain.ResponseAutoDismissed, 300); err != nil {
		t.Fatalf("second response: %v", err)
	}

	got, err := store.FindNotification("n1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.UserResponse == nil || *got.UserResponse != domain.ResponseClicked {
		t.Errorf("UserResponse = %v, want clicked", got.UserResponse)
	}
	if got.ResponseTime == nil || *got.ResponseTime != 12.5 {
		t.Errorf("ResponseTime = %v, want 12.5", got.ResponseTime)
	}

	if err := store.UpdateResponse("missing", domain.ResponseClicked, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSeedDefaultRulesIdempotent(t *testing.T) {
	store := newTestStore(t)

	if err := store.SeedDefaultRules(); err != nil {
		t.Fatalf("first seed: %v", err)
	}

	// Learning state survives re-seeding at startup
	if err := store.UpdateTriggerSuccess("goal_stale_3days", true); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.SeedDefaultRules(); err != nil {
		t.Fatalf("second seed: %v", err)
	}

	rules, err := store.ActiveRules(nil)
	if err != nil {
		t.Fatalf("active rules: %v", err)
	}
	if len(rules) != 4 {
		t.Fatalf("len = %d, want 4", len(rules))
	}

	got, err := store.FindRule("goal_stale_3days")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.TriggerCount != 1 {
		t.Errorf("TriggerCount = %d, want 1 (survived re-seed)", got.TriggerCount)
	}
}

func TestCleanupExpiredData(t *testing.T) {
	store := newTestStore(t)

	old := &domain.NotificationRecord{
		ID:            "old",
		TriggerRuleID: "r1",
		Content:       "old",
		SentAt:        time.Now().AddDate(0, 0, -31),
	}
	recent := &domain.NotificationRecord{
		ID:            "recent",
		TriggerRuleID: "r1",
		Content:       "recent",
		SentAt:        time.Now(),
	}
	for _, rec := range []*domain.NotificationRecord{old, recent} {
		if err := store.Record(rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	if _, err := store.StoreSnapshot("expired", map[string]int{"x": 1}, -time.Minute); err != nil {
		t.Fatalf("store snapshot: %v", err)
	}
	if _, err := store.StoreSnapshot("valid", map[string]int{"x": 2}, time.Hour); err != nil {
		t.Fatalf("store snapshot: %v", err)
	}

	if err := store.CleanupExpiredData(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if _, err := store.FindNotification("old"); !errors.Is(err, ErrNotFound) {
		t.Errorf("old record should be pruned, err = %v", err)
	}
	if _, err := store.FindNotification("recent"); err != nil {
		t.Errorf("recent record should survive: %v", err)
	}

	if snap, _ := store.Snapshot("expired"); snap != nil {
		t.Error("expired snapshot should be gone")
	}
	if snap, _ := store.Snapshot("valid"); snap == nil {
		t.Error("valid snapshot should survive")
	}
}

func TestNotificationStats(t *testing.T) {
	store := newTestStore(t)
	if err := store.SeedDefaultRules(); err != nil {
		t.Fatalf("seed: %v", err)
	}

	records := []*domain.NotificationRecord{
		{ID: "n1", TriggerRuleID: "goal_stale_3days", Content: "a", SentAt: time.Now().Add(-time.Hour)},
		{ID: "n2", TriggerRuleID: "goal_stale_3days", Content: "b", SentAt: time.Now().Add(-time.Hour)},
		{ID: "n3", TriggerRuleID: "calendar_upcoming_30min", Content: "c", SentAt: time.Now().Add(-time.Hour)},
	}
	for _, rec := range records {
		if err := store.Record(rec); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := store.UpdateResponse("n1", domain.ResponseClicked, 10); err != nil {
		t.Fatalf("response: %v", err)
	}
	if err := store.UpdateResponse("n3", domain.ResponseDismissed, 60); err != nil {
		t.Fatalf("response: %v", err)
	}

	stats, err := store.Stats(7)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalSent != 3 || stats.TotalResponses != 2 {
		t.Errorf("sent/responses = %d/%d, want 3/2", stats.TotalSent, stats.TotalResponses)
	}
	if stats.Clicked != 1 || stats.Dismissed != 1 {
		t.Errorf("clicked/dismissed = %d/%d, want 1/1", stats.Clicked, stats.Dismissed)
	}
	goalStats := stats.ByType[domain.RuleTypeGoal]
	if goalStats.Count != 2 || goalStats.Responses != 1 {
		t.Errorf("goal type stats = %+v", goalStats)
	}
}
