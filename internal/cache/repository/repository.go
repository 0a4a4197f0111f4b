package repository

import (
	"errors"
	"time"

	"proactive-backend/internal/cache/domain"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("cache: not found")

// TriggerRuleRepository manages trigger rule persistence and learning state
type TriggerRuleRepository interface {
	// Upsert inserts or replaces a rule by id, preserving any existing
	// trigger_count and success_rate (read-modify-write, not a blind overwrite)
	Upsert(rule *domain.TriggerRule) error

	// ActiveRules returns enabled rules, optionally filtered by type,
	// ordered by (user_preference desc, success_rate desc)
	ActiveRules(ruleType *domain.RuleType) ([]*domain.TriggerRule, error)

	// UpdateTriggerSuccess applies the online running-average update
	// new = (old*count + outcome)/(count+1) and stamps last_triggered
	UpdateTriggerSuccess(ruleID string, wasSuccessful bool) error

	// MarkTriggered stamps last_triggered after a successful dispatch
	MarkTriggered(ruleID string, at time.Time) error

	// FindRule finds a rule by id; ErrNotFound when absent
	FindRule(ruleID string) (*domain.TriggerRule, error)
}

// PatternRepository manages learned user pattern snapshots
type PatternRepository interface {
	// UpdatePattern upserts a pattern, keeping its access counter
	UpdatePattern(patternType string, data interface{}, confidence float64) error

	// Pattern reads a pattern and increments its access counter.
	// Returns nil (no error) when the pattern does not exist.
	Pattern(patternType string) (*domain.UserPattern, error)
}

// GoalRepository manages the denormalized goal snapshot cache
type GoalRepository interface {
	// SyncGoals atomically replaces the whole snapshot table
	SyncGoals(goals []domain.GoalSnapshot) error

	// StaleGoals returns active, incomplete goals not updated for at
	// least daysThreshold days, most stale and highest priority first
	StaleGoals(daysThreshold int) ([]*domain.GoalSnapshot, error)

	// DeadlineApproaching returns active, incomplete goals due within
	// daysAhead days, soonest first
	DeadlineApproaching(daysAhead int) ([]*domain.GoalSnapshot, error)
}

// NotificationRepository manages sent-notification history
type NotificationRepository interface {
	// Record persists a freshly dispatched notification
	Record(rec *domain.NotificationRecord) error

	// UpdateResponse sets the user response once; a response already
	// recorded is never overwritten
	UpdateResponse(id, response string, responseTime float64) error

	// FindNotification finds a record by id; ErrNotFound when absent
	FindNotification(id string) (*domain.NotificationRecord, error)

	// RecentNotifications lists records newest first
	RecentNotifications(limit int) ([]*domain.NotificationRecord, error)

	// Stats aggregates response behavior over the last daysBack days
	Stats(daysBack int) (*domain.NotificationStats, error)
}

// SnapshotRepository manages TTL'd precomputed context blobs
type SnapshotRepository interface {
	// StoreSnapshot persists a context blob with a TTL, returning its id
	StoreSnapshot(contextType string, data interface{}, ttl time.Duration) (string, error)

	// Snapshot returns the latest unexpired blob of a type, counting the
	// access. Returns nil (no error) when none is valid.
	Snapshot(contextType string) (*domain.ContextSnapshot, error)
}

// CacheStore is the full cache-store surface the proactive subsystem
// owns. One implementation backs all of it so multi-step writes share a
// single writer lock.
type CacheStore interface {
	TriggerRuleRepository
	PatternRepository
	GoalRepository
	NotificationRepository
	SnapshotRepository

	// SeedDefaultRules inserts the bootstrap rule set (idempotent)
	SeedDefaultRules() error

	// CleanupExpiredData removes expired context snapshots and
	// notification records older than the retention window (30 days)
	CleanupExpiredData() error

	// CacheStats returns per-table row counts for observability
	CacheStats() (map[string]int64, error)

	// Close releases the underlying database connections
	Close() error
}
