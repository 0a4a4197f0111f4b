package usecase

import (
	"context"
	"log"
	"time"

	"proactive-backend/internal/cache/domain"
	"proactive-backend/internal/cache/repository"
	"proactive-backend/internal/proactive/scheduler"
	coordsync "proactive-backend/internal/sync"
	"proactive-backend/pkg/notify"
)

const statsWindowDays = 7
const deadlineWindowDays = 7

// Status is the full subsystem snapshot for the control plane
type Status struct {
	Scheduler         scheduler.Status            `json:"scheduler"`
	LastSync          map[string]time.Time        `json:"last_sync"`
	CacheStats        map[string]int64            `json:"cache_stats"`
	NotificationStats *domain.NotificationStats   `json:"notification_stats,omitempty"`
	DeadlineGoals     []*domain.GoalSnapshot      `json:"deadline_goals,omitempty"`
}

// ProactiveManager is the facade over the proactive subsystem: it owns
// the scheduler and sync coordinator lifecycles, routes user responses
// into the feedback loop, and aggregates status for the control plane.
type ProactiveManager struct {
	cache       repository.CacheStore
	scheduler   *scheduler.Scheduler
	coordinator *coordsync.Coordinator
	feedback    *coordsync.Feedback
	dispatcher  *scheduler.Dispatcher
}

// NewProactiveManager wires the subsystem. When the sender can route
// responses back in-process, the feedback callback is registered here;
// webhook-delivered responses reach the same path through OnUserResponse.
func NewProactiveManager(
	cache repository.CacheStore,
	sched *scheduler.Scheduler,
	coordinator *coordsync.Coordinator,
	feedback *coordsync.Feedback,
	dispatcher *scheduler.Dispatcher,
	sender notify.Sender,
) *ProactiveManager {
	m := &ProactiveManager{
		cache:       cache,
		scheduler:   sched,
		coordinator: coordinator,
		feedback:    feedback,
		dispatcher:  dispatcher,
	}

	if router, ok := sender.(notify.ResponseRouter); ok {
		router.OnResponse(m.OnUserResponse)
	}
	return m
}

// Start brings up the sync coordinator first so the scheduler's first
// pass sees a warm cache, then starts the check loop.
func (m *ProactiveManager) Start() error {
	m.coordinator.Start()
	if err := m.scheduler.Start(); err != nil {
		m.coordinator.Stop()
		return err
	}
	log.Println("[Proactive] Manager started")
	return nil
}

// Stop shuts both loops down and releases the cache store
func (m *ProactiveManager) Stop() {
	if err := m.scheduler.Stop(); err != nil {
		log.Printf("[Proactive] Scheduler stop failed: %v", err)
	}
	m.coordinator.Stop()
	log.Println("[Proactive] Manager stopped")
}

// OnUserResponse feeds one user interaction into the learning loop
func (m *ProactiveManager) OnUserResponse(notificationID, action string) {
	if err := m.feedback.HandleResponse(notificationID, action); err != nil {
		log.Printf("[Proactive] Failed to process response for %s: %v", notificationID, err)
	}
}

// SendImmediateNotification bypasses the trigger pipeline; the send is
// recorded under the manual sentinel rule and counted toward the rate
// limit.
func (m *ProactiveManager) SendImmediateNotification(ctx context.Context, title, message, priority string) (string, error) {
	return m.dispatcher.SendImmediate(ctx, title, message, priority)
}

// ForceCheck evaluates rules now, optionally limited to one type
func (m *ProactiveManager) ForceCheck(ruleType *domain.RuleType) (int, error) {
	return m.scheduler.ForceCheck(ruleType)
}

// UpdateConfig hot-applies scheduler policy changes
func (m *ProactiveManager) UpdateConfig(checkInterval time.Duration, maxPerHour, quietStart, quietEnd int) {
	m.scheduler.UpdateConfig(checkInterval, maxPerHour, quietStart, quietEnd)
}

// Status aggregates the scheduler snapshot with cache and notification
// statistics. Partial failures degrade the payload instead of erroring.
func (m *ProactiveManager) Status() Status {
	status := Status{
		Scheduler: m.scheduler.Status(),
		LastSync:  m.coordinator.LastSync(),
	}

	if cacheStats, err := m.cache.CacheStats(); err == nil {
		status.CacheStats = cacheStats
	} else {
		log.Printf("[Proactive] Failed to read cache stats: %v", err)
	}

	if stats, err := m.cache.Stats(statsWindowDays); err == nil {
		status.NotificationStats = stats
	} else {
		log.Printf("[Proactive] Failed to read notification stats: %v", err)
	}

	if goals, err := m.cache.DeadlineApproaching(deadlineWindowDays); err == nil {
		status.DeadlineGoals = goals
	} else {
		log.Printf("[Proactive] Failed to read deadline goals: %v", err)
	}
	return status
}

// History returns recent notification records plus aggregate stats
func (m *ProactiveManager) History(limit, daysBack int) ([]*domain.NotificationRecord, *domain.NotificationStats, error) {
	if daysBack <= 0 {
		daysBack = statsWindowDays
	}
	records, err := m.cache.RecentNotifications(limit)
	if err != nil {
		return nil, nil, err
	}
	stats, err := m.cache.Stats(daysBack)
	if err != nil {
		return nil, nil, err
	}
	return records, stats, nil
}
