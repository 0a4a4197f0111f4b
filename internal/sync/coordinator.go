package sync

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"proactive-backend/internal/cache/domain"
	"proactive-backend/internal/cache/repository"
	"proactive-backend/pkg/calendar"
	"proactive-backend/pkg/chroma"
	"proactive-backend/pkg/memory"
)

// Pattern confidences assigned at sync time. Active hours come straight
// from observed interaction counts and are trusted most.
const (
	styleConfidence     = 0.8
	interestsConfidence = 0.7
	activeConfidence    = 0.9
	insightsConfidence  = 0.8
)

const calendarSnapshotTTL = 10 * time.Minute

// CalendarSource is the optional live calendar feed
type CalendarSource interface {
	IsAvailable() bool
	UpcomingEvents(ctx context.Context, limit int) ([]calendar.Event, error)
}

// Coordinator keeps the hot cache's patterns and goal snapshots fresh
// from the long-term memory store. It runs on its own timer, more
// frequent than the scheduler's check interval, and a failure in one
// data source never blocks the others.
type Coordinator struct {
	cache    repository.CacheStore
	memory   memory.Store
	calendar CalendarSource
	insights *chroma.InsightStore // optional semantic index

	interval time.Duration

	mu       sync.Mutex
	lastSync map[string]time.Time
	stopCh   chan struct{}
	done     chan struct{}
	running  bool
}

func NewCoordinator(cache repository.CacheStore, mem memory.Store, cal CalendarSource, insights *chroma.InsightStore, interval time.Duration) *Coordinator {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Coordinator{
		cache:    cache,
		memory:   mem,
		calendar: cal,
		insights: insights,
		interval: interval,
		lastSync: make(map[string]time.Time),
	}
}

// Start runs an initial full sync, then periodic syncs until Stop
func (c *Coordinator) Start() {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.done = make(chan struct{})
	stopCh, done := c.stopCh, c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		c.SyncAll()

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				c.SyncAll()
			}
		}
	}()
	log.Printf("[Sync] Coordinator started (interval %s)", c.interval)
}

// Stop halts the sync loop; safe to call more than once
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stopCh)
	done := c.done
	c.mu.Unlock()

	<-done
	log.Println("[Sync] Coordinator stopped")
}

// SyncAll refreshes every cached data source. Each sub-sync is
// independently isolated so one unreachable source cannot starve the
// others.
func (c *Coordinator) SyncAll() {
	if err := c.syncPatterns(); err != nil {
		log.Printf("[Sync] Error syncing user patterns: %v", err)
	} else {
		c.markSynced("user_patterns")
	}

	if err := c.syncGoals(); err != nil {
		log.Printf("[Sync] Error syncing goals: %v", err)
	} else {
		c.markSynced("goals")
	}

	if err := c.syncCalendar(); err != nil {
		log.Printf("[Sync] Error syncing calendar snapshot: %v", err)
	} else {
		c.markSynced("calendar")
	}
}

// LastSync reports when each data source last synced successfully
func (c *Coordinator) LastSync() map[string]time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]time.Time, len(c.lastSync))
	for k, v := range c.lastSync {
		out[k] = v
	}
	return out
}

func (c *Coordinator) markSynced(source string) {
	c.mu.Lock()
	c.lastSync[source] = time.Now()
	c.mu.Unlock()
}

func (c *Coordinator) syncPatterns() error {
	profile, err := c.memory.UserProfile()
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	if profile.CommunicationStyle != "" {
		if err := c.cache.UpdatePattern(domain.PatternCommunicationStyle,
			map[string]string{"style": profile.CommunicationStyle}, styleConfidence); err != nil {
			return err
		}
	}
	if len(profile.Interests) > 0 {
		if err := c.cache.UpdatePattern(domain.PatternInterests, profile.Interests, interestsConfidence); err != nil {
			return err
		}
	}
	if len(profile.ActiveHours) > 0 {
		if err := c.cache.UpdatePattern(domain.PatternActiveHours, profile.ActiveHours, activeConfidence); err != nil {
			return err
		}
	}

	insights, err := c.memory.RecentInsights(10)
	if err != nil {
		return fmt.Errorf("failed to load insights: %w", err)
	}
	if len(insights) > 0 {
		contents := make([]string, 0, len(insights))
		for _, insight := range insights {
			contents = append(contents, insight.Content)
		}
		if err := c.cache.UpdatePattern(domain.PatternRecentInsights, contents, insightsConfidence); err != nil {
			return err
		}
		c.indexInsights(insights)
	}
	return nil
}

// indexInsights mirrors fresh insights into the semantic index when one
// is configured. Index failures are logged, never propagated: the cache
// pattern is the source the evaluator reads.
func (c *Coordinator) indexInsights(insights []memory.Insight) {
	if c.insights == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, insight := range insights {
		id := strconv.FormatInt(insight.ID, 10)
		if err := c.insights.IndexInsight(ctx, id, insight.InsightType, insight.Content, insight.Confidence); err != nil {
			log.Printf("[Sync] Failed to index insight %s: %v", id, err)
			return
		}
	}
}

// syncGoals replaces the whole goal snapshot table. days_since_update
// is computed here, at sync time, never at read time.
func (c *Coordinator) syncGoals() error {
	goals, err := c.memory.Goals()
	if err != nil {
		return fmt.Errorf("failed to load goals: %w", err)
	}

	now := time.Now()
	snapshots := make([]domain.GoalSnapshot, 0, len(goals))
	for _, goal := range goals {
		lastUpdated := goal.CreatedAt
		if goal.LastUpdated != nil {
			lastUpdated = *goal.LastUpdated
		}
		status := goal.Status
		if status == "" {
			status = domain.GoalStatusActive
		}
		snapshots = append(snapshots, domain.GoalSnapshot{
			GoalID:          strconv.FormatInt(goal.ID, 10),
			Title:           goal.Title,
			Description:     goal.Description,
			Progress:        goal.Progress,
			TargetDate:      goal.TargetDate,
			LastUpdated:     lastUpdated,
			Status:          status,
			DaysSinceUpdate: int(now.Sub(lastUpdated).Hours() / 24),
		})
	}

	if err := c.cache.SyncGoals(snapshots); err != nil {
		return fmt.Errorf("failed to replace goal snapshots: %w", err)
	}
	return nil
}

// syncCalendar stores a short-lived event snapshot for the control
// plane. The evaluator never reads it; calendar triggers always fetch
// live.
func (c *Coordinator) syncCalendar() error {
	if c.calendar == nil || !c.calendar.IsAvailable() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	events, err := c.calendar.UpcomingEvents(ctx, 20)
	if err != nil {
		return fmt.Errorf("failed to fetch events: %w", err)
	}

	if _, err := c.cache.StoreSnapshot("calendar_events", events, calendarSnapshotTTL); err != nil {
		return fmt.Errorf("failed to store calendar snapshot: %w", err)
	}
	return nil
}
