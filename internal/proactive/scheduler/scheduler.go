package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"proactive-backend/internal/cache/domain"
	"proactive-backend/internal/cache/repository"
	"proactive-backend/internal/proactive/evaluator"
)

// State is the scheduler lifecycle state
type State string

const (
	StateStopped  State = "stopped"
	StateStarting State = "starting"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

const (
	// cleanupEveryNPasses runs cache cleanup every 24th pass, roughly
	// every 6 hours at the default 15-minute check interval
	cleanupEveryNPasses = 24

	errorBackoff    = 60 * time.Second
	stopJoinTimeout = 30 * time.Second
)

// Config is the scheduler's hot-updatable policy
type Config struct {
	CheckInterval           time.Duration `json:"check_interval"`
	MaxNotificationsPerHour int           `json:"max_notifications_per_hour"`
	QuietHoursStart         int           `json:"quiet_hours_start"`
	QuietHoursEnd           int           `json:"quiet_hours_end"`
}

// Stats are cumulative loop metrics since Start
type Stats struct {
	ChecksPerformed   int       `json:"checks_performed"`
	NotificationsSent int       `json:"notifications_sent"`
	AvgCheckTime      float64   `json:"avg_check_time"` // seconds
	LastCheck         time.Time `json:"last_check"`
}

// Status is the observable scheduler snapshot for the control plane
type Status struct {
	State        State  `json:"state"`
	Config       Config `json:"config"`
	Stats        Stats  `json:"stats"`
	SentThisHour int    `json:"sent_this_hour"`
}

// Scheduler drives the proactive check loop: wake, roll the hourly
// counter, gate and evaluate every active rule, dispatch firings, clean
// up periodically, sleep interruptibly until the next pass.
type Scheduler struct {
	cache      repository.CacheStore
	eval       *evaluator.Evaluator
	gate       *Gate
	dispatcher *Dispatcher

	mu     sync.Mutex
	cfg    Config
	state  State
	stats  Stats
	stopCh chan struct{}
	done   chan struct{}
}

func New(cache repository.CacheStore, eval *evaluator.Evaluator, gate *Gate, dispatcher *Dispatcher, cfg Config) *Scheduler {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = 15 * time.Minute
	}
	return &Scheduler{
		cache:      cache,
		eval:       eval,
		gate:       gate,
		dispatcher: dispatcher,
		cfg:        cfg,
		state:      StateStopped,
	}
}

// Start spawns the main loop. Starting an already-running scheduler is
// an error; Stopped is the only state Start accepts.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateStopped {
		return fmt.Errorf("scheduler is %s, cannot start", s.state)
	}
	s.state = StateStarting
	s.stopCh = make(chan struct{})
	s.done = make(chan struct{})

	go s.run(s.stopCh, s.done)

	s.state = StateRunning
	log.Printf("[Scheduler] Started (check interval %s)", s.cfg.CheckInterval)
	return nil
}

// Stop signals the loop to exit after its current pass and joins it
// with a bounded timeout. Safe to call more than once.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return nil
	}
	s.state = StateStopping
	close(s.stopCh)
	done := s.done
	s.mu.Unlock()

	select {
	case <-done:
	case <-time.After(stopJoinTimeout):
		log.Println("[Scheduler] Loop did not exit within join timeout")
	}

	s.mu.Lock()
	s.state = StateStopped
	s.mu.Unlock()
	log.Println("[Scheduler] Stopped")
	return nil
}

// Status returns an observable snapshot
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:        s.state,
		Config:       s.cfg,
		Stats:        s.stats,
		SentThisHour: s.gate.SentThisHour(),
	}
}

// UpdateConfig hot-applies new settings; zero values leave the current
// setting untouched. Negative quiet hours mean "unchanged".
func (s *Scheduler) UpdateConfig(checkInterval time.Duration, maxPerHour, quietStart, quietEnd int) {
	s.mu.Lock()
	if checkInterval > 0 {
		s.cfg.CheckInterval = checkInterval
	}
	if maxPerHour > 0 {
		s.cfg.MaxNotificationsPerHour = maxPerHour
	}
	if quietStart >= 0 && quietStart < 24 {
		s.cfg.QuietHoursStart = quietStart
	}
	if quietEnd >= 0 && quietEnd < 24 {
		s.cfg.QuietHoursEnd = quietEnd
	}
	s.mu.Unlock()

	s.gate.UpdateLimits(maxPerHour, quietStart, quietEnd)
	log.Println("[Scheduler] Configuration updated")
}

// ForceCheck runs one evaluation pass immediately, optionally limited
// to a single rule type. The rate limit and gate policy still apply;
// only the sleep interval is skipped. Returns notifications sent.
func (s *Scheduler) ForceCheck(ruleType *domain.RuleType) (int, error) {
	log.Println("[Scheduler] Forced check requested")
	return s.checkRules(context.Background(), ruleType, time.Now())
}

func (s *Scheduler) run(stopCh, done chan struct{}) {
	defer close(done)
	log.Println("[Scheduler] Main loop started")

	for {
		start := time.Now()
		if err := s.safePass(); err != nil {
			log.Printf("[Scheduler] Pass failed: %v", err)
			if !s.sleep(stopCh, errorBackoff) {
				return
			}
			continue
		}
		s.recordPass(time.Since(start))

		if !s.sleep(stopCh, s.checkInterval()) {
			return
		}
	}
}

// safePass contains one pass; a panic inside a pass is converted to an
// error so the loop survives and backs off
func (s *Scheduler) safePass() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in scheduler pass: %v", r)
		}
	}()

	now := time.Now()
	s.gate.RollHour(now)

	if _, err := s.checkRules(context.Background(), nil, now); err != nil {
		return err
	}

	s.mu.Lock()
	passes := s.stats.ChecksPerformed + 1
	s.mu.Unlock()
	if passes%cleanupEveryNPasses == 0 {
		if err := s.cache.CleanupExpiredData(); err != nil {
			log.Printf("[Scheduler] Cleanup failed: %v", err)
		}
	}
	return nil
}

// checkRules gates, evaluates and dispatches every active rule. A
// failure in one rule never aborts the pass.
func (s *Scheduler) checkRules(ctx context.Context, ruleType *domain.RuleType, now time.Time) (int, error) {
	if s.gate.RateLimited() {
		return 0, nil
	}

	rules, err := s.cache.ActiveRules(ruleType)
	if err != nil {
		return 0, fmt.Errorf("failed to load active rules: %w", err)
	}

	sent := 0
	for _, rule := range rules {
		if !s.gate.ShouldCheckRule(rule, now) {
			continue
		}

		firings, err := s.eval.Evaluate(ctx, rule, now)
		if err != nil {
			log.Printf("[Scheduler] Error evaluating rule %s: %v", rule.ID, err)
			continue
		}

		for _, firing := range firings {
			ok, err := s.dispatcher.Dispatch(ctx, firing)
			if err != nil {
				log.Printf("[Scheduler] Error dispatching for rule %s: %v", rule.ID, err)
				continue
			}
			if ok {
				sent++
			}
		}
	}

	if sent > 0 {
		s.mu.Lock()
		s.stats.NotificationsSent += sent
		s.mu.Unlock()
	}
	return sent, nil
}

// recordPass updates the running check-time average
func (s *Scheduler) recordPass(elapsed time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.stats.ChecksPerformed
	s.stats.AvgCheckTime = (s.stats.AvgCheckTime*float64(n) + elapsed.Seconds()) / float64(n+1)
	s.stats.ChecksPerformed = n + 1
	s.stats.LastCheck = time.Now()
}

func (s *Scheduler) checkInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.CheckInterval
}

// sleep waits for d or until stop, whichever first. Returns false when
// the scheduler is stopping.
func (s *Scheduler) sleep(stopCh chan struct{}, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-stopCh:
		return false
	case <-timer.C:
		return true
	}
}
