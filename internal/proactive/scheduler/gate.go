package scheduler

import (
	"log"
	"sync"
	"time"

	"proactive-backend/internal/cache/domain"
	"proactive-backend/internal/cache/repository"
)

// Activity thresholds for non-high preferences outside quiet hours
const (
	lowPreferenceMinActivity    = 3
	mediumPreferenceMinActivity = 2
)

// Gate decides whether a rule may be evaluated right now. It owns the
// rolling hourly notification counter and the quiet-hours policy; the
// counter resets exactly once per wall-clock hour boundary crossed, not
// on a fixed 3600s timer.
type Gate struct {
	patterns repository.PatternRepository

	mu            sync.Mutex
	maxPerHour    int
	quietStart    int // inclusive, local hour
	quietEnd      int // exclusive, local hour
	sentThisHour  int
	lastHourReset int
}

func NewGate(patterns repository.PatternRepository, maxPerHour, quietStart, quietEnd int) *Gate {
	return &Gate{
		patterns:      patterns,
		maxPerHour:    maxPerHour,
		quietStart:    quietStart,
		quietEnd:      quietEnd,
		lastHourReset: time.Now().Hour(),
	}
}

// RollHour resets the hourly counter when the wall-clock hour has
// changed since the last reset. Returns true when a reset happened.
func (g *Gate) RollHour(now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if now.Hour() == g.lastHourReset {
		return false
	}
	if g.sentThisHour > 0 {
		log.Printf("[Gate] Hour rolled over, resetting notification counter (was %d)", g.sentThisHour)
	}
	g.sentThisHour = 0
	g.lastHourReset = now.Hour()
	return true
}

// RateLimited reports whether the hourly send budget is exhausted
func (g *Gate) RateLimited() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sentThisHour >= g.maxPerHour
}

// RecordSent counts one successful dispatch against the hourly budget
func (g *Gate) RecordSent() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sentThisHour++
}

// SentThisHour returns the current hourly counter
func (g *Gate) SentThisHour() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sentThisHour
}

// UpdateLimits hot-applies new rate/quiet-hours settings. Values <= 0
// (or out of range for hours) leave the current setting untouched.
func (g *Gate) UpdateLimits(maxPerHour, quietStart, quietEnd int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if maxPerHour > 0 {
		g.maxPerHour = maxPerHour
	}
	if quietStart >= 0 && quietStart < 24 {
		g.quietStart = quietStart
	}
	if quietEnd >= 0 && quietEnd < 24 {
		g.quietEnd = quietEnd
	}
}

// ShouldCheckRule applies the gate policy in order: hourly rate limit,
// per-type minimum re-fire interval, quiet hours (high preference only),
// then historical-activity thresholds for low/medium preferences.
func (g *Gate) ShouldCheckRule(rule *domain.TriggerRule, now time.Time) bool {
	if g.RateLimited() {
		return false
	}

	if rule.LastTriggered != nil {
		if now.Sub(*rule.LastTriggered) < rule.RuleType.MinInterval() {
			return false
		}
	}

	return g.appropriateTime(rule.UserPreference, now)
}

func (g *Gate) appropriateTime(pref domain.Preference, now time.Time) bool {
	hour := now.Hour()

	g.mu.Lock()
	quietStart, quietEnd := g.quietStart, g.quietEnd
	g.mu.Unlock()

	if inQuietHours(hour, quietStart, quietEnd) {
		return pref == domain.PreferenceHigh
	}

	// Missing activity pattern means no constraint
	pattern, err := g.patterns.Pattern(domain.PatternActiveHours)
	if err != nil || pattern == nil {
		return true
	}

	activity := pattern.HourCounts()[hour]
	switch pref {
	case domain.PreferenceLow:
		return activity >= lowPreferenceMinActivity
	case domain.PreferenceMedium:
		return activity >= mediumPreferenceMinActivity
	}
	return true
}

// inQuietHours checks [start, end) with midnight wraparound
func inQuietHours(hour, start, end int) bool {
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
