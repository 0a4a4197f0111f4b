package evaluator

import (
	"context"
	"fmt"
	"log"
	"time"

	"proactive-backend/internal/cache/domain"
	"proactive-backend/internal/cache/repository"
	"proactive-backend/pkg/ai"
	"proactive-backend/pkg/calendar"
)

// maxStaleGoalsPerPass bounds goal notification volume per evaluation
const maxStaleGoalsPerPass = 2

// CalendarSource is the live calendar view the evaluator consumes.
// Calendar data is never cached: staleness there directly causes missed
// or wrong-time reminders, so every evaluation fetches fresh.
type CalendarSource interface {
	IsAvailable() bool
	UpcomingEvents(ctx context.Context, limit int) ([]calendar.Event, error)
}

// Firing is one satisfied trigger condition, carrying everything the
// dispatcher needs to compose and send a notification.
type Firing struct {
	Rule        *domain.TriggerRule
	TriggerType domain.RuleType
	Input       ai.NotificationInput
}

// Evaluator decides whether a rule's domain condition is currently
// satisfied. It reads cached state (patterns, goal snapshots) plus a
// live calendar snapshot; it never mutates anything.
type Evaluator struct {
	cache    repository.CacheStore
	calendar CalendarSource
}

func New(cache repository.CacheStore, cal CalendarSource) *Evaluator {
	return &Evaluator{cache: cache, calendar: cal}
}

// Evaluate checks one rule and returns zero or more firings. A rule
// whose conditions cannot be decoded is skipped with an error; callers
// log and move on, never disable the rule.
func (e *Evaluator) Evaluate(ctx context.Context, rule *domain.TriggerRule, now time.Time) ([]Firing, error) {
	conds, err := rule.DecodeConditions()
	if err != nil {
		return nil, err
	}

	switch rule.RuleType {
	case domain.RuleTypeCalendar:
		return e.evaluateCalendar(ctx, rule, conds.Calendar, now)
	case domain.RuleTypeGoal:
		return e.evaluateGoal(rule, conds.Goal)
	case domain.RuleTypePattern:
		return e.evaluatePattern(rule, conds.Pattern, now)
	case domain.RuleTypeLearning:
		return e.evaluateLearning(rule, conds.Learning)
	default:
		return nil, fmt.Errorf("rule %s: unknown rule type %q", rule.ID, rule.RuleType)
	}
}

// evaluateCalendar fires once per event starting within the configured
// minute window. Events are deduplicated by summary+start within the
// pass so overlapping calendars don't double-notify.
func (e *Evaluator) evaluateCalendar(ctx context.Context, rule *domain.TriggerRule, c *domain.CalendarConditions, now time.Time) ([]Firing, error) {
	if e.calendar == nil || !e.calendar.IsAvailable() {
		return nil, nil
	}

	events, err := e.calendar.UpcomingEvents(ctx, 20)
	if err != nil {
		return nil, fmt.Errorf("rule %s: calendar fetch failed: %w", rule.ID, err)
	}

	var firings []Firing
	seen := make(map[string]bool)
	for _, event := range events {
		minutesUntil := int(event.Start.Sub(now).Minutes())
		if minutesUntil < c.MinutesBefore[0] || minutesUntil > c.MinutesBefore[1] {
			continue
		}
		key := event.Summary + "|" + event.Start.Format(time.RFC3339)
		if seen[key] {
			continue
		}
		seen[key] = true

		firings = append(firings, Firing{
			Rule:        rule,
			TriggerType: domain.RuleTypeCalendar,
			Input: ai.NotificationInput{
				EventSummary: event.Summary,
				MinutesUntil: minutesUntil,
			},
		})
	}
	return firings, nil
}

// evaluateGoal fires for stale, incomplete goals, capped per pass
func (e *Evaluator) evaluateGoal(rule *domain.TriggerRule, c *domain.GoalConditions) ([]Firing, error) {
	staleGoals, err := e.cache.StaleGoals(c.DaysSinceUpdate)
	if err != nil {
		return nil, fmt.Errorf("rule %s: stale goal query failed: %w", rule.ID, err)
	}

	var firings []Firing
	for _, goal := range staleGoals {
		if len(firings) >= maxStaleGoalsPerPass {
			break
		}
		if goal.Progress >= c.ProgressThreshold {
			continue
		}
		firings = append(firings, Firing{
			Rule:        rule,
			TriggerType: domain.RuleTypeGoal,
			Input: ai.NotificationInput{
				GoalTitle: goal.Title,
				DaysStale: goal.DaysSinceUpdate,
			},
		})
	}
	return firings, nil
}

// evaluatePattern fires when the user is historically active this hour
// and the interests pattern is present
func (e *Evaluator) evaluatePattern(rule *domain.TriggerRule, c *domain.PatternConditions, now time.Time) ([]Firing, error) {
	pattern, err := e.cache.Pattern(domain.PatternActiveHours)
	if err != nil {
		return nil, fmt.Errorf("rule %s: active_hours read failed: %w", rule.ID, err)
	}
	if pattern == nil {
		return nil, nil
	}

	activityLevel := pattern.HourCounts()[now.Hour()]
	if activityLevel < c.ActiveHourThreshold {
		return nil, nil
	}
	if !c.InterestMatch {
		return nil, nil
	}

	interests, err := e.cache.Pattern(domain.PatternInterests)
	if err != nil {
		return nil, fmt.Errorf("rule %s: interests read failed: %w", rule.ID, err)
	}
	if interests == nil {
		return nil, nil
	}

	return []Firing{{
		Rule:        rule,
		TriggerType: domain.RuleTypePattern,
		Input: ai.NotificationInput{
			ActivityLevel: activityLevel,
			Interests:     interests.StringList(),
		},
	}}, nil
}

// evaluateLearning fires when enough fresh insights have accumulated
// with sufficient confidence
func (e *Evaluator) evaluateLearning(rule *domain.TriggerRule, c *domain.LearningConditions) ([]Firing, error) {
	pattern, err := e.cache.Pattern(domain.PatternRecentInsights)
	if err != nil {
		return nil, fmt.Errorf("rule %s: recent_insights read failed: %w", rule.ID, err)
	}
	if pattern == nil {
		return nil, nil
	}

	insightCount := len(pattern.StringList())
	if insightCount < c.InsightCount || pattern.Confidence < c.ConfidenceThreshold {
		return nil, nil
	}

	log.Printf("[Evaluator] Learning trigger ready: %d insights at confidence %.2f", insightCount, pattern.Confidence)
	return []Firing{{
		Rule:        rule,
		TriggerType: domain.RuleTypeLearning,
		Input: ai.NotificationInput{
			InsightCount: insightCount,
			Confidence:   pattern.Confidence,
		},
	}}, nil
}
