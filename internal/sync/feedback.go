package sync

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"proactive-backend/internal/cache/domain"
	"proactive-backend/internal/cache/repository"
)

// Feedback closes the learning loop: user responses update the record,
// the originating rule's success rate, and the notification_timing
// pattern that biases future active-hours decisions.
type Feedback struct {
	cache repository.CacheStore
}

func NewFeedback(cache repository.CacheStore) *Feedback {
	return &Feedback{cache: cache}
}

// HandleResponse processes one user interaction with a sent
// notification. action is the raw interaction label from delivery.
func (f *Feedback) HandleResponse(notificationID, action string) error {
	rec, err := f.cache.FindNotification(notificationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Printf("[Feedback] Response for unknown notification %s ignored", notificationID)
			return nil
		}
		return fmt.Errorf("failed to load notification %s: %w", notificationID, err)
	}

	if rec.UserResponse != nil {
		// First response wins; duplicates must not re-teach the rule
		log.Printf("[Feedback] Notification %s already has a response, ignoring %q", notificationID, action)
		return nil
	}

	responseTime := time.Since(rec.SentAt).Seconds()
	if err := f.cache.UpdateResponse(notificationID, action, responseTime); err != nil {
		return fmt.Errorf("failed to record response for %s: %w", notificationID, err)
	}

	wasPositive := domain.PositiveResponse(action)

	// Manual notifications have no rule to teach
	if rec.TriggerRuleID != domain.ManualRuleID {
		if err := f.cache.UpdateTriggerSuccess(rec.TriggerRuleID, wasPositive); err != nil {
			log.Printf("[Feedback] Failed to update success rate for rule %s: %v", rec.TriggerRuleID, err)
		}
	}

	if wasPositive {
		f.reinforceTiming(rec.SentAt.Hour())
	}

	outcome := "negative"
	if wasPositive {
		outcome = "positive"
	}
	log.Printf("[Feedback] Learned from response: %s -> %s", action, outcome)
	return nil
}

// reinforceTiming increments the per-hour counter of the
// notification_timing pattern and nudges its confidence up, capped at 1
func (f *Feedback) reinforceTiming(hour int) {
	timing := map[string]int{}
	confidence := 0.5

	pattern, err := f.cache.Pattern(domain.PatternNotificationTiming)
	if err != nil {
		log.Printf("[Feedback] Failed to read notification_timing: %v", err)
		return
	}
	if pattern != nil {
		for h, count := range pattern.HourCounts() {
			timing[strconv.Itoa(h)] = count
		}
		confidence = pattern.Confidence
	}

	key := strconv.Itoa(hour)
	timing[key]++
	confidence = confidence + 0.1
	if confidence > 1.0 {
		confidence = 1.0
	}

	if err := f.cache.UpdatePattern(domain.PatternNotificationTiming, timing, confidence); err != nil {
		log.Printf("[Feedback] Failed to update notification_timing: %v", err)
	}
}
