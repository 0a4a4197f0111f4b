package scheduler

import (
	"context"
	"fmt"
	"log"
	"time"

	"proactive-backend/internal/cache/domain"
	"proactive-backend/internal/cache/repository"
	"proactive-backend/internal/proactive/evaluator"
	"proactive-backend/pkg/ai"
	"proactive-backend/pkg/notify"
)

const (
	notificationTitle = "Proactive Assistant"
	generateTimeout   = 15 * time.Second
)

var defaultActions = []string{"View", "Dismiss"}

// Dispatcher turns a satisfied trigger into delivered content and a
// durable record. A failed generation or send leaves the rate limiter
// and rule state untouched, so the firing stays retryable on the next
// pass.
type Dispatcher struct {
	generator ai.Generator
	sender    notify.Sender
	cache     repository.CacheStore
	gate      *Gate
}

func NewDispatcher(generator ai.Generator, sender notify.Sender, cache repository.CacheStore, gate *Gate) *Dispatcher {
	return &Dispatcher{
		generator: generator,
		sender:    sender,
		cache:     cache,
		gate:      gate,
	}
}

// Dispatch composes, sends and records one notification. Returns true
// only when the notification was actually delivered and recorded.
func (d *Dispatcher) Dispatch(ctx context.Context, firing evaluator.Firing) (bool, error) {
	if d.gate.RateLimited() {
		return false, nil
	}

	genCtx, cancel := context.WithTimeout(ctx, generateTimeout)
	content, err := d.generator.GenerateNotification(
		genCtx,
		string(firing.TriggerType),
		firing.Input,
		string(firing.Rule.UserPreference),
		string(firing.Rule.UserPreference),
	)
	cancel()
	if err != nil {
		// Skip this firing; it was never sent so no state mutates
		return false, fmt.Errorf("content generation failed for rule %s: %w", firing.Rule.ID, err)
	}
	if content == "" {
		return false, nil
	}

	notificationID, err := d.sender.Send(ctx, notify.Notification{
		Title:    notificationTitle,
		Body:     content,
		Category: string(firing.TriggerType),
		Priority: string(firing.Rule.UserPreference),
		Actions:  defaultActions,
	})
	if err != nil {
		return false, fmt.Errorf("delivery failed for rule %s: %w", firing.Rule.ID, err)
	}

	now := time.Now()
	record := &domain.NotificationRecord{
		ID:            notificationID,
		TriggerRuleID: firing.Rule.ID,
		Content:       content,
		SentAt:        now,
	}
	if err := d.cache.Record(record); err != nil {
		log.Printf("[Dispatcher] Failed to record notification %s: %v", notificationID, err)
	}

	d.gate.RecordSent()
	if err := d.cache.MarkTriggered(firing.Rule.ID, now); err != nil {
		log.Printf("[Dispatcher] Failed to stamp last_triggered on rule %s: %v", firing.Rule.ID, err)
	}

	preview := content
	if len(preview) > 50 {
		preview = preview[:50]
	}
	log.Printf("[Dispatcher] Sent notification: %s...", preview)
	return true, nil
}

// SendImmediate delivers a manual notification outside the trigger
// pipeline. It bypasses the gate policy but still counts toward the
// hourly budget, and is recorded under the manual sentinel rule id.
func (d *Dispatcher) SendImmediate(ctx context.Context, title, message, priority string) (string, error) {
	if title == "" {
		title = notificationTitle
	}
	if priority == "" {
		priority = string(domain.PreferenceMedium)
	}

	notificationID, err := d.sender.Send(ctx, notify.Notification{
		Title:    title,
		Body:     message,
		Category: domain.ManualRuleID,
		Priority: priority,
		Actions:  defaultActions,
	})
	if err != nil {
		return "", fmt.Errorf("immediate delivery failed: %w", err)
	}

	record := &domain.NotificationRecord{
		ID:            notificationID,
		TriggerRuleID: domain.ManualRuleID,
		Content:       message,
		SentAt:        time.Now(),
	}
	if err := d.cache.Record(record); err != nil {
		log.Printf("[Dispatcher] Failed to record immediate notification %s: %v", notificationID, err)
	}

	d.gate.RecordSent()
	return notificationID, nil
}
