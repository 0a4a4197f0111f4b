package ai

import (
	"context"
	"fmt"
)

// TemplateGenerator produces canned notification text without any model
// call. It is the last-resort provider and is also what latency-critical
// trigger types use first, so it must never fail.
type TemplateGenerator struct{}

func NewTemplateGenerator() *TemplateGenerator {
	return &TemplateGenerator{}
}

func (t *TemplateGenerator) GenerateNotification(_ context.Context, triggerType string, input NotificationInput, _, _ string) (string, error) {
	switch triggerType {
	case "calendar":
		summary := input.EventSummary
		if summary == "" {
			summary = "Event"
		}
		return fmt.Sprintf("Reminder: '%s' starts in %d minutes.", summary, input.MinutesUntil), nil

	case "goal":
		title := input.GoalTitle
		if title == "" {
			title = "Goal"
		}
		return fmt.Sprintf("Your goal '%s' hasn't been updated in %d days. How's it going?", title, input.DaysStale), nil

	case "pattern":
		if len(input.Interests) > 0 {
			return fmt.Sprintf("Based on your interest in %s, you might want to work on something related today.", input.Interests[0]), nil
		}
		return "You're typically active at this time. Anything you'd like to work on?", nil

	case "learning":
		return fmt.Sprintf("I've learned %d new things about your preferences. Want to see what I discovered?", input.InsightCount), nil
	}

	return "Proactive notification from your AI assistant.", nil
}
