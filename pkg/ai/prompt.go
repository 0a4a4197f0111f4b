package ai

import (
	"fmt"
	"strings"
)

// BuildPrompt renders the per-trigger-type prompt shared by all model
// providers so switching providers never changes notification tone.
func BuildPrompt(triggerType string, input NotificationInput) (string, error) {
	switch triggerType {
	case "calendar":
		return fmt.Sprintf(
			"Generate a brief, helpful notification message (max 2 sentences) to remind the user about their upcoming event: '%s' in %d minutes.",
			input.EventSummary, input.MinutesUntil), nil

	case "goal":
		return fmt.Sprintf(
			"Generate a brief, motivating notification message (max 2 sentences) to remind the user about their goal: '%s' which hasn't been updated in %d days.",
			input.GoalTitle, input.DaysStale), nil

	case "pattern":
		interests := input.Interests
		if len(interests) > 3 {
			interests = interests[:3]
		}
		return fmt.Sprintf(
			"Generate a brief, helpful notification message (max 2 sentences) based on the user's interests: %s. Suggest something relevant they might want to do.",
			strings.Join(interests, ", ")), nil

	case "learning":
		return fmt.Sprintf(
			"Generate a brief notification message (max 2 sentences) letting the user know you've learned %d new things about their preferences and asking if they'd like to see them.",
			input.InsightCount), nil
	}

	return "", fmt.Errorf("no prompt for trigger type %q", triggerType)
}
