package ai

import "context"

// NotificationInput carries the trigger context a provider needs to write
// notification text. Only the fields for the firing trigger type are set.
type NotificationInput struct {
	// calendar
	EventSummary string
	MinutesUntil int

	// goal
	GoalTitle string
	DaysStale int

	// pattern
	ActivityLevel int
	Interests     []string

	// learning
	InsightCount int
	Confidence   float64
}

// Generator is the interface for notification content generation.
// Implement this interface to add new AI providers (Gemini, Ollama, OpenAI, etc.)
// Returning an empty string without error means "no content"; callers treat
// both that and errors as a soft failure and skip the firing.
type Generator interface {
	GenerateNotification(ctx context.Context, triggerType string, input NotificationInput, userPreference, priority string) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini   ProviderType = "gemini"
	ProviderOllama   ProviderType = "ollama"
	ProviderTemplate ProviderType = "template"
	ProviderAuto     ProviderType = "auto"
)
