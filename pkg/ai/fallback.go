package ai

import (
	"context"
	"fmt"
	"log"
	"net"
	"strings"
)

// FallbackGenerator implements smart provider routing with fallback:
// - calendar/goal triggers: template first (latency-critical reminders
//   must never wait on a model), no model call at all
// - pattern/learning triggers: Gemini first (better quality), fallback
//   to Ollama on quota/connection errors, template as last resort
type FallbackGenerator struct {
	gemini   Generator
	ollama   *OllamaGenerator
	template *TemplateGenerator
}

// NewFallbackGenerator creates a fallback generator over the available providers
func NewFallbackGenerator(gemini Generator, ollama *OllamaGenerator) *FallbackGenerator {
	return &FallbackGenerator{
		gemini:   gemini,
		ollama:   ollama,
		template: NewTemplateGenerator(),
	}
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	if _, ok := err.(net.Error); ok {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}
	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
	}
	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// GenerateNotification implements Generator
func (f *FallbackGenerator) GenerateNotification(ctx context.Context, triggerType string, input NotificationInput, userPreference, priority string) (string, error) {
	// Time-critical reminders skip the model path entirely
	if triggerType == "calendar" || triggerType == "goal" {
		return f.template.GenerateNotification(ctx, triggerType, input, userPreference, priority)
	}

	if f.gemini != nil {
		result, err := f.gemini.GenerateNotification(ctx, triggerType, input, userPreference, priority)
		if err == nil && result != "" {
			return result, nil
		}

		if isQuotaError(err) {
			log.Printf("[AI] Gemini quota exhausted: %v, falling back to Ollama", err)
		} else if err != nil {
			log.Printf("[AI] Gemini error: %v, falling back to Ollama", err)
		}
	}

	if f.ollama != nil {
		result, err := f.ollama.GenerateNotification(ctx, triggerType, input, userPreference, priority)
		if err == nil && result != "" {
			return result, nil
		}

		if isConnectionError(err) {
			log.Printf("[AI] Ollama connection failed: %v, using template", err)
		} else if err != nil {
			log.Printf("[AI] Ollama error: %v, using template", err)
		}
	}

	// Deadline may already be near; template text beats no notification
	result, err := f.template.GenerateNotification(ctx, triggerType, input, userPreference, priority)
	if err != nil {
		return "", fmt.Errorf("all providers failed: %w", err)
	}
	return result, nil
}
