package ai

import (
	"context"
	"fmt"

	"proactive-backend/pkg/gemini"
)

// Config holds AI provider configuration
type Config struct {
	Provider ProviderType // "gemini", "ollama", "template" or "auto"

	// Gemini config
	GeminiAPIKey string

	// Ollama config
	OllamaBaseURL string // e.g., "http://localhost:11434"
	OllamaModel   string // e.g., "llama3", "mistral"
}

// geminiGenerator adapts the raw Gemini text client to Generator
type geminiGenerator struct {
	svc *gemini.GeminiService
}

func (g *geminiGenerator) GenerateNotification(ctx context.Context, triggerType string, input NotificationInput, userPreference, priority string) (string, error) {
	prompt, err := BuildPrompt(triggerType, input)
	if err != nil {
		return "", err
	}
	return g.svc.GenerateText(ctx, prompt)
}

// NewGenerator creates a Generator based on the config.
// This is the factory function - switch AI provider by changing config.Provider
func NewGenerator(cfg Config) (Generator, error) {
	switch cfg.Provider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return &geminiGenerator{svc: gemini.NewGeminiService(cfg.GeminiAPIKey)}, nil

	case ProviderOllama:
		return NewOllamaGenerator(cfg.OllamaBaseURL, cfg.OllamaModel), nil

	case ProviderTemplate:
		return NewTemplateGenerator(), nil

	default:
		// Auto: fallback routing across whatever is configured
		var geminiGen Generator
		if cfg.GeminiAPIKey != "" {
			geminiGen = &geminiGenerator{svc: gemini.NewGeminiService(cfg.GeminiAPIKey)}
		}
		return NewFallbackGenerator(geminiGen, NewOllamaGenerator(cfg.OllamaBaseURL, cfg.OllamaModel)), nil
	}
}
