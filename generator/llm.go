package generator

import (
	"context"
	"fmt"
	"strings"

	"auto_blog_pipeline/config"
)

// LLMClient abstracts the text-generation service so stages can be tested
// against fakes.
type LLMClient interface {
	Complete(ctx context.Context, prompt Prompt) (string, error)
}

// LLMSettings is the provider-independent configuration handed to concrete clients.
type LLMSettings struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string
	APIVersion string
}

// Anthropic exposes an OpenAI-compatible chat endpoint.
const claudeCompatBaseURL = "https://api.anthropic.com/v1/"

var defaultModels = map[string]string{
	"openai":   "gpt-4o",
	"claude":   "claude-sonnet-4-20250514",
	"deepseek": "deepseek-chat",
}

// NewLLM builds the client named by cfg.Provider. Missing credentials surface
// as *config.ConfigurationError before any request is sent.
func NewLLM(cfg config.LLMConfig) (LLMClient, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	settings := &LLMSettings{
		Provider:   provider,
		Model:      cfg.Model,
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		APIVersion: cfg.APIVersion,
	}
	if settings.Model == "" {
		settings.Model = defaultModels[provider]
	}

	switch provider {
	case "mock":
		return MockLLM{}, nil
	case "openai":
		return NewOpenAILLMFromConfig(settings)
	case "claude":
		if settings.BaseURL == "" {
			settings.BaseURL = claudeCompatBaseURL
		}
		return NewOpenAILLMFromConfig(settings)
	case "deepseek":
		// DeepSeek only speaks the OpenAI protocol through an explicit endpoint.
		if settings.BaseURL == "" {
			return nil, &config.ConfigurationError{Field: "llm.base_url", Hint: "deepseek needs an OpenAI-compatible endpoint"}
		}
		return NewOpenAILLMFromConfig(settings)
	case "azure":
		return NewAzureLLMFromConfig(settings)
	default:
		return nil, fmt.Errorf("llm provider %q not supported", cfg.Provider)
	}
}
