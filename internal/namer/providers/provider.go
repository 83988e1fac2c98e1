// Package providers contains the text-generation backends used to name
// topic clusters.
package providers

import (
	"context"
	"os"
	"time"
)

const (
	// Provider names
	ProviderGroq      = "groq"
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	// Default settings
	DefaultTimeout     = 30 * time.Second
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 20

	GroqBaseURL           = "https://api.groq.com/openai/v1"
	DefaultGroqModel      = "llama-3.1-8b-instant"
	DefaultOpenAIModel    = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-5-haiku-latest"
)

// TextGenerator produces a short completion for a prompt.
type TextGenerator interface {
	// Generate returns the raw completion text for prompt.
	Generate(ctx context.Context, prompt string) (string, error)

	// Name returns the provider name
	Name() string
}

// Config holds common configuration for text-generation providers
type Config struct {
	APIKey      string
	ModelID     string
	BaseURL     string
	Temperature *float64 // nil uses DefaultTemperature
	MaxTokens   int
}

func (c Config) temperature() float64 {
	if c.Temperature == nil {
		return DefaultTemperature
	}
	return *c.Temperature
}

// APIKeyEnv returns the environment variable holding the credential for a
// provider, or "" for unknown providers.
func APIKeyEnv(providerName string) string {
	switch providerName {
	case ProviderGroq:
		return "GROQ_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	default:
		return ""
	}
}

// ResolveAPIKey returns explicit when set, otherwise the provider's
// environment variable.
func ResolveAPIKey(providerName, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := APIKeyEnv(providerName); env != "" {
		return os.Getenv(env)
	}
	return ""
}
