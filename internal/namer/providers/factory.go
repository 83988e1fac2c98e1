package providers

import (
	"fmt"
)

// ProviderFactory creates and returns text-generation providers
type ProviderFactory struct {
	// ProviderConfigs stores configuration for each provider
	ProviderConfigs map[string]Config
}

// NewProviderFactory creates a new provider factory
func NewProviderFactory(configs map[string]Config) *ProviderFactory {
	return &ProviderFactory{
		ProviderConfigs: configs,
	}
}

// GetProvider returns an initialized provider for the specified name. It
// fails when the provider is unknown or has no credential.
func (f *ProviderFactory) GetProvider(providerName string) (TextGenerator, error) {
	config, exists := f.ProviderConfigs[providerName]
	if !exists {
		return nil, fmt.Errorf("configuration for provider '%s' not found", providerName)
	}
	if config.APIKey == "" {
		return nil, fmt.Errorf("no API key for provider '%s'", providerName)
	}

	switch providerName {
	case ProviderGroq:
		return NewGroqProvider(config), nil
	case ProviderOpenAI:
		return NewOpenAIProvider(config), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(config), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}
}
