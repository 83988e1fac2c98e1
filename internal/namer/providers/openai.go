package providers

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider implements TextGenerator for any OpenAI-compatible chat
// completions endpoint, including Groq.
type OpenAIProvider struct {
	Config
	name   string
	client openai.Client
}

// NewOpenAIProvider creates a provider for the OpenAI API.
func NewOpenAIProvider(config Config) *OpenAIProvider {
	if config.ModelID == "" {
		config.ModelID = DefaultOpenAIModel
	}
	return newOpenAICompatible(ProviderOpenAI, config)
}

// NewGroqProvider creates a provider for Groq's OpenAI-compatible API.
func NewGroqProvider(config Config) *OpenAIProvider {
	if config.BaseURL == "" {
		config.BaseURL = GroqBaseURL
	}
	if config.ModelID == "" {
		config.ModelID = DefaultGroqModel
	}
	return newOpenAICompatible(ProviderGroq, config)
}

func newOpenAICompatible(name string, config Config) *OpenAIProvider {
	if config.MaxTokens <= 0 {
		config.MaxTokens = DefaultMaxTokens
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &OpenAIProvider{
		Config: config,
		name:   name,
		client: openai.NewClient(opts...),
	}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return p.name
}

// Generate sends prompt as a single user message and returns the first choice.
func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if p.APIKey == "" {
		return "", errors.New(p.name + " API key not provided")
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.ModelID),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(p.temperature()),
		MaxTokens:   openai.Int(int64(p.MaxTokens)),
	})
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from " + p.name)
	}
	return resp.Choices[0].Message.Content, nil
}
