package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// MockResponseConfig holds configuration for mock API responses
type MockResponseConfig struct {
	StatusCode   int
	ResponseBody interface{}
	Headers      map[string]string
}

// MockServer creates a test server that returns the configured response
func MockServer(t *testing.T, config MockResponseConfig) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range config.Headers {
			w.Header().Set(k, v)
		}
		if _, exists := config.Headers["Content-Type"]; !exists {
			w.Header().Set("Content-Type", "application/json")
		}

		w.WriteHeader(config.StatusCode)

		if config.ResponseBody != nil {
			var respBytes []byte
			var err error

			switch body := config.ResponseBody.(type) {
			case string:
				respBytes = []byte(body)
			case []byte:
				respBytes = body
			default:
				respBytes, err = json.Marshal(body)
				if err != nil {
					t.Errorf("Failed to marshal mock response: %v", err)
					return
				}
			}

			if _, err := w.Write(respBytes); err != nil {
				t.Errorf("Failed to write response body: %v", err)
			}
		}
	}))
}

// ChatCompletionBody builds an OpenAI-style chat completion response.
func ChatCompletionBody(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-test",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   DefaultGroqModel,
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

// TestProvider is a TextGenerator that answers through a function and
// records the prompts it receives. It is safe for concurrent use.
type TestProvider struct {
	name    string
	respond func(prompt string) (string, error)

	mu      sync.Mutex
	prompts []string
}

// NewTestProvider creates a TestProvider that always returns the given values.
func NewTestProvider(name, returnString string, returnError error) *TestProvider {
	return NewFuncProvider(name, func(string) (string, error) {
		return returnString, returnError
	})
}

// NewFuncProvider creates a TestProvider backed by respond.
func NewFuncProvider(name string, respond func(prompt string) (string, error)) *TestProvider {
	return &TestProvider{name: name, respond: respond}
}

// Name returns the provider name
func (p *TestProvider) Name() string {
	return p.name
}

// Generate records the prompt and returns the configured response.
func (p *TestProvider) Generate(ctx context.Context, prompt string) (string, error) {
	p.mu.Lock()
	p.prompts = append(p.prompts, prompt)
	p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.respond(prompt)
}

// Prompts returns a copy of the prompts received so far.
func (p *TestProvider) Prompts() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.prompts...)
}
