// Package llm provides minimal vision-capable chat clients for Google Gemini,
// Anthropic and OpenAI over their REST APIs.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
)

// Provider represents an LLM provider
type Provider string

const (
	ProviderGoogle    Provider = "google"
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Image is an inline image attached to a message.
type Image struct {
	MediaType string // e.g. "image/png"
	Data      []byte
}

// Message is one chat turn. Role is "system", "user" or "assistant".
type Message struct {
	Role    string
	Content string
	Images  []Image
}

// Response is a provider-neutral completion.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
}

// Client sends a conversation to a model and returns its reply.
type Client interface {
	Complete(ctx context.Context, messages []Message) (*Response, error)
	Provider() Provider
	Model() string
}

// Option customizes a provider client.
type Option func(*options)

type options struct {
	baseURL    string
	httpClient *http.Client
}

// WithBaseURL overrides the provider API root (used by tests and proxies).
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

func buildOptions(defaultBaseURL string, opts []Option) options {
	o := options{baseURL: defaultBaseURL, httpClient: &http.Client{}}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// DefaultModel returns the vision model used when none is configured.
func DefaultModel(p Provider) string {
	switch p {
	case ProviderAnthropic:
		return "claude-sonnet-4-5"
	case ProviderOpenAI:
		return "gpt-4o"
	default:
		return "gemini-2.5-flash"
	}
}

// APIKeyEnv names the environment variable holding the provider's key.
func APIKeyEnv(p Provider) string {
	switch p {
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return "GOOGLE_API_KEY"
	}
}

// NewClient creates a client for provider. Empty model and apiKey fall back
// to DefaultModel and the provider's API key environment variable.
func NewClient(provider Provider, model, apiKey string, opts ...Option) (Client, error) {
	if model == "" {
		model = DefaultModel(provider)
	}
	if apiKey == "" {
		apiKey = os.Getenv(APIKeyEnv(provider))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable required", APIKeyEnv(provider))
	}

	switch provider {
	case ProviderGoogle:
		return NewGoogleClient(apiKey, model, opts...), nil
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey, model, opts...), nil
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey, model, opts...), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (google, openai, anthropic)", provider)
	}
}

// splitSystem separates the system prompt from the conversation turns.
func splitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == "system" {
			system = m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
