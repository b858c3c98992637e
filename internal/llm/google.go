package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// GoogleClient implements the Client interface for Google Gemini
type GoogleClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
}

// NewGoogleClient creates a new Google Gemini client
func NewGoogleClient(apiKey, model string, opts ...Option) *GoogleClient {
	o := buildOptions("https://generativelanguage.googleapis.com/v1beta", opts)
	return &GoogleClient{
		apiKey:     apiKey,
		model:      model,
		httpClient: o.httpClient,
		baseURL:    o.baseURL,
	}
}

type googleRequest struct {
	SystemInstruction *googleContent         `json:"systemInstruction,omitempty"`
	Contents          []googleContent        `json:"contents"`
	GenerationConfig  googleGenerationConfig `json:"generationConfig"`
}

type googleContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []googlePart `json:"parts"`
}

type googlePart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *googleInlineData `json:"inlineData,omitempty"`
}

type googleInlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type googleGenerationConfig struct {
	Temperature     float64 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type googleResponse struct {
	Candidates []struct {
		Content googleContent `json:"content"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
}

// Complete sends a request to Google Gemini
func (c *GoogleClient) Complete(ctx context.Context, messages []Message) (*Response, error) {
	system, turns := splitSystem(messages)

	contents := make([]googleContent, 0, len(turns))
	for _, msg := range turns {
		role := msg.Role
		// Gemini uses "model" instead of "assistant"
		if role == "assistant" {
			role = "model"
		}
		parts := make([]googlePart, 0, len(msg.Images)+1)
		if msg.Content != "" {
			parts = append(parts, googlePart{Text: msg.Content})
		}
		for _, img := range msg.Images {
			parts = append(parts, googlePart{InlineData: &googleInlineData{
				MimeType: img.MediaType,
				Data:     base64.StdEncoding.EncodeToString(img.Data),
			}})
		}
		contents = append(contents, googleContent{Role: role, Parts: parts})
	}

	reqBody := googleRequest{
		Contents: contents,
		GenerationConfig: googleGenerationConfig{
			Temperature:     0.1,
			MaxOutputTokens: 2048,
		},
	}
	if system != "" {
		reqBody.SystemInstruction = &googleContent{Parts: []googlePart{{Text: system}}}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, c.model)
	headers := map[string]string{"x-goog-api-key": c.apiKey}
	var resp googleResponse
	if err := postJSON(ctx, c.httpClient, url, headers, reqBody, &resp); err != nil {
		return nil, err
	}

	if len(resp.Candidates) == 0 {
		return nil, errors.New("no response candidates")
	}

	var content strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		content.WriteString(part.Text)
	}

	return &Response{
		Content:      content.String(),
		InputTokens:  resp.UsageMetadata.PromptTokenCount,
		OutputTokens: resp.UsageMetadata.CandidatesTokenCount,
		Model:        c.model,
	}, nil
}

// Provider returns the provider name
func (c *GoogleClient) Provider() Provider {
	return ProviderGoogle
}

// Model returns the model name
func (c *GoogleClient) Model() string {
	return c.model
}
