package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
)

// OpenAIClient implements the Client interface for OpenAI
type OpenAIClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
	baseURL    string
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(apiKey, model string, opts ...Option) *OpenAIClient {
	o := buildOptions("https://api.openai.com/v1", opts)
	return &OpenAIClient{
		apiKey:     apiKey,
		model:      model,
		httpClient: o.httpClient,
		baseURL:    o.baseURL,
	}
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIMessage struct {
	Role    string       `json:"role"`
	Content []openAIPart `json:"content"`
}

type openAIPart struct {
	Type     string          `json:"type"`
	Text     string          `json:"text,omitempty"`
	ImageURL *openAIImageURL `json:"image_url,omitempty"`
}

type openAIImageURL struct {
	URL string `json:"url"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// Complete sends a request to OpenAI
func (c *OpenAIClient) Complete(ctx context.Context, messages []Message) (*Response, error) {
	msgs := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		parts := make([]openAIPart, 0, len(msg.Images)+1)
		if msg.Content != "" {
			parts = append(parts, openAIPart{Type: "text", Text: msg.Content})
		}
		for _, img := range msg.Images {
			parts = append(parts, openAIPart{
				Type: "image_url",
				ImageURL: &openAIImageURL{
					URL: "data:" + img.MediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data),
				},
			})
		}
		msgs = append(msgs, openAIMessage{Role: msg.Role, Content: parts})
	}

	reqBody := openAIRequest{
		Model:       c.model,
		Messages:    msgs,
		Temperature: 0.1,
		MaxTokens:   2048,
	}

	headers := map[string]string{"Authorization": "Bearer " + c.apiKey}
	var resp openAIResponse
	if err := postJSON(ctx, c.httpClient, c.baseURL+"/chat/completions", headers, reqBody, &resp); err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("no response choices")
	}

	return &Response{
		Content:      resp.Choices[0].Message.Content,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
		Model:        resp.Model,
	}, nil
}

// Provider returns the provider name
func (c *OpenAIClient) Provider() Provider {
	return ProviderOpenAI
}

// Model returns the model name
func (c *OpenAIClient) Model() string {
	return c.model
}
