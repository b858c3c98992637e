package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConversation = []Message{
	{Role: "system", Content: "be strict"},
	{Role: "user", Content: "compare", Images: []Image{{MediaType: "image/png", Data: []byte("png-bytes")}}},
}

func capture(t *testing.T, reply string, got *map[string]any, headers *http.Header) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, got))
		*headers = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAnthropicClient_Complete(t *testing.T) {
	var got map[string]any
	var hdr http.Header
	srv := capture(t, `{"model":"claude-x","content":[{"type":"text","text":"{\"verdict\":\"match\"}"}],"usage":{"input_tokens":10,"output_tokens":3}}`, &got, &hdr)

	c := NewAnthropicClient("key-a", "claude-x", WithBaseURL(srv.URL))
	resp, err := c.Complete(context.Background(), testConversation)
	require.NoError(t, err)

	assert.Equal(t, `{"verdict":"match"}`, resp.Content)
	assert.Equal(t, 10, resp.InputTokens)
	assert.Equal(t, 3, resp.OutputTokens)
	assert.Equal(t, "key-a", hdr.Get("x-api-key"))
	assert.Equal(t, "be strict", got["system"])

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 1)
	blocks := msgs[0].(map[string]any)["content"].([]any)
	require.Len(t, blocks, 2)
	img := blocks[0].(map[string]any)
	assert.Equal(t, "image", img["type"])
	src := img["source"].(map[string]any)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("png-bytes")), src["data"])
	assert.Equal(t, "image/png", src["media_type"])
}

func TestGoogleClient_Complete(t *testing.T) {
	var got map[string]any
	var hdr http.Header
	srv := capture(t, `{"candidates":[{"content":{"parts":[{"text":"ok"}]}}],"usageMetadata":{"promptTokenCount":7,"candidatesTokenCount":1}}`, &got, &hdr)

	c := NewGoogleClient("key-g", "gemini-x", WithBaseURL(srv.URL))
	resp, err := c.Complete(context.Background(), testConversation)
	require.NoError(t, err)

	assert.Equal(t, "ok", resp.Content)
	assert.Equal(t, "gemini-x", resp.Model)
	assert.Equal(t, "key-g", hdr.Get("x-goog-api-key"))
	assert.Contains(t, got, "systemInstruction")

	contents := got["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 2)
	assert.Equal(t, "compare", parts[0].(map[string]any)["text"])
	assert.Contains(t, parts[1].(map[string]any), "inlineData")
}

func TestGoogleClient_NoCandidates(t *testing.T) {
	var got map[string]any
	var hdr http.Header
	srv := capture(t, `{"candidates":[]}`, &got, &hdr)

	_, err := NewGoogleClient("k", "m", WithBaseURL(srv.URL)).Complete(context.Background(), testConversation)
	assert.Error(t, err)
}

func TestOpenAIClient_Complete(t *testing.T) {
	var got map[string]any
	var hdr http.Header
	srv := capture(t, `{"model":"gpt-x","choices":[{"message":{"content":"hi"}}],"usage":{"prompt_tokens":5,"completion_tokens":2}}`, &got, &hdr)

	c := NewOpenAIClient("key-o", "gpt-x", WithBaseURL(srv.URL))
	resp, err := c.Complete(context.Background(), testConversation)
	require.NoError(t, err)

	assert.Equal(t, "hi", resp.Content)
	assert.Equal(t, "Bearer key-o", hdr.Get("Authorization"))

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 2)
	parts := msgs[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	url := parts[1].(map[string]any)["image_url"].(map[string]any)["url"].(string)
	assert.Contains(t, url, "data:image/png;base64,")
}

func TestComplete_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewOpenAIClient("k", "m", WithBaseURL(srv.URL)).Complete(context.Background(), testConversation)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestNewClient(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "from-env")

	_, err := NewClient(ProviderGoogle, "", "")
	assert.ErrorContains(t, err, "GOOGLE_API_KEY")

	c, err := NewClient(ProviderAnthropic, "", "")
	require.NoError(t, err)
	assert.Equal(t, ProviderAnthropic, c.Provider())
	assert.Equal(t, DefaultModel(ProviderAnthropic), c.Model())

	c, err = NewClient(ProviderOpenAI, "gpt-custom", "explicit")
	require.NoError(t, err)
	assert.Equal(t, "gpt-custom", c.Model())

	_, err = NewClient("bogus", "", "k")
	assert.ErrorContains(t, err, "unknown provider")
}
