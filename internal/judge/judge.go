// Package judge defines the semantic judge boundary: the prompt sent to a
// vision model, the fail-closed reply parser and the Judge implementations.
package judge

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/kamilpajak/visualgate/internal/llm"
	"github.com/kamilpajak/visualgate/pkg/models"
)

// Request is one design/implementation pair to classify.
type Request struct {
	ComponentName string
	DesignImage   []byte // PNG
	ActualImage   []byte // PNG
}

// Judge classifies a design/implementation pair.
type Judge interface {
	Judge(ctx context.Context, req Request) (*models.AIComparisonResult, error)
}

// LLMJudge asks a vision-capable model for a verdict.
type LLMJudge struct {
	client llm.Client
	log    zerolog.Logger
}

// NewLLMJudge creates a judge backed by client.
func NewLLMJudge(client llm.Client, log zerolog.Logger) *LLMJudge {
	return &LLMJudge{
		client: client,
		log:    log.With().Str("component", "judge").Str("provider", string(client.Provider())).Logger(),
	}
}

// Judge sends the prompt and both images to the model. Transport failures
// are returned; unparsable replies yield the fail-closed result and no error.
func (j *LLMJudge) Judge(ctx context.Context, req Request) (*models.AIComparisonResult, error) {
	if len(req.DesignImage) == 0 || len(req.ActualImage) == 0 {
		return nil, errors.New("judge request needs both images")
	}

	messages := []llm.Message{{
		Role:    "user",
		Content: BuildPrompt(req.ComponentName),
		Images: []llm.Image{
			{MediaType: "image/png", Data: req.DesignImage},
			{MediaType: "image/png", Data: req.ActualImage},
		},
	}}

	resp, err := j.client.Complete(ctx, messages)
	if err != nil {
		return nil, fmt.Errorf("judge request failed: %w", err)
	}

	j.log.Debug().
		Str("model", resp.Model).
		Int("input_tokens", resp.InputTokens).
		Int("output_tokens", resp.OutputTokens).
		Msg("judge replied")

	result, err := ParseResponse(resp.Content)
	if err != nil {
		j.log.Warn().Err(err).Str("component_name", req.ComponentName).Msg("falling back to significant_differences")
	}
	return result, nil
}

// RateLimited throttles calls to an underlying Judge.
type RateLimited struct {
	next    Judge
	limiter *rate.Limiter
}

// NewRateLimited allows at most perMinute calls per minute. A non-positive
// perMinute disables throttling.
func NewRateLimited(next Judge, perMinute int) *RateLimited {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Limit(float64(perMinute) / 60)
	}
	return &RateLimited{next: next, limiter: rate.NewLimiter(limit, 1)}
}

// Judge waits for a token, then delegates.
func (r *RateLimited) Judge(ctx context.Context, req Request) (*models.AIComparisonResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("judge rate limit: %w", err)
	}
	return r.next.Judge(ctx, req)
}

// Static returns canned results. It is safe for concurrent use.
type Static struct {
	Result *models.AIComparisonResult
	Err    error

	mu    sync.Mutex
	calls []Request
}

// Judge records req and returns the canned result.
func (s *Static) Judge(_ context.Context, req Request) (*models.AIComparisonResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Result, nil
}

// Calls returns the requests received so far.
func (s *Static) Calls() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.calls...)
}
