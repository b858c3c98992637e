package judge

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/visualgate/internal/llm"
	"github.com/kamilpajak/visualgate/pkg/models"
)

type fakeClient struct {
	reply string
	err   error
	got   []llm.Message
}

func (f *fakeClient) Complete(_ context.Context, messages []llm.Message) (*llm.Response, error) {
	f.got = messages
	if f.err != nil {
		return nil, f.err
	}
	return &llm.Response{Content: f.reply, Model: "fake"}, nil
}

func (f *fakeClient) Provider() llm.Provider { return llm.ProviderGoogle }
func (f *fakeClient) Model() string          { return "fake" }

func request() Request {
	return Request{ComponentName: "Card", DesignImage: []byte("design"), ActualImage: []byte("actual")}
}

func TestLLMJudge_SendsPromptAndImages(t *testing.T) {
	client := &fakeClient{reply: `{"verdict":"match","confidence":0.95,"differences":[]}`}
	j := NewLLMJudge(client, zerolog.Nop())

	got, err := j.Judge(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, models.AIVerdictMatch, got.Verdict)

	require.Len(t, client.got, 1)
	msg := client.got[0]
	assert.Equal(t, BuildPrompt("Card"), msg.Content)
	require.Len(t, msg.Images, 2)
	assert.Equal(t, []byte("design"), msg.Images[0].Data)
	assert.Equal(t, []byte("actual"), msg.Images[1].Data)
}

func TestLLMJudge_UnparsableReplyFailsClosed(t *testing.T) {
	j := NewLLMJudge(&fakeClient{reply: "I cannot compare these"}, zerolog.Nop())

	got, err := j.Judge(context.Background(), request())
	require.NoError(t, err)
	assert.Equal(t, models.AIVerdictSignificantDifferences, got.Verdict)
	assert.Equal(t, "I cannot compare these", got.RawResponse)
}

func TestLLMJudge_TransportError(t *testing.T) {
	boom := errors.New("connection reset")
	j := NewLLMJudge(&fakeClient{err: boom}, zerolog.Nop())

	got, err := j.Judge(context.Background(), request())
	assert.Nil(t, got)
	assert.ErrorIs(t, err, boom)
}

func TestLLMJudge_MissingImages(t *testing.T) {
	j := NewLLMJudge(&fakeClient{}, zerolog.Nop())
	_, err := j.Judge(context.Background(), Request{ComponentName: "Card"})
	assert.Error(t, err)
}

type countingJudge struct{ n atomic.Int32 }

func (c *countingJudge) Judge(context.Context, Request) (*models.AIComparisonResult, error) {
	c.n.Add(1)
	return FailClosed(""), nil
}

func TestRateLimited(t *testing.T) {
	inner := &countingJudge{}
	// one call per minute: the burst token is spent by the first call
	limited := NewRateLimited(inner, 1)

	_, err := limited.Judge(context.Background(), request())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Judge(ctx, request())
	assert.Error(t, err)
	assert.Equal(t, int32(1), inner.n.Load())
}

func TestRateLimited_Unlimited(t *testing.T) {
	inner := &countingJudge{}
	limited := NewRateLimited(inner, 0)
	for range 5 {
		_, err := limited.Judge(context.Background(), request())
		require.NoError(t, err)
	}
	assert.Equal(t, int32(5), inner.n.Load())
}

func TestStatic(t *testing.T) {
	canned := &models.AIComparisonResult{Verdict: models.AIVerdictMinorDifferences}
	s := &Static{Result: canned}

	got, err := s.Judge(context.Background(), request())
	require.NoError(t, err)
	assert.Same(t, canned, got)
	assert.Len(t, s.Calls(), 1)
}
