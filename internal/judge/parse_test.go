package judge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/visualgate/pkg/models"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain JSON", `{"verdict": "match"}`, `{"verdict": "match"}`},
		{"json code fence", "Here:\n```json\n{\"verdict\": \"match\"}\n```\nDone.", `{"verdict": "match"}`},
		{"plain code fence", "```\n{\"verdict\": \"match\"}\n```", `{"verdict": "match"}`},
		{"surrounding text", "The result is {\"verdict\": \"match\"} as shown.", `{"verdict": "match"}`},
		{"nested", `{"outer": {"inner": "value"}}`, `{"outer": {"inner": "value"}}`},
		{"braces in strings", `{"summary": "uses } and { freely"}`, `{"summary": "uses } and { freely"}`},
		{"escaped quote", `{"summary": "say \"}\" loudly"} tail`, `{"summary": "say \"}\" loudly"}`},
		{"first of two", `{"a":1} {"b":2}`, `{"a":1}`},
		{"unbalanced then balanced", `{ oops {"a":1}`, `{"a":1}`},
		{"no JSON", "No JSON here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractJSON(tt.input))
		})
	}
}

func TestParseResponse_FencedMatch(t *testing.T) {
	raw := "Sure! ```json\n{\"verdict\":\"match\",\"confidence\":0.9,\"differences\":[]}\n```"

	got, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, models.AIVerdictMatch, got.Verdict)
	assert.InDelta(t, 0.9, got.Confidence, 1e-9)
	assert.Empty(t, got.Differences)
	assert.NotNil(t, got.Differences)
	assert.Equal(t, raw, got.RawResponse)
}

func TestParseResponse_NoJSONFailsClosed(t *testing.T) {
	raw := "I cannot compare these"

	got, err := ParseResponse(raw)
	require.Error(t, err)

	var perr *JudgeParseError
	require.True(t, errors.As(err, &perr))
	assert.ErrorIs(t, err, ErrNoJSON)

	assert.Equal(t, models.AIVerdictSignificantDifferences, got.Verdict)
	assert.Zero(t, got.Confidence)
	assert.Empty(t, got.Differences)
	assert.Equal(t, raw, got.RawResponse)
}

func TestParseResponse_FailsClosed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed", `{"verdict": "match", "confidence": }`},
		{"unknown verdict", `{"verdict": "looks fine", "confidence": 0.8}`},
		{"missing verdict", `{"confidence": 0.8}`},
		{"wrong type", `{"verdict": "match", "confidence": "high"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			var perr *JudgeParseError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, tt.raw, perr.Raw)
			assert.Equal(t, FailClosed(tt.raw), got)
		})
	}
}

func TestParseResponse_Normalizes(t *testing.T) {
	raw := `{"verdict":"minor_differences","confidence":1.7,"summary":"  close  ",
	"differences":[{"severity":"HIGH","area":"header","description":"wrong blue"},
	{"severity":"catastrophic","area":"footer","description":"gone"}]}`

	got, err := ParseResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, models.AIVerdictMinorDifferences, got.Verdict)
	assert.Equal(t, 1.0, got.Confidence)
	assert.Equal(t, "close", got.Summary)
	require.Len(t, got.Differences, 2)
	assert.Equal(t, models.SeverityHigh, got.Differences[0].Severity)
	assert.Equal(t, "header", got.Differences[0].Area)
	assert.Equal(t, models.SeverityMedium, got.Differences[1].Severity)

	got, err = ParseResponse(`{"verdict":"match","confidence":-3}`)
	require.NoError(t, err)
	assert.Zero(t, got.Confidence)
}

func TestBuildPrompt(t *testing.T) {
	a := BuildPrompt("PricingCard")
	assert.Equal(t, a, BuildPrompt("PricingCard"))
	assert.Contains(t, a, `"PricingCard"`)
	for _, key := range []string{`"verdict"`, `"confidence"`, `"differences"`, `"summary"`, "significant_differences"} {
		assert.Contains(t, a, key)
	}
	assert.NotEqual(t, a, BuildPrompt("Header"))
}
