package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/visualgate/pkg/models"
)

var at = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleResult() *models.VisualDiffResult {
	return &models.VisualDiffResult{
		ComponentID:    "hero",
		StructureCheck: models.VacuousStructureCheck(),
		PixelDiff:      models.PixelDiffResult{DiffPercentage: 7.25, DiffImagePath: "out/hero/diff.png"},
		Verdict:        models.VerdictNeedsReview,
		Timestamp:      at,
	}
}

func TestFromResult_NullableFields(t *testing.T) {
	r := sampleResult()
	r.PixelDiff.DiffImagePath = ""

	raw, err := json.Marshal(FromResult(r))
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Equal(t, "visual_diff_result", m["type"])
	assert.Equal(t, "hero", m["component_id"])
	assert.Equal(t, "needs_review", m["verdict"])
	assert.Equal(t, 7.25, m["pixel_diff_percentage"])
	assert.Equal(t, true, m["structure_passed"])
	assert.Contains(t, m, "ai_verdict")
	assert.Nil(t, m["ai_verdict"])
	assert.Contains(t, m, "diff_image")
	assert.Nil(t, m["diff_image"])
	assert.Equal(t, "2026-03-01T12:00:00Z", m["timestamp"])
}

func TestFromResult_WithJudge(t *testing.T) {
	r := sampleResult()
	r.AIComparison = &models.AIComparisonResult{Verdict: models.AIVerdictMinorDifferences}

	ev := FromResult(r)
	require.NotNil(t, ev.AIVerdict)
	assert.Equal(t, models.AIVerdictMinorDifferences, *ev.AIVerdict)
	require.NotNil(t, ev.DiffImage)
	assert.Equal(t, "out/hero/diff.png", *ev.DiffImage)

	// the projection does not alias the result
	r.AIComparison.Verdict = models.AIVerdictMatch
	assert.Equal(t, models.AIVerdictMinorDifferences, *ev.AIVerdict)
}

func TestTextEmitter(t *testing.T) {
	var buf bytes.Buffer
	e := &TextEmitter{W: &buf}

	e.Emit(Started("hero", at))
	e.Emit(FromResult(sampleResult()))
	e.Emit(Failed("hero", errors.New("boom"), at))

	assert.Equal(t, "[hero] comparing\n[hero] needs_review  diff=7.25%  structure=true\n[hero] error: boom\n", buf.String())
}
