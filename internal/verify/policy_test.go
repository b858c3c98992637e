package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kamilpajak/visualgate/pkg/models"
)

func ai(v models.AIVerdict) *models.AIComparisonResult {
	return &models.AIComparisonResult{Verdict: v}
}

func TestReduceVerdict(t *testing.T) {
	tests := []struct {
		name      string
		structure bool
		pct       float64
		judge     *models.AIComparisonResult
		want      models.Verdict
	}{
		{"below pass", true, 3, nil, models.VerdictPass},
		{"above fail", true, 20, nil, models.VerdictFail},
		{"gray zone unjudged", true, 10, nil, models.VerdictNeedsReview},
		{"gray zone match", true, 10, ai(models.AIVerdictMatch), models.VerdictPass},
		{"gray zone minor", true, 10, ai(models.AIVerdictMinorDifferences), models.VerdictNeedsReview},
		{"gray zone significant", true, 10, ai(models.AIVerdictSignificantDifferences), models.VerdictFail},
		{"pass boundary is gray", true, 5, nil, models.VerdictNeedsReview},
		{"fail boundary is gray", true, 15, nil, models.VerdictNeedsReview},
		{"structure veto at zero", false, 0, nil, models.VerdictFail},
		{"structure veto beats judge", false, 10, ai(models.AIVerdictMatch), models.VerdictFail},
		{"judge ignored below pass", true, 1, ai(models.AIVerdictSignificantDifferences), models.VerdictPass},
		{"judge ignored above fail", true, 40, ai(models.AIVerdictMatch), models.VerdictFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReduceVerdict(tt.structure, tt.pct, 5, 15, tt.judge))
		})
	}
}

func TestShouldEscalate(t *testing.T) {
	assert.False(t, ShouldEscalate(false, 4.99, 5, 15))
	assert.True(t, ShouldEscalate(false, 5, 5, 15))
	assert.True(t, ShouldEscalate(false, 15, 5, 15))
	assert.False(t, ShouldEscalate(false, 15.01, 5, 15))
	assert.True(t, ShouldEscalate(true, 0, 5, 15))
	assert.True(t, ShouldEscalate(true, 99, 5, 15))
}

func TestThresholdVerdict(t *testing.T) {
	assert.Equal(t, models.VerdictPass, ThresholdVerdict(0, 5, 15))
	assert.Equal(t, models.VerdictNeedsReview, ThresholdVerdict(10, 5, 15))
	assert.Equal(t, models.VerdictFail, ThresholdVerdict(40, 5, 15))
}
