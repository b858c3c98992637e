package verify

import (
	"time"

	"github.com/kamilpajak/visualgate/internal/pixeldiff"
	"github.com/kamilpajak/visualgate/pkg/models"
)

// FileResult is the outcome of a file-only comparison, as printed by the
// compare command.
type FileResult struct {
	ComponentID string                 `json:"component_id"`
	Verdict     models.Verdict         `json:"verdict"`
	PixelDiff   models.PixelDiffResult `json:"pixel_diff"`
	Timestamp   time.Time              `json:"timestamp"`
}

// CompareFiles diffs two image files and applies the threshold-only rule.
// There is no structure check and no escalation.
func CompareFiles(d *pixeldiff.Differ, componentID, designPath, actualPath string, pass, fail float64) (*FileResult, error) {
	if err := models.ValidateThresholds(pass, fail); err != nil {
		return nil, err
	}
	pixel, err := d.CompareFiles(componentID, designPath, actualPath)
	if err != nil {
		return nil, err
	}
	return &FileResult{
		ComponentID: componentID,
		Verdict:     ThresholdVerdict(pixel.DiffPercentage, pass, fail),
		PixelDiff:   *pixel,
		Timestamp:   time.Now().UTC(),
	}, nil
}

// VisualDiffResult widens r into a full result with a vacuous structure
// check and no judge verdict, for storage alongside live comparisons.
func (r *FileResult) VisualDiffResult() *models.VisualDiffResult {
	return &models.VisualDiffResult{
		ComponentID:    r.ComponentID,
		StructureCheck: models.VacuousStructureCheck(),
		PixelDiff:      r.PixelDiff,
		Verdict:        r.Verdict,
		Timestamp:      r.Timestamp,
	}
}
