package pixeldiff

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/kamilpajak/visualgate/internal/imaging"
	"github.com/kamilpajak/visualgate/pkg/models"
	"github.com/rs/zerolog"
)

// Output file names inside each component directory.
const (
	ActualFileName = "actual.png"
	DiffFileName   = "diff.png"
)

// Differ runs comparisons and persists the actual capture and the highlight
// image under OutputDir/<componentID>/.
type Differ struct {
	OutputDir string
	Threshold float64 // zero means DefaultThreshold
	Log       zerolog.Logger
}

// New creates a Differ writing under outputDir with the default threshold.
func New(outputDir string, log zerolog.Logger) *Differ {
	return &Differ{
		OutputDir: outputDir,
		Threshold: DefaultThreshold,
		Log:       log.With().Str("component", "pixeldiff").Logger(),
	}
}

// CompareFiles compares a design PNG with an implementation PNG on disk.
func (d *Differ) CompareFiles(componentID, designPath, actualPath string) (*models.PixelDiffResult, error) {
	actual, err := imaging.Load(actualPath)
	if err != nil {
		return nil, err
	}
	return d.CompareBitmap(componentID, designPath, actual)
}

// CompareBitmap compares the design PNG at designPath with an in-memory
// implementation capture. The capture defines the comparison resolution;
// the design is resampled to it when the sizes differ.
func (d *Differ) CompareBitmap(componentID, designPath string, actual *imaging.Bitmap) (*models.PixelDiffResult, error) {
	design, err := imaging.Load(designPath)
	if err != nil {
		return nil, err
	}

	if !design.SameSize(actual) {
		d.Log.Debug().
			Str("component_id", componentID).
			Int("design_w", design.Width).Int("design_h", design.Height).
			Int("actual_w", actual.Width).Int("actual_h", actual.Height).
			Msg("Resampling design to capture size")
		design = imaging.Resize(design, actual.Width, actual.Height)
	}

	res, err := Diff(design, actual, d.threshold())
	if err != nil {
		return nil, err
	}

	dir := ComponentDir(d.OutputDir, componentID)
	actualOut := filepath.Join(dir, ActualFileName)
	diffOut := filepath.Join(dir, DiffFileName)

	if err := actual.Save(actualOut); err != nil {
		return nil, fmt.Errorf("failed to save actual capture: %w", err)
	}
	if err := res.Highlight.Save(diffOut); err != nil {
		return nil, fmt.Errorf("failed to save diff image: %w", err)
	}

	result := &models.PixelDiffResult{
		DiffPercentage:    Percentage(res.DiffPixels, res.TotalPixels),
		TotalPixels:       res.TotalPixels,
		DiffPixels:        res.DiffPixels,
		DiffImagePath:     diffOut,
		ActualImagePath:   actualOut,
		ExpectedImagePath: designPath,
	}

	d.Log.Debug().
		Str("component_id", componentID).
		Int("diff_pixels", result.DiffPixels).
		Int("total_pixels", result.TotalPixels).
		Float64("diff_percentage", result.DiffPercentage).
		Msg("Pixel diff complete")

	return result, nil
}

func (d *Differ) threshold() float64 {
	if d.Threshold <= 0 {
		return DefaultThreshold
	}
	return d.Threshold
}

// Percentage returns diff/total*100 rounded to two decimals; 0 when total is 0.
func Percentage(diff, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(diff)/float64(total)*100*100) / 100
}

// ComponentDir returns the per-component output directory. The component ID
// is reduced to a single safe path segment; distinct IDs always get distinct
// directories.
func ComponentDir(outputDir, componentID string) string {
	return filepath.Join(outputDir, dirName(componentID))
}

// dirName keeps IDs that are already lowercase safe segments as they are.
// Anything else is sanitized and suffixed with "~" plus a hash of the raw ID.
// Kept names never contain "~", and the lowercase rule keeps names apart on
// case-insensitive filesystems.
func dirName(id string) string {
	safe := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, id)
	safe = strings.Trim(safe, ".")
	if safe == "" {
		safe = "component"
	}
	if safe == id && id == strings.ToLower(id) {
		return id
	}
	sum := sha256.Sum256([]byte(id))
	return safe + "~" + hex.EncodeToString(sum[:8])
}
