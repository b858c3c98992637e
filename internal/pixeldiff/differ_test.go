package pixeldiff

import (
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/kamilpajak/visualgate/internal/imaging"
	"github.com/kamilpajak/visualgate/internal/imaging/imagingtest"
	"github.com/kamilpajak/visualgate/pkg/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareFiles_Identical(t *testing.T) {
	dir := t.TempDir()
	card := imagingtest.Card(393, 92)
	design := imagingtest.WritePNG(t, dir, "design.png", card)
	actual := imagingtest.WritePNG(t, dir, "actual-in.png", card)

	d := New(filepath.Join(dir, "out"), zerolog.Nop())
	res, err := d.CompareFiles("hero", design, actual)
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.DiffPercentage)
	assert.Equal(t, 0, res.DiffPixels)
	assert.Equal(t, 393*92, res.TotalPixels)
	assert.Equal(t, design, res.ExpectedImagePath)
	assert.Equal(t, filepath.Join(dir, "out", "hero", DiffFileName), res.DiffImagePath)
	assert.Equal(t, filepath.Join(dir, "out", "hero", ActualFileName), res.ActualImagePath)

	diffImg, err := imaging.Load(res.DiffImagePath)
	require.NoError(t, err)
	assert.Equal(t, 393, diffImg.Width)
	assert.Equal(t, 92, diffImg.Height)

	saved, err := imaging.Load(res.ActualImagePath)
	require.NoError(t, err)
	assert.Equal(t, card.Pix, saved.Pix)
}

func TestCompareFiles_CorruptedBlock(t *testing.T) {
	dir := t.TempDir()
	card := imagingtest.Card(393, 92)
	design := imagingtest.WritePNG(t, dir, "design.png", card)
	actual := imagingtest.WritePNG(t, dir, "actual.png", imagingtest.CorruptBlock(card, 0.4))

	res, err := New(filepath.Join(dir, "out"), zerolog.Nop()).CompareFiles("hero", design, actual)
	require.NoError(t, err)

	assert.Equal(t, 157*92, res.DiffPixels)
	assert.Equal(t, Percentage(res.DiffPixels, res.TotalPixels), res.DiffPercentage)
	assert.InDelta(t, 40.0, res.DiffPercentage, 0.5)
}

func TestCompareBitmap_ResamplesDesign(t *testing.T) {
	dir := t.TempDir()
	card := imagingtest.Card(120, 40)
	// design exported at 2x pixel density
	design := imagingtest.WritePNG(t, dir, "design@2x.png", imaging.Resize(card, 240, 80))

	res, err := New(dir, zerolog.Nop()).CompareBitmap("card", design, card)
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.DiffPercentage)
	assert.Equal(t, 120*40, res.TotalPixels)
}

func TestCompareFiles_MissingDesign(t *testing.T) {
	dir := t.TempDir()
	actual := imagingtest.WritePNG(t, dir, "actual.png", imagingtest.Card(10, 10))

	_, err := New(dir, zerolog.Nop()).CompareFiles("x", filepath.Join(dir, "missing.png"), actual)
	var readErr *imaging.ImageReadError
	require.True(t, errors.As(err, &readErr))
	assert.Contains(t, readErr.Path, "missing.png")
}

func TestCompareFiles_MissingActual(t *testing.T) {
	dir := t.TempDir()
	design := imagingtest.WritePNG(t, dir, "design.png", imagingtest.Card(10, 10))

	_, err := New(dir, zerolog.Nop()).CompareFiles("x", design, filepath.Join(dir, "missing.png"))
	var readErr *imaging.ImageReadError
	assert.True(t, errors.As(err, &readErr))
}

func TestComponentDir(t *testing.T) {
	assert.Equal(t, filepath.Join("out", "hero-banner"), ComponentDir("out", "hero-banner"))
	assert.Equal(t, filepath.Join("out", "component"), ComponentDir("out", "component"))

	tests := []struct {
		id     string
		prefix string
	}{
		{id: "/../etc/passwd", prefix: "_.._etc_passwd~"},
		{id: "..", prefix: "component~"},
		{id: "", prefix: "component~"},
		{id: "a b", prefix: "a_b~"},
		{id: "Hero", prefix: "Hero~"},
		{id: "按钮", prefix: "__~"},
	}
	for _, tt := range tests {
		dir := ComponentDir("out", tt.id)
		assert.Equal(t, "out", filepath.Dir(dir), tt.id)
		assert.True(t, strings.HasPrefix(filepath.Base(dir), tt.prefix), "%q -> %s", tt.id, dir)
		assert.Equal(t, dir, ComponentDir("out", tt.id), "stable for %q", tt.id)
	}
}

func TestComponentDir_DistinctIDsDistinctDirs(t *testing.T) {
	ids := []string{
		"按钮", "标题",
		"card/1", "card_1", "card 1",
		"hero", "Hero", "HERO",
		"", "component", "..", ".",
		"a.b", "a_b", "a-b",
	}
	// compare lowercased names so case-insensitive filesystems are covered
	seen := make(map[string]string, len(ids))
	for _, id := range ids {
		name := strings.ToLower(filepath.Base(ComponentDir("out", id)))
		if other, dup := seen[name]; dup {
			t.Fatalf("%q and %q share directory %s", id, other, name)
		}
		seen[name] = id
	}
}

func TestCompareFiles_ConcurrentComponentsKeepOwnArtifacts(t *testing.T) {
	dir := t.TempDir()
	card := imagingtest.Card(60, 20)
	design := imagingtest.WritePNG(t, dir, "design.png", card)
	same := imagingtest.WritePNG(t, dir, "same.png", card)
	broken := imagingtest.WritePNG(t, dir, "broken.png", imagingtest.CorruptBlock(card, 0.5))
	d := New(filepath.Join(dir, "out"), zerolog.Nop())

	var (
		wg            sync.WaitGroup
		okRes, badRes *models.PixelDiffResult
		okErr, badErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		okRes, okErr = d.CompareFiles("按钮", design, same)
	}()
	go func() {
		defer wg.Done()
		badRes, badErr = d.CompareFiles("标题", design, broken)
	}()
	wg.Wait()
	require.NoError(t, okErr)
	require.NoError(t, badErr)

	assert.NotEqual(t, okRes.DiffImagePath, badRes.DiffImagePath)
	assert.NotEqual(t, okRes.ActualImagePath, badRes.ActualImagePath)

	saved, err := imaging.Load(okRes.ActualImagePath)
	require.NoError(t, err)
	assert.Equal(t, card.Pix, saved.Pix)
}
