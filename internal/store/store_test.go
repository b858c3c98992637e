package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kamilpajak/visualgate/internal/config"
	"github.com/kamilpajak/visualgate/pkg/models"
)

func sample(componentID string, pct float64, ai *models.AIComparisonResult) *models.VisualDiffResult {
	return &models.VisualDiffResult{
		ComponentID:    componentID,
		StructureCheck: models.VacuousStructureCheck(),
		PixelDiff: models.PixelDiffResult{
			DiffPercentage: pct,
			TotalPixels:    100,
			DiffPixels:     int(pct),
			DiffImagePath:  "out/" + componentID + "/diff.png",
		},
		AIComparison: ai,
		Verdict:      models.VerdictNeedsReview,
		Timestamp:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

// runStoreContract exercises any Store implementation. Component IDs are
// made unique so the suite can share a database with other runs.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()
	hero := "hero-" + uuid.NewString()[:8]
	footer := "footer-" + uuid.NewString()[:8]

	judged := &models.AIComparisonResult{
		Verdict:     models.AIVerdictMinorDifferences,
		Differences: []models.Difference{{Severity: models.SeverityLow, Area: "title", Description: "kerning"}},
		Confidence:  0.7,
		RawResponse: "{}",
	}

	first, err := s.Save(ctx, sample(hero, 7, judged))
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := s.Save(ctx, sample(hero, 2, nil))
	require.NoError(t, err)
	_, err = s.Save(ctx, sample(footer, 30, nil))
	require.NoError(t, err)

	t.Run("get round trips the document", func(t *testing.T) {
		got, err := s.Get(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, got.ID)
		assert.Equal(t, hero, got.Result.ComponentID)
		assert.Equal(t, 7.0, got.Result.PixelDiff.DiffPercentage)
		require.NotNil(t, got.Result.AIComparison)
		assert.Equal(t, judged.Differences, got.Result.AIComparison.Differences)
		assert.Equal(t, []string{}, got.Result.StructureCheck.ExtraElements)
	})

	t.Run("get unknown id", func(t *testing.T) {
		_, err := s.Get(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		recs, err := s.ListByComponent(ctx, hero, 10)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, second.ID, recs[0].ID)
		assert.Equal(t, first.ID, recs[1].ID)
	})

	t.Run("list limit", func(t *testing.T) {
		recs, err := s.ListByComponent(ctx, hero, 1)
		require.NoError(t, err)
		assert.Len(t, recs, 1)
	})

	t.Run("list unknown component", func(t *testing.T) {
		recs, err := s.ListByComponent(ctx, "nobody-"+uuid.NewString(), 10)
		require.NoError(t, err)
		assert.NotNil(t, recs)
		assert.Empty(t, recs)
	})

	t.Run("list all components", func(t *testing.T) {
		recs, err := s.ListByComponent(ctx, "", 500)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(recs), 3)
	})
}

func TestSQLite(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	defer s.Close()

	runStoreContract(t, s)
}

func TestSQLite_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")

	s, err := OpenSQLite(ctx, path)
	require.NoError(t, err)
	rec, err := s.Save(ctx, sample("card", 1, nil))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = OpenSQLite(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "card", got.Result.ComponentID)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, config.StoreConfig{})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = Open(ctx, config.StoreConfig{Driver: "sqlite", DSN: filepath.Join(t.TempDir(), "vg.db")})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.IsType(t, &SQLite{}, s)
	assert.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "mongo", DSN: "x"})
	assert.ErrorContains(t, err, "unknown store driver")
}

func TestNormalizeLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, normalizeLimit(0))
	assert.Equal(t, DefaultListLimit, normalizeLimit(-3))
	assert.Equal(t, DefaultListLimit, normalizeLimit(10_000))
	assert.Equal(t, 7, normalizeLimit(7))
}
