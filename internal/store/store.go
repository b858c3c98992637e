// Package store persists comparison results in PostgreSQL or SQLite.
package store

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kamilpajak/visualgate/internal/config"
	"github.com/kamilpajak/visualgate/pkg/models"
)

//go:embed migrations
var migrationsFS embed.FS

// ErrNotFound is returned by Get when no record has the given ID.
var ErrNotFound = errors.New("result not found")

// DefaultListLimit caps ListByComponent when no limit is given.
const DefaultListLimit = 50

// Record is a stored comparison result.
type Record struct {
	ID        uuid.UUID               `json:"id"`
	Result    models.VisualDiffResult `json:"result"`
	CreatedAt time.Time               `json:"createdAt"`
}

// Store saves and reads comparison results.
type Store interface {
	Save(ctx context.Context, result *models.VisualDiffResult) (*Record, error)
	Get(ctx context.Context, id uuid.UUID) (*Record, error)
	// ListByComponent returns the newest records first. An empty
	// componentID lists every component.
	ListByComponent(ctx context.Context, componentID string, limit int) ([]Record, error)
	Close() error
}

// Open connects the store selected by cfg and applies its migrations. It
// returns nil, nil when persistence is disabled.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	switch cfg.Driver {
	case "":
		return nil, nil
	case "postgres":
		if err := Migrate(cfg.DSN); err != nil {
			return nil, err
		}
		return NewPostgres(ctx, cfg.DSN)
	case "sqlite":
		return OpenSQLite(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

// row holds the indexed columns plus the JSON document.
type row struct {
	id              uuid.UUID
	componentID     string
	verdict         string
	diffPercentage  float64
	structurePassed bool
	aiVerdict       *string
	result          []byte
	createdAt       time.Time
}

func newRow(r *models.VisualDiffResult, now time.Time) (*row, error) {
	doc, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to encode result: %w", err)
	}
	out := &row{
		id:              uuid.New(),
		componentID:     r.ComponentID,
		verdict:         string(r.Verdict),
		diffPercentage:  r.PixelDiff.DiffPercentage,
		structurePassed: r.StructureCheck.Passed,
		result:          doc,
		createdAt:       now.UTC(),
	}
	if r.AIComparison != nil {
		v := string(r.AIComparison.Verdict)
		out.aiVerdict = &v
	}
	return out, nil
}

func (r *row) record() (*Record, error) {
	rec := &Record{ID: r.id, CreatedAt: r.createdAt}
	if err := json.Unmarshal(r.result, &rec.Result); err != nil {
		return nil, fmt.Errorf("failed to decode result %s: %w", r.id, err)
	}
	return rec, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return DefaultListLimit
	}
	return limit
}
