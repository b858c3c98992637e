package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kamilpajak/visualgate/pkg/models"
)

// Postgres stores results in PostgreSQL through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a new connection pool.
func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

func postgresMigrator(databaseURL string) (*migrate.Migrate, error) {
	sub, err := fs.Sub(migrationsFS, "migrations/postgres")
	if err != nil {
		return nil, err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}
	return m, nil
}

// Migrate runs database migrations.
func Migrate(databaseURL string) error {
	m, err := postgresMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// MigrateDown rolls back all migrations.
func MigrateDown(databaseURL string) error {
	m, err := postgresMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

const resultColumns = `id, component_id, verdict, diff_percentage, structure_passed, ai_verdict, result, created_at`

func scanRow(s pgx.Row) (*Record, error) {
	var r row
	err := s.Scan(&r.id, &r.componentID, &r.verdict, &r.diffPercentage, &r.structurePassed, &r.aiVerdict, &r.result, &r.createdAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return r.record()
}

// Save stores a new result.
func (p *Postgres) Save(ctx context.Context, result *models.VisualDiffResult) (*Record, error) {
	r, err := newRow(result, time.Now())
	if err != nil {
		return nil, err
	}

	rec, err := scanRow(p.pool.QueryRow(ctx,
		`INSERT INTO visual_diff_results (id, component_id, verdict, diff_percentage, structure_passed, ai_verdict, result, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+resultColumns,
		r.id, r.componentID, r.verdict, r.diffPercentage, r.structurePassed, r.aiVerdict, r.result, r.createdAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}
	return rec, nil
}

// Get retrieves a result by ID.
func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanRow(p.pool.QueryRow(ctx,
		`SELECT `+resultColumns+` FROM visual_diff_results WHERE id = $1`,
		id,
	))
}

// ListByComponent returns results ordered by creation date descending.
func (p *Postgres) ListByComponent(ctx context.Context, componentID string, limit int) ([]Record, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM visual_diff_results
		 WHERE $1 = '' OR component_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		componentID, normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
