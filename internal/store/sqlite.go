package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kamilpajak/visualgate/pkg/models"
)

// sqliteTime sorts lexically in chronological order.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

// SQLite stores results in a local SQLite file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and migrates it.
// Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// one writer; an in-memory database is per connection
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite: %w", err)
	}
	if err := migrateSQLite(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func migrateSQLite(db *sql.DB) error {
	sub, err := fs.Sub(migrationsFS, "migrations/sqlite")
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	// m.Close would close db, which the store keeps using
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(sc scanner) (*Record, error) {
	var (
		r         row
		id        string
		createdAt string
		doc       string
	)
	err := sc.Scan(&id, &r.componentID, &r.verdict, &r.diffPercentage, &r.structurePassed, &r.aiVerdict, &doc, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if r.id, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid id %q: %w", id, err)
	}
	if r.createdAt, err = time.Parse(sqliteTime, createdAt); err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	r.result = []byte(doc)
	return r.record()
}

// Save stores a new result.
func (s *SQLite) Save(ctx context.Context, result *models.VisualDiffResult) (*Record, error) {
	r, err := newRow(result, time.Now())
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO visual_diff_results (`+resultColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.id.String(), r.componentID, r.verdict, r.diffPercentage, r.structurePassed, r.aiVerdict,
		string(r.result), r.createdAt.Format(sqliteTime),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to save result: %w", err)
	}
	return r.record()
}

// Get retrieves a result by ID.
func (s *SQLite) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	return scanSQLite(s.db.QueryRowContext(ctx,
		`SELECT `+resultColumns+` FROM visual_diff_results WHERE id = ?`,
		id.String(),
	))
}

// ListByComponent returns results ordered by creation date descending.
func (s *SQLite) ListByComponent(ctx context.Context, componentID string, limit int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+resultColumns+` FROM visual_diff_results
		 WHERE ?1 = '' OR component_id = ?1
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?2`,
		componentID, normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *rec)
	}
	return records, rows.Err()
}
