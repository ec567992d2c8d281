// Package store keeps fuzzing runs and the failures they found in a
// SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs(
	id TEXT PRIMARY KEY,
	started INTEGER NOT NULL,
	seed TEXT NOT NULL,
	version TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS findings(
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL REFERENCES runs(id),
	created INTEGER NOT NULL,
	seed TEXT NOT NULL,
	kind TEXT NOT NULL,
	detail TEXT NOT NULL,
	variant TEXT NOT NULL,
	divergence INTEGER NOT NULL,
	original_size INTEGER NOT NULL,
	reduced_size INTEGER NOT NULL,
	source TEXT NOT NULL,
	reduced_source TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS findings_created ON findings(created);
`

// Finding is one interesting program.
type Finding struct {
	ID      string
	RunID   string
	Created time.Time
	Seed    string
	// Kind is the failure class name, Detail its diagnostic id or
	// exception types.
	Kind       string
	Detail     string
	Variant    string
	Divergence int

	OriginalSize  int
	ReducedSize   int
	Source        string
	ReducedSource string
}

// Store is a findings database. It is safe for concurrent use.
type Store struct {
	db      *sql.DB
	version string
	now     func() time.Time
}

// Open opens or creates the database at path.
func Open(path, version string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; serialize on a single connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing %s: %w", path, err)
	}
	return &Store{db: db, version: version, now: time.Now}, nil
}

// BeginRun records the start of a run and returns its id.
func (s *Store) BeginRun(ctx context.Context, seed string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, "INSERT INTO runs(id, started, seed, version) VALUES(?,?,?,?)",
		id, s.now().UnixMilli(), seed, s.version)
	if err != nil {
		return "", fmt.Errorf("recording run: %w", err)
	}
	return id, nil
}

// RecordFinding stores f, assigning an id and timestamp when missing,
// and returns the stored id.
func (s *Store) RecordFinding(ctx context.Context, f Finding) (string, error) {
	if f.RunID == "" {
		return "", errors.New("finding without a run")
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.Created.IsZero() {
		f.Created = s.now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO findings(id, run_id, created, seed, kind, detail, variant,
		divergence, original_size, reduced_size, source, reduced_source) VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`,
		f.ID, f.RunID, f.Created.UnixMilli(), f.Seed, f.Kind, f.Detail, f.Variant,
		f.Divergence, f.OriginalSize, f.ReducedSize, f.Source, f.ReducedSource)
	if err != nil {
		return "", fmt.Errorf("recording finding for seed %s: %w", f.Seed, err)
	}
	return f.ID, nil
}

// Findings returns up to limit findings, newest first. A non-positive
// limit returns all of them.
func (s *Store) Findings(ctx context.Context, limit int) ([]Finding, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id, run_id, created, seed, kind, detail, variant, divergence,
		original_size, reduced_size, source, reduced_source FROM findings ORDER BY created DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Finding
	for rows.Next() {
		var f Finding
		var created int64
		if err := rows.Scan(&f.ID, &f.RunID, &created, &f.Seed, &f.Kind, &f.Detail, &f.Variant, &f.Divergence,
			&f.OriginalSize, &f.ReducedSize, &f.Source, &f.ReducedSource); err != nil {
			return nil, err
		}
		f.Created = time.UnixMilli(created)
		out = append(out, f)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
