package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS known_markets (
    id         TEXT PRIMARY KEY,
    first_seen DATETIME NOT NULL
);
`

// SQLiteStore keeps the known-ID set in a SQLite table (pure Go, no CGo).
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens or creates the database at path. ":memory:" is accepted.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %q: %w", path, err)
	}
	// A single connection keeps ":memory:" databases shared and writes serialized.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// Load returns every identifier in the table.
func (s *SQLiteStore) Load(ctx context.Context) (mapset.Set[string], error) {
	known := NewSet()

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM known_markets`)
	if err != nil {
		return known, &CorruptStateError{Location: s.path, Err: err}
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return NewSet(), &CorruptStateError{Location: s.path, Err: err}
		}
		known.Add(id)
	}
	if err := rows.Err(); err != nil {
		return NewSet(), &CorruptStateError{Location: s.path, Err: err}
	}
	return known, nil
}

// Save inserts identifiers that are not stored yet. Existing rows keep their
// original first_seen time and nothing is deleted.
func (s *SQLiteStore) Save(ctx context.Context, known mapset.Set[string]) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO known_markets (id, first_seen) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, id := range Sorted(known) {
		if _, err := stmt.ExecContext(ctx, id, now); err != nil {
			return fmt.Errorf("failed to insert %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
