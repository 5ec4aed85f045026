package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	collection TEXT NOT NULL,
	id         TEXT NOT NULL,
	doc        TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (collection, id)
);
`

// SQLite is a Store backed by a single-file SQLite database.
type SQLite struct {
	db   *sql.DB
	path string
}

// Open opens or creates the database at path and ensures the schema
// exists. Use ":memory:" for an ephemeral store.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set journal mode: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		"SELECT doc FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}

	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("corrupt document %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

func (s *SQLite) Upsert(ctx context.Context, collection, id string, doc map[string]any) error {
	existing, err := s.Get(ctx, collection, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}

	merged := doc
	if existing != nil {
		merged = make(map[string]any, len(existing)+len(doc))
		for k, v := range existing {
			merged[k] = v
		}
		for k, v := range doc {
			merged[k] = v
		}
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("failed to encode document: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, `
INSERT INTO documents (collection, id, doc, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (collection, id)
DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at`,
		collection, id, string(raw), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to write document: %w", err)
	}
	return nil
}
