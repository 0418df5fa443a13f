package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DocumentSQLite keeps documents in the documents table, one row per kind.
type DocumentSQLite struct {
	db *sql.DB
}

func NewDocumentSQLite(db *sql.DB) *DocumentSQLite {
	return &DocumentSQLite{db: db}
}

var _ DocumentStore = (*DocumentSQLite)(nil)

const (
	upsertDocumentSQL = `
		INSERT INTO documents (kind, body, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(kind) DO UPDATE SET
			body=excluded.body,
			updated_at=excluded.updated_at
	`

	selectDocumentSQL = `SELECT body FROM documents WHERE kind=?`
)

// Get returns the stored body or ErrNotFound.
func (r *DocumentSQLite) Get(ctx context.Context, kind string) ([]byte, error) {
	var body string
	if err := r.db.QueryRowContext(ctx, selectDocumentSQL, kind).Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select document %q: %w", kind, err)
	}
	return []byte(body), nil
}

// Put replaces the document in a single statement.
func (r *DocumentSQLite) Put(ctx context.Context, kind string, body []byte) error {
	if _, err := r.db.ExecContext(ctx, upsertDocumentSQL, kind, string(body), time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert document %q: %w", kind, err)
	}
	return nil
}
