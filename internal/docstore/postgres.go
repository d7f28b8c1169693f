package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"backoffice-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Postgres backs the document store with a single documents table
// (collection, key, doc jsonb). Each Set is an independent upsert; the
// application never wraps stock mutations in a SQL transaction, so two
// sessions racing on the same product lose one update (last write wins).
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres connects to the backing database.
func NewPostgres(databaseURL string) (*Postgres, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Postgres{db: db}, nil
}

// Close closes the database connection
func (p *Postgres) Close() error {
	return p.db.Close()
}

// GetDB returns the underlying database connection
func (p *Postgres) GetDB() *sqlx.DB {
	return p.db
}

// Get reads one document into out.
func (p *Postgres) Get(ctx context.Context, path string, out interface{}) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}

	var raw []byte
	err = p.db.GetContext(ctx, &raw,
		"SELECT doc FROM documents WHERE collection = $1 AND key = $2", collection, key)
	if err == sql.ErrNoRows {
		return &models.NotFoundError{Path: path}
	}
	if err != nil {
		return &models.RemoteStoreError{Op: "get", Path: path, Err: err}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return &models.RemoteStoreError{Op: "get", Path: path, Err: err}
	}
	return nil
}

// Set upserts one document.
func (p *Postgres) Set(ctx context.Context, path string, doc interface{}) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return &models.RemoteStoreError{Op: "set", Path: path, Err: err}
	}

	_, err = p.db.ExecContext(ctx, `
		INSERT INTO documents (collection, key, doc, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (collection, key) DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`,
		collection, key, raw)
	if err != nil {
		return &models.RemoteStoreError{Op: "set", Path: path, Err: err}
	}
	return nil
}

// Delete removes one document. Deleting an absent document is not an error.
func (p *Postgres) Delete(ctx context.Context, path string) error {
	collection, key, err := SplitPath(path)
	if err != nil {
		return err
	}

	_, err = p.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = $1 AND key = $2", collection, key)
	if err != nil {
		return &models.RemoteStoreError{Op: "delete", Path: path, Err: err}
	}
	return nil
}

// List returns every document in a collection keyed by its storage key.
func (p *Postgres) List(ctx context.Context, collection string) (map[string]json.RawMessage, error) {
	type row struct {
		Key string `db:"key"`
		Doc []byte `db:"doc"`
	}

	var rows []row
	err := p.db.SelectContext(ctx, &rows,
		"SELECT key, doc FROM documents WHERE collection = $1", collection)
	if err != nil {
		return nil, &models.RemoteStoreError{Op: "list", Path: collection, Err: err}
	}

	docs := make(map[string]json.RawMessage, len(rows))
	for _, r := range rows {
		docs[r.Key] = json.RawMessage(r.Doc)
	}
	return docs, nil
}
