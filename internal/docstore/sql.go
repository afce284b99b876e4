package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect captures the few differences between the SQL backends.
type Dialect struct {
	Driver string
	upsert string
	query  string
}

var (
	DialectSQLite = Dialect{
		Driver: "sqlite",
		upsert: `
			INSERT INTO documents (name, body, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET
				body = excluded.body,
				updated_at = excluded.updated_at
		`,
		query: `SELECT body FROM documents WHERE name = ?`,
	}
	DialectPostgres = Dialect{
		Driver: "pgx",
		upsert: `
			INSERT INTO documents (name, body, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (name) DO UPDATE SET
				body = EXCLUDED.body,
				updated_at = EXCLUDED.updated_at
		`,
		query: `SELECT body FROM documents WHERE name = $1`,
	}
)

const createDocuments = `
	CREATE TABLE IF NOT EXISTS documents (
		name TEXT PRIMARY KEY,
		body TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	)
`

// SQLStore keeps documents in a single name/body table.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQL opens dsn with the dialect's driver and ensures the schema.
// For sqlite the dsn is a file path whose directory is created if needed.
func OpenSQL(ctx context.Context, d Dialect, dsn string) (*SQLStore, error) {
	if dsn == "" {
		return nil, errors.New("sql storage requires a dsn")
	}
	if d.Driver == DialectSQLite.Driver {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	s, err := NewSQLStore(ctx, db, d)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open database and creates the documents table.
func NewSQLStore(ctx context.Context, db *sql.DB, d Dialect) (*SQLStore, error) {
	if _, err := db.ExecContext(ctx, createDocuments); err != nil {
		return nil, fmt.Errorf("failed to create documents table: %w", err)
	}
	return &SQLStore{db: db, dialect: d}, nil
}

func (s *SQLStore) Load(ctx context.Context, name string, v any) error {
	var body string
	err := s.db.QueryRowContext(ctx, s.dialect.query, name).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal([]byte(body), v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return nil
}

func (s *SQLStore) Save(ctx context.Context, name string, v any) error {
	if err := validName(name); err != nil {
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, name, string(b), time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
