// Package sqlite implements a SQLite-backed storage.Repository on
// database/sql with the pure-Go modernc driver. SQLite has no bulk-load API,
// so rows go through batched multi-row INSERTs inside a transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tbetl/internal/ddl"
	"tbetl/internal/storage"
)

// Repository is a SQLite-backed storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository opens dsn, for example "file:tb.db" or ":memory:".
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One connection: SQLite serializes writers and every :memory:
	// connection is a separate database.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	return &Repository{db: db}, nil
}

func init() {
	storage.Register("sqlite", func(ctx context.Context, dsn string) (storage.Repository, error) {
		return NewRepository(ctx, dsn)
	})
}

var _ storage.Repository = (*Repository)(nil)

func (r *Repository) Dialect() ddl.Dialect { return ddl.SQLite }

// DB exposes the handle for read-back queries.
func (r *Repository) DB() *sql.DB { return r.db }

func (r *Repository) CopyFrom(ctx context.Context, fqn string, columns []string, rows [][]any) (int64, error) {
	return storage.InsertRows(ctx, r.db, ddl.SQLite, fqn, columns, rows)
}

func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, sql); err != nil {
		return fmt.Errorf("sqlite: exec: %w", err)
	}
	return nil
}

func (r *Repository) Close() { _ = r.db.Close() }
