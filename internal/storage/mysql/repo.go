// Package mysql implements a MySQL-backed storage.Repository using
// go-sql-driver/mysql and multi-row INSERTs.
package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	driver "github.com/go-sql-driver/mysql"

	"tbetl/internal/ddl"
	"tbetl/internal/storage"
)

// Repository is a MySQL-backed storage.Repository.
type Repository struct {
	db *sql.DB
}

// NewRepository validates dsn, opens a pool and pings it.
func NewRepository(ctx context.Context, dsn string) (*Repository, error) {
	if _, err := driver.ParseDSN(dsn); err != nil {
		return nil, fmt.Errorf("mysql dsn: %w", err)
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Repository{db: db}, nil
}

func init() {
	storage.Register("mysql", func(ctx context.Context, dsn string) (storage.Repository, error) {
		return NewRepository(ctx, dsn)
	})
}

var _ storage.Repository = (*Repository)(nil)

func (r *Repository) Dialect() ddl.Dialect { return ddl.MySQL }

func (r *Repository) CopyFrom(ctx context.Context, fqn string, columns []string, rows [][]any) (int64, error) {
	return storage.InsertRows(ctx, r.db, ddl.MySQL, fqn, columns, rows)
}

func (r *Repository) Exec(ctx context.Context, sql string) error {
	if strings.TrimSpace(sql) == "" {
		return nil
	}
	_, err := r.db.ExecContext(ctx, sql)
	return err
}

func (r *Repository) Close() { _ = r.db.Close() }
