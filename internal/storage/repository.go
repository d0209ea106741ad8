// Package storage is the optional relational sink for cleaned tables.
//
// Backends register a Factory for their storage kind at init time; importing
// tbetl/internal/storage/all makes every built-in backend available. Callers
// depend only on Repository and Save.
package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"tbetl/internal/config"
	"tbetl/internal/ddl"
)

// Repository is a connection to one database.
type Repository interface {
	// Dialect reports how identifiers, types and parameters are written.
	Dialect() ddl.Dialect
	// Exec runs a statement, typically DDL.
	Exec(ctx context.Context, sql string) error
	// CopyFrom bulk-inserts rows aligned to columns into table fqn and
	// returns the number of rows written.
	CopyFrom(ctx context.Context, fqn string, columns []string, rows [][]any) (int64, error)
	Close()
}

// Factory opens a Repository for a DSN.
type Factory func(ctx context.Context, dsn string) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under kind. A later call for the same
// kind replaces the earlier factory.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// Kinds lists registered storage kinds in sorted order.
func Kinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// New opens the repository configured by cfg.
func New(ctx context.Context, cfg config.Storage) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: no backend registered for kind %q (have %v)", cfg.Kind, Kinds())
	}
	repo, err := f(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", cfg.Kind, err)
	}
	return repo, nil
}
