package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"tbetl/internal/config"
	"tbetl/internal/ddl"
	"tbetl/internal/table"
)

// maxParams bounds bind parameters per INSERT; SQL Server rejects more than
// 2100.
const maxParams = 2000

const maxBatch = 500

// Save writes t to table cfg.TablePrefix+name, creating the table first when
// cfg.AutoCreate is set. It returns the number of rows written.
func Save(ctx context.Context, log *slog.Logger, repo Repository, cfg config.Storage, name string, t *table.Table) (int64, error) {
	fqn := cfg.TablePrefix + name
	d := repo.Dialect()
	if t.Width() == 0 {
		return 0, fmt.Errorf("storage: table %s has no columns", fqn)
	}

	if cfg.AutoCreate {
		var notNull []string
		if t.Has("country") {
			notNull = append(notNull, "country")
		}
		stmt, err := ddl.BuildCreateTableSQL(ddl.FromTable(fqn, t, d, notNull...), d)
		if err != nil {
			return 0, err
		}
		if err := repo.Exec(ctx, stmt); err != nil {
			return 0, fmt.Errorf("storage: create %s: %w", fqn, err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	in := make(chan []any, maxBatch)
	go func() {
		defer close(in)
		for i := 0; i < t.Len(); i++ {
			select {
			case in <- Args(t, i):
			case <-ctx.Done():
				return
			}
		}
	}()

	n, err := LoadBatches(ctx, log.With("table", fqn), t.Names(), in, BatchSize(t.Width()), func(ctx context.Context, cols []string, rows [][]any) (int64, error) {
		return repo.CopyFrom(ctx, fqn, cols, rows)
	})
	if err != nil {
		return n, fmt.Errorf("storage: load %s: %w", fqn, err)
	}
	log.Info("table stored", "table", fqn, "backend", d.Name, "rows", n)
	return n, nil
}

// BatchSize is the number of rows per INSERT for a table of width columns.
func BatchSize(width int) int {
	if width <= 0 {
		return maxBatch
	}
	n := maxParams / width
	switch {
	case n < 1:
		return 1
	case n > maxBatch:
		return maxBatch
	}
	return n
}

// Args converts row i of t to driver arguments: missing values become nil,
// integer columns int64, other numbers float64 and text string.
func Args(t *table.Table, i int) []any {
	out := make([]any, t.Width())
	for j := range out {
		v := t.At(i, j)
		switch {
		case v.IsNull():
			out[j] = nil
		case v.IsNumber():
			f, _ := v.Float()
			if t.Column(j).Kind == table.KindInt {
				out[j] = int64(f)
			} else {
				out[j] = f
			}
		default:
			out[j] = v.Text()
		}
	}
	return out
}

// InsertRows writes rows with one multi-row INSERT inside a transaction. It
// serves database/sql backends without a native bulk path.
func InsertRows(ctx context.Context, db *sql.DB, d ddl.Dialect, fqn string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: insert: columns must not be empty", d.Name)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(rows)*len(columns))
	for i, r := range rows {
		if len(r) != len(columns) {
			return 0, fmt.Errorf("%s: insert: row %d has %d values, want %d", d.Name, i, len(r), len(columns))
		}
		args = append(args, r...)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: begin tx: %w", d.Name, err)
	}
	res, err := tx.ExecContext(ctx, ddl.BuildInsertSQL(fqn, columns, len(rows), d), args...)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%s: insert: %w", d.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%s: commit: %w", d.Name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return int64(len(rows)), nil
	}
	return n, nil
}
