// Package sql adapts database/sql to parflow: query results become
// concurrent sources, and sources can be written back with ExecEach.
package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lguimbarda/parflow/flow/core"
	"github.com/lguimbarda/parflow/flow/runner"
	"github.com/lguimbarda/parflow/flow/source"
)

// Scanner converts the current row into a value.
type Scanner[T any] func(*sql.Rows) (T, error)

// Rows is a Source over the result set of a query. Rows are scanned one
// at a time under a lock, in result order, so row indices follow the
// order the database returns them in.
//
// A scan failure ends the source early. Check Err once the computation
// returns.
type Rows[T any] struct {
	source.Source[T]

	mu       sync.Mutex
	rows     *sql.Rows
	scanErr  error
	closeErr error
}

// Query runs query and returns its rows as a Source of unknown length.
func Query[T any](ctx context.Context, db *sql.DB, query string, scan Scanner[T], args ...any) (*Rows[T], error) {
	return open(ctx, db, query, scan, -1, args)
}

// QueryN is Query for result sets known to hold exactly n rows, typically
// counted beforehand with Count. The exact hint lets the scheduler size
// the worker pool and chunks up front.
func QueryN[T any](ctx context.Context, db *sql.DB, n int, query string, scan Scanner[T], args ...any) (*Rows[T], error) {
	return open(ctx, db, query, scan, n, args)
}

func open[T any](ctx context.Context, db *sql.DB, q string, scan Scanner[T], n int, args []any) (*Rows[T], error) {
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("querying: %w", err)
	}

	r := &Rows[T]{rows: rows}
	next := func() (T, bool) {
		var zero T
		if !rows.Next() {
			r.release()
			return zero, false
		}
		item, err := scan(rows)
		if err != nil {
			r.fail(fmt.Errorf("scanning row: %w", err))
			return zero, false
		}
		return item, true
	}

	if n >= 0 {
		r.Source = source.WithLength(next, n)
	} else {
		r.Source = source.FromFunc(next)
	}
	return r, nil
}

func (r *Rows[T]) fail(err error) {
	r.mu.Lock()
	r.scanErr = err
	r.mu.Unlock()
	r.release()
}

// release closes the result set. It is idempotent.
func (r *Rows[T]) release() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows == nil {
		return
	}
	if err := r.rows.Err(); err != nil && r.scanErr == nil {
		r.scanErr = err
	}
	r.closeErr = r.rows.Close()
	r.rows = nil
}

// Stop stops the source and releases the result set.
func (r *Rows[T]) Stop() {
	r.Source.Stop()
	r.release()
}

// Err returns the first scan or iteration error.
func (r *Rows[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scanErr
}

// Close releases the result set and returns any error seen while reading it.
func (r *Rows[T]) Close() error {
	r.Stop()
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.scanErr, r.closeErr)
}

// Count returns the number of rows in table.
func Count(ctx context.Context, db *sql.DB, table string) (int, error) {
	var n int
	q := "SELECT COUNT(*) FROM " + quoteIdent(table)
	if err := db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// ExecEach executes stmt once per source item, binding each item's
// arguments with bind, and returns the total number of rows affected.
// Statements run concurrently under p; the first failing statement, by
// source index, stops the computation and is returned as a *core.StopError.
func ExecEach[T any](ctx context.Context, r *runner.Runner, p core.Params, db *sql.DB, src source.Source[T], stmt string, bind func(T) []any) (int64, error) {
	prepared, err := db.PrepareContext(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("preparing statement: %w", err)
	}
	defer prepared.Close()

	exec := core.PipeTryMap(core.Identity[T](), func(item T) (int64, error) {
		res, err := prepared.ExecContext(ctx, bind(item)...)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})
	return runner.Fold(ctx, r, p, src, exec,
		func() int64 { return 0 },
		func(acc, n int64) int64 { return acc + n },
		func(a, b int64) int64 { return a + b },
	)
}

// ScanStrings scans every column of the current row as a string.
// NULL becomes the empty string.
func ScanStrings(rows *sql.Rows) ([]string, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	out := make([]string, len(cols))
	for i, v := range values {
		out[i] = v.String
	}
	return out, nil
}

// ScanMap scans the current row into a map keyed by column name.
func ScanMap(rows *sql.Rows) (map[string]any, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	out := make(map[string]any, len(cols))
	for i, col := range cols {
		out[col] = values[i]
	}
	return out, nil
}
