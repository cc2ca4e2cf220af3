// Package postgres registers the "postgres" inventory source using a pgx
// connection pool.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cmdbjoin/internal/datasource/sqlsrc"
	"cmdbjoin/internal/table"
)

func init() {
	sqlsrc.Register("postgres", Open)
}

// Source queries Postgres through a pgxpool.Pool.
type Source struct {
	pool *pgxpool.Pool
}

// Open creates a pool for dsn and pings it.
func Open(ctx context.Context, dsn string) (sqlsrc.Querier, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Source{pool: pool}, nil
}

// Close closes the pool.
func (s *Source) Close() { s.pool.Close() }

// QueryTable runs query and collects every row.
func (s *Source) QueryTable(ctx context.Context, name, query string) (*table.Table, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collect(name, rows)
}

func collect(name string, rows pgx.Rows) (*table.Table, error) {
	fds := rows.FieldDescriptions()
	cols := make([]string, len(fds))
	for i, fd := range fds {
		cols[i] = fd.Name
	}

	t := table.New(name, cols)
	line := 0
	for rows.Next() {
		line++
		vals, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan row %d: %w", line, err)
		}
		v := make([]any, len(cols))
		for i := range vals {
			v[i] = sqlsrc.Cell(vals[i])
		}
		t.Rows = append(t.Rows, table.Row{V: v, Line: line})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
