// Package sqlite registers the "sqlite" inventory source backed by
// modernc.org/sqlite (pure Go, no cgo).
package sqlite

import (
	"context"
	"database/sql"

	_ "modernc.org/sqlite"

	"cmdbjoin/internal/datasource/sqlsrc"
)

func init() {
	sqlsrc.Register("sqlite", Open)
}

// Open opens dsn (a file path or file: URI) and verifies the connection.
func Open(ctx context.Context, dsn string) (sqlsrc.Querier, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sqlsrc.NewDB(db), nil
}
