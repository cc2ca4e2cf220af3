// Package mssql registers the "mssql" inventory source for SQL Server
// CMDB replicas.
package mssql

import (
	"context"
	"database/sql"

	_ "github.com/microsoft/go-mssqldb"

	"cmdbjoin/internal/datasource/sqlsrc"
)

func init() {
	sqlsrc.Register("mssql", Open)
}

// Open opens a "sqlserver://" DSN and verifies the connection.
func Open(ctx context.Context, dsn string) (sqlsrc.Querier, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return sqlsrc.NewDB(db), nil
}
