// Package sqlsrc loads the Inventory Table from a SQL query instead of a CSV
// export.
//
// Backends register themselves by driver name from an init function (see
// sqlsrc/sqlite, sqlsrc/postgres, sqlsrc/mssql); import sqlsrc/all to get
// every backend.
package sqlsrc

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"cmdbjoin/internal/cmdb"
	"cmdbjoin/internal/config"
	"cmdbjoin/internal/metrics"
	"cmdbjoin/internal/table"
)

// Querier runs a query and returns the result set as a table.
type Querier interface {
	QueryTable(ctx context.Context, name, query string) (*table.Table, error)
	Close()
}

// Factory opens a Querier for a DSN.
type Factory func(ctx context.Context, dsn string) (Querier, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register makes a backend available under driver.
//
// Panics if driver is empty, f is nil, or driver is already registered.
func Register(driver string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if driver == "" {
		panic("sqlsrc: Register called with empty driver")
	}
	if f == nil {
		panic("sqlsrc: Register called with nil factory")
	}
	if _, exists := factories[driver]; exists {
		panic(fmt.Sprintf("sqlsrc: factory already registered for driver=%q", driver))
	}
	factories[driver] = f
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for d := range factories {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Open returns a Querier for cfg.Driver. The DSN is env-expanded.
func Open(ctx context.Context, driver, dsn string) (Querier, error) {
	mu.RLock()
	f := factories[driver]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("unsupported sql driver %q (registered: %s)", driver, strings.Join(Drivers(), ", "))
	}
	return f(ctx, os.ExpandEnv(dsn))
}

// Load runs cfg.Query against cfg.Driver and returns the rows as a table
// named name. Failures are cmdb LoadErrors.
func Load(ctx context.Context, name string, cfg config.SQLSource) (t *table.Table, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep("load_"+name, start, err) }()

	q, err := Open(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, cmdb.NewError(cmdb.ErrLoad, "load "+name, fmt.Errorf("open %s: %w", cfg.Driver, err))
	}
	defer q.Close()

	t, err = q.QueryTable(ctx, name, cfg.Query)
	if err != nil {
		return nil, cmdb.NewError(cmdb.ErrLoad, "load "+name, fmt.Errorf("query: %w", err))
	}
	metrics.RecordRows(name, t.Len())

	slog.Info("table loaded",
		slog.String("table", name),
		slog.String("driver", cfg.Driver),
		slog.Int("columns", len(t.Columns)),
		slog.Int("rows", t.Len()),
	)
	return t, nil
}
