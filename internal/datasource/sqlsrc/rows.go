package sqlsrc

import (
	"context"
	"database/sql"
	"fmt"
	"net/netip"
	"strconv"
	"time"

	"cmdbjoin/internal/table"
)

// DB adapts a database/sql handle to Querier.
type DB struct {
	db *sql.DB
}

// NewDB wraps db. Close closes db.
func NewDB(db *sql.DB) *DB { return &DB{db: db} }

// Close closes the underlying handle.
func (d *DB) Close() { _ = d.db.Close() }

// QueryTable runs query and collects every row.
func (d *DB) QueryTable(ctx context.Context, name, query string) (*table.Table, error) {
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	t := table.New(name, cols)

	// database/sql requires pointer destinations; scan into *any and
	// normalize afterwards.
	vals := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}

	line := 0
	for rows.Next() {
		line++
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scan row %d: %w", line, err)
		}
		v := make([]any, len(cols))
		for i := range vals {
			v[i] = Cell(vals[i])
		}
		t.Rows = append(t.Rows, table.Row{V: v, Line: line})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// Cell converts a driver value into a table cell: nil stays nil and
// everything else becomes its text form. Empty strings become nil, matching
// how empty CSV fields load.
func Cell(v any) any {
	var s string
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		s = t
	case []byte:
		s = string(t)
	case int64:
		s = strconv.FormatInt(t, 10)
	case int32:
		s = strconv.FormatInt(int64(t), 10)
	case int:
		s = strconv.Itoa(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(t), 'f', -1, 32)
	case bool:
		s = strconv.FormatBool(t)
	case time.Time:
		s = t.Format(time.RFC3339)
	case netip.Prefix:
		// Postgres inet values carry a mask; host addresses print without it.
		if t.IsSingleIP() {
			s = t.Addr().String()
		} else {
			s = t.String()
		}
	case fmt.Stringer:
		s = t.String()
	default:
		s = fmt.Sprint(v)
	}
	if s == "" {
		return nil
	}
	return s
}
