package cmdb

import (
	"errors"
	"log/slog"

	"cmdbjoin/internal/table"
)

// HostnameColumn is the single column of a normalized Hostname Table.
const HostnameColumn = "hostname"

// NormalizeHostnames reduces a raw hostname table to exactly one column
// named "hostname":
//   - a single column is renamed, whatever its name;
//   - otherwise an existing "hostname" column is kept and the rest dropped;
//   - otherwise the first column is kept and renamed.
//
// The input is not modified. A table with no columns is a NormalizationError.
func NormalizeHostnames(raw *table.Table) (*table.Table, error) {
	if raw == nil || len(raw.Columns) == 0 {
		return nil, NewError(ErrNormalization, "normalize hostnames", errors.New("table has no columns"))
	}

	pick, rule := raw.Columns[0], "first_column"
	switch {
	case len(raw.Columns) == 1:
		rule = "single_column"
	case raw.Has(HostnameColumn):
		pick, rule = HostnameColumn, "named_column"
	}

	out, err := raw.Select(pick)
	if err != nil {
		return nil, NewError(ErrNormalization, "normalize hostnames", err)
	}
	out.Rename(pick, HostnameColumn)

	slog.Debug("normalized hostname table",
		slog.String("rule", rule),
		slog.String("source_column", pick),
		slog.Int("dropped_columns", len(raw.Columns)-1),
		slog.Int("rows", out.Len()),
	)
	return out, nil
}
