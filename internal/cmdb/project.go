package cmdb

import (
	"cmdbjoin/internal/table"
)

// Inventory columns carried into the result.
const (
	NameColumn      = "name"
	IPAddressColumn = "ip_address"
	ModelNameColumn = "model_id.name"
)

// ResultColumns is the fixed header of the Result Table.
var ResultColumns = []string{HostnameColumn, IPAddressColumn, ModelNameColumn}

// Project selects name, ip_address and model_id.name from a joined table and
// renames name to hostname. The hostname value is the matched inventory
// name, so unmatched rows carry nil there.
//
// Any missing column is a ProjectionError naming all of them.
func Project(joined *table.Table) (*table.Table, error) {
	out, err := joined.Select(NameColumn, IPAddressColumn, ModelNameColumn)
	if err != nil {
		return nil, NewError(ErrProjection, "project", err)
	}
	out.Name = "result"
	out.Rename(NameColumn, HostnameColumn)
	return out, nil
}

// DropEmpty removes rows whose cells are all empty (nil or "") and reports
// how many were removed.
func DropEmpty(t *table.Table) (*table.Table, int) {
	out := t.Filter(func(r table.Row) bool { return !table.AllEmpty(r) })
	return out, t.Len() - out.Len()
}
