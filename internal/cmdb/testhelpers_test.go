package cmdb

import (
	"reflect"
	"testing"

	"cmdbjoin/internal/table"
)

func mkTable(name string, cols []string, rows ...[]any) *table.Table {
	t := table.New(name, cols)
	for i, r := range rows {
		t.Append(i+2, r...)
	}
	return t
}

func inventoryFixture() *table.Table {
	return mkTable("inventory",
		[]string{"name", "ip_address", "model_id.name", "sys_class_name"},
		[]any{"web01", "10.0.0.1", "ServerX", "cmdb_ci_linux_server"},
		[]any{"db01", "10.0.0.5", "ServerZ", "cmdb_ci_linux_server"},
	)
}

func assertRows(t *testing.T, got *table.Table, want [][]any) {
	t.Helper()
	if got.Len() != len(want) {
		t.Fatalf("rows=%d, want %d; got=%v", got.Len(), len(want), got.Rows)
	}
	for i := range want {
		if !reflect.DeepEqual(got.Rows[i].V, want[i]) {
			t.Fatalf("row %d=%v, want %v", i, got.Rows[i].V, want[i])
		}
	}
}
