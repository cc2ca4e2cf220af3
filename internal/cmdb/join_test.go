package cmdb

import (
	"errors"
	"reflect"
	"testing"

	"cmdbjoin/internal/table"
)

func TestLeftJoin_PreservesLeftOrderAndNulls(t *testing.T) {
	t.Parallel()

	left := mkTable("hostnames", []string{"hostname"},
		[]any{"db01"}, []any{"web02"}, []any{nil}, []any{"web01"})

	got, err := LeftJoin(left, inventoryFixture(), "hostname", "name")
	if err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}

	wantCols := []string{"hostname", "name", "ip_address", "model_id.name", "sys_class_name"}
	if !reflect.DeepEqual(got.Columns, wantCols) {
		t.Fatalf("columns=%v, want %v", got.Columns, wantCols)
	}
	assertRows(t, got, [][]any{
		{"db01", "db01", "10.0.0.5", "ServerZ", "cmdb_ci_linux_server"},
		{"web02", nil, nil, nil, nil},
		{nil, nil, nil, nil, nil},
		{"web01", "web01", "10.0.0.1", "ServerX", "cmdb_ci_linux_server"},
	})
	if got.Rows[3].Line != left.Rows[3].Line {
		t.Fatalf("line=%d, want left line %d", got.Rows[3].Line, left.Rows[3].Line)
	}
}

func TestLeftJoin_FanOutOnDuplicateRightKeys(t *testing.T) {
	t.Parallel()

	left := mkTable("hostnames", []string{"hostname"}, []any{"web01"}, []any{"web02"})
	right := mkTable("inventory", []string{"name", "ip_address", "model_id.name"},
		[]any{"web01", "10.0.0.1", "ServerX"},
		[]any{"web02", "10.0.0.2", "ServerY"},
		[]any{"web01", "10.0.1.1", "ServerX2"},
	)

	got, err := LeftJoin(left, right, "hostname", "name")
	if err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}
	if got.Len() < left.Len() {
		t.Fatalf("rows=%d, want >= %d", got.Len(), left.Len())
	}
	assertRows(t, got, [][]any{
		{"web01", "web01", "10.0.0.1", "ServerX"},
		{"web01", "web01", "10.0.1.1", "ServerX2"},
		{"web02", "web02", "10.0.0.2", "ServerY"},
	})
}

func TestLeftJoin_RowCountEqualsLeftWithoutDuplicates(t *testing.T) {
	t.Parallel()

	left := mkTable("hostnames", []string{"hostname"},
		[]any{"web01"}, []any{"x"}, []any{"db01"}, []any{"web01"})

	got, err := LeftJoin(left, inventoryFixture(), "hostname", "name")
	if err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}
	if got.Len() != left.Len() {
		t.Fatalf("rows=%d, want %d", got.Len(), left.Len())
	}
}

func TestLeftJoin_ExactKeyMatch(t *testing.T) {
	t.Parallel()

	left := mkTable("hostnames", []string{"hostname"}, []any{"WEB01"}, []any{"web01 "})

	got, err := LeftJoin(left, inventoryFixture(), "hostname", "name")
	if err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}
	for i, r := range got.Rows {
		if r.V[1] != nil {
			t.Fatalf("row %d matched %v, want no match", i, r.V[1])
		}
	}
}

func TestLeftJoin_NullRightKeysNeverMatch(t *testing.T) {
	t.Parallel()

	left := mkTable("hostnames", []string{"hostname"}, []any{nil})
	right := mkTable("inventory", []string{"name", "ip_address", "model_id.name"},
		[]any{nil, "10.9.9.9", "Orphan"})

	got, err := LeftJoin(left, right, "hostname", "name")
	if err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}
	assertRows(t, got, [][]any{{nil, nil, nil, nil}})
}

func TestLeftJoin_CollidingColumnsGetSuffixes(t *testing.T) {
	t.Parallel()

	left := mkTable("hostnames", []string{"hostname", "site"}, []any{"web01", "ams"})
	right := mkTable("inventory", []string{"name", "site"}, []any{"web01", "fra"})

	got, err := LeftJoin(left, right, "hostname", "name")
	if err != nil {
		t.Fatalf("LeftJoin: %v", err)
	}
	want := []string{"hostname", "site_x", "name", "site_y"}
	if !reflect.DeepEqual(got.Columns, want) {
		t.Fatalf("columns=%v, want %v", got.Columns, want)
	}

	shared, err := LeftJoin(
		mkTable("a", []string{"name"}, []any{"web01"}),
		mkTable("b", []string{"name", "ip_address"}, []any{"web01", "10.0.0.1"}),
		"name", "name")
	if err != nil {
		t.Fatalf("LeftJoin shared key: %v", err)
	}
	if !reflect.DeepEqual(shared.Columns, []string{"name", "ip_address"}) {
		t.Fatalf("shared key columns=%v", shared.Columns)
	}
	assertRows(t, shared, [][]any{{"web01", "10.0.0.1"}})
}

func TestLeftJoin_MissingKeyColumns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		left  *table.Table
		right *table.Table
	}{
		{name: "left_missing_hostname", left: mkTable("h", []string{"host"}), right: inventoryFixture()},
		{name: "right_missing_name", left: mkTable("h", []string{"hostname"}), right: mkTable("inv", []string{"fqdn", "ip_address"})},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := LeftJoin(tc.left, tc.right, "hostname", "name")
			if !errors.Is(err, ErrJoin) {
				t.Fatalf("err=%v, want ErrJoin", err)
			}
			var mce *table.MissingColumnsError
			if !errors.As(err, &mce) {
				t.Fatalf("err=%v, want *table.MissingColumnsError inside", err)
			}
		})
	}
}
