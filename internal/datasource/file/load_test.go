package file

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"cmdbjoin/internal/cmdb"
	"cmdbjoin/internal/config"
)

func writeFile(t *testing.T, name string, b []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, b, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestLoad_Latin1CSV(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "cmdb.csv", []byte("name,ip_address,model_id.name\nm\xfcnchen-01,10.1.0.1,ProLiant\n"))

	tb, err := Load(context.Background(), "inventory", config.FileSource{Path: p}, config.Parser{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := tb.Rows[0].V[0]; got != "münchen-01" {
		t.Fatalf("name=%q, want münchen-01", got)
	}
}

func TestLoad_HTMLByExtension(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "cmdb.html", []byte(`<table><tr><th>name</th><th>ip_address</th><th>model_id.name</th></tr>
<tr><td>web01</td><td>10.0.0.1</td><td>ServerX</td></tr></table>`))

	tb, err := Load(context.Background(), "inventory", config.FileSource{Path: p}, config.Parser{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tb.Len() != 1 || tb.Rows[0].V[2] != "ServerX" {
		t.Fatalf("rows=%v", tb.Rows)
	}
}

func TestLoad_JSONByExtension(t *testing.T) {
	t.Parallel()

	p := writeFile(t, "cmdb.json", []byte(`{"result":[{"name":"web01","ip_address":"10.0.0.1","model_id":{"name":"ServerX"}}]}`))

	tb, err := Load(context.Background(), "inventory", config.FileSource{Path: p}, config.Parser{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := []string{"name", "ip_address", "model_id.name"}; !reflect.DeepEqual(tb.Columns, want) {
		t.Fatalf("columns=%v, want %v", tb.Columns, want)
	}
	if tb.Len() != 1 || tb.Rows[0].V[2] != "ServerX" {
		t.Fatalf("rows=%v", tb.Rows)
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ragged := filepath.Join(dir, "ragged.csv")
	if err := os.WriteFile(ragged, []byte("hostname\nweb01,extra\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}

	tests := []struct {
		name   string
		src    config.FileSource
		parser config.Parser
		wantIs error
	}{
		{name: "missing_file", src: config.FileSource{Path: filepath.Join(dir, "nope.csv")}, wantIs: os.ErrNotExist},
		{name: "empty_file", src: config.FileSource{Path: empty}},
		{name: "ragged_rows", src: config.FileSource{Path: ragged}},
		{name: "bad_parser", src: config.FileSource{Path: ragged}, parser: config.Parser{Kind: "xlsx"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := Load(context.Background(), "hostnames", tc.src, tc.parser)
			if !errors.Is(err, cmdb.ErrLoad) {
				t.Fatalf("err=%v, want ErrLoad", err)
			}
			if tc.wantIs != nil && !errors.Is(err, tc.wantIs) {
				t.Fatalf("err=%v, want errors.Is %v", err, tc.wantIs)
			}
		})
	}
}

func TestRoundTrip_WriteThenLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	inv, err := Load(context.Background(), "inventory",
		config.FileSource{Path: writeFile(t, "cmdb.csv", []byte(
			"name,ip_address,model_id.name,serial_number\n"+
				"web01,10.0.0.1,\"ServerX, rev 2\",S1\n"+
				"db01,,ServerZ,S2\n"))},
		config.Parser{})
	if err != nil {
		t.Fatalf("Load inventory: %v", err)
	}
	hosts, err := Load(context.Background(), "hostnames",
		config.FileSource{Path: writeFile(t, "hosts.csv", []byte("Server Name\nweb01\nmissing01\ndb01\n"))},
		config.Parser{})
	if err != nil {
		t.Fatalf("Load hostnames: %v", err)
	}

	w := cmdb.Writer{Dir: dir, Now: func() time.Time { return time.Date(2025, 1, 2, 0, 0, 0, 0, time.Local) }}
	res, err := cmdb.Run(context.Background(), inv, hosts, cmdb.Options{Writer: w})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if filepath.Base(res.Path) != "clean_csv_2025-01-02.csv" {
		t.Fatalf("path=%q", res.Path)
	}

	back, err := Load(context.Background(), "result", config.FileSource{Path: res.Path}, config.Parser{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reflect.DeepEqual(back.Columns, cmdb.ResultColumns) {
		t.Fatalf("columns=%v, want %v", back.Columns, cmdb.ResultColumns)
	}
	want := [][]any{
		{"web01", "10.0.0.1", "ServerX, rev 2"},
		{"db01", nil, "ServerZ"},
	}
	if back.Len() != len(want) {
		t.Fatalf("rows=%d, want %d", back.Len(), len(want))
	}
	for i := range want {
		if !reflect.DeepEqual(back.Rows[i].V, want[i]) {
			t.Fatalf("row %d=%v, want %v", i, back.Rows[i].V, want[i])
		}
	}
}
