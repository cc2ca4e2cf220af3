package json

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"cmdbjoin/internal/config"
)

func TestReadTable_Shapes(t *testing.T) {
	t.Parallel()

	cols := []string{"name", "ip_address", "model_id.name"}
	rows := [][]any{
		{"web01", "10.0.0.1", "ServerX"},
		{"web02", nil, "ServerY"},
	}

	tests := []struct {
		name string
		in   string
	}{
		{
			name: "root_array",
			in: `[{"name":"web01","ip_address":"10.0.0.1","model_id":{"name":"ServerX"}},
			      {"name":"web02","ip_address":"","model_id":{"name":"ServerY"}}]`,
		},
		{
			name: "envelope_skips_other_fields",
			in: `{"count":2,"result":[
			        {"name":"web01","ip_address":"10.0.0.1","model_id":{"name":"ServerX"}},
			        {"name":"web02","ip_address":null,"model_id":{"name":"ServerY"}}
			      ],"next":{"offset":2}}`,
		},
		{
			name: "json_lines",
			in: `{"name":"web01","ip_address":"10.0.0.1","model_id.name":"ServerX"}
{"name":"web02","model_id.name":"ServerY","ip_address":null}
`,
		},
		{
			name: "array_then_lines",
			in: `[{"name":"web01","ip_address":"10.0.0.1","model_id":{"name":"ServerX"}}]
{"name":"web02","model_id":{"name":"ServerY"}}`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			tb, err := ReadTable(context.Background(), strings.NewReader(tc.in), "inventory", nil)
			if err != nil {
				t.Fatalf("ReadTable: %v", err)
			}
			if !reflect.DeepEqual(tb.Columns, cols) {
				t.Fatalf("columns=%v, want %v", tb.Columns, cols)
			}
			if tb.Len() != len(rows) {
				t.Fatalf("rows=%d, want %d", tb.Len(), len(rows))
			}
			for i := range rows {
				if !reflect.DeepEqual(tb.Rows[i].V, rows[i]) {
					t.Fatalf("row %d=%v, want %v", i, tb.Rows[i].V, rows[i])
				}
				if tb.Rows[i].Line != i+1 {
					t.Fatalf("row %d line=%d, want %d", i, tb.Rows[i].Line, i+1)
				}
			}
		})
	}
}

func TestReadTable_SingleObjectAndScalars(t *testing.T) {
	t.Parallel()

	in := `{"name":"web01","cpu_count":8,"virtual":true,"tags":["prod","eu"],"ports":[22,"ssh"]}`
	tb, err := ReadTable(context.Background(), strings.NewReader(in), "inventory", nil)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if tb.Len() != 1 {
		t.Fatalf("rows=%d, want 1", tb.Len())
	}
	want := []any{"web01", "8", "true", "prod,eu", `[22,"ssh"]`}
	if !reflect.DeepEqual(tb.Rows[0].V, want) {
		t.Fatalf("row=%v, want %v", tb.Rows[0].V, want)
	}
}

func TestReadTable_Options(t *testing.T) {
	t.Parallel()

	in := `[{"Name":"web01","tags":["a","b"]},{"Name":"web02","extra":"x"}]`
	opts := config.Options{
		"array_join_separator": "|",
		"header_map":           map[string]any{"Name": "name"},
	}
	tb, err := ReadTable(context.Background(), strings.NewReader(in), "inventory", opts)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if want := []string{"name", "tags", "extra"}; !reflect.DeepEqual(tb.Columns, want) {
		t.Fatalf("columns=%v, want %v", tb.Columns, want)
	}
	if got := tb.Rows[0].V; !reflect.DeepEqual(got, []any{"web01", "a|b", nil}) {
		t.Fatalf("row 0=%v", got)
	}
	if got := tb.Rows[1].V; !reflect.DeepEqual(got, []any{"web02", nil, "x"}) {
		t.Fatalf("row 1=%v", got)
	}
}

func TestReadTable_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		wantIs  error
		wantSub string
	}{
		{name: "empty", in: "", wantIs: ErrNoColumns},
		{name: "whitespace", in: "  \n", wantIs: ErrNoColumns},
		{name: "empty_array", in: "[]", wantIs: ErrNoColumns},
		{name: "empty_envelope", in: `{"result":[]}`, wantIs: ErrNoColumns},
		{name: "scalar_root", in: `"hello"`, wantSub: "unsupported root token"},
		{name: "non_object_element", in: `[{"name":"a"}, 3]`, wantSub: "record 2: array element not an object"},
		{name: "trailing_scalar", in: `{"name":"a"} 7`, wantSub: "trailing value is not an object"},
		{name: "truncated", in: `[{"name":"a"`, wantSub: "json:"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ReadTable(context.Background(), strings.NewReader(tc.in), "inventory", nil)
			if err == nil {
				t.Fatalf("err=nil, want error")
			}
			if tc.wantIs != nil && !errors.Is(err, tc.wantIs) {
				t.Fatalf("err=%v, want %v", err, tc.wantIs)
			}
			if tc.wantSub != "" && !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("err=%v, want substring %q", err, tc.wantSub)
			}
		})
	}
}

func TestReadTable_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadTable(ctx, strings.NewReader(`[{"name":"web01"}]`), "inventory", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}
