package csv

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"cmdbjoin/internal/config"
)

func TestReadTable_HeaderAndNulls(t *testing.T) {
	t.Parallel()

	input := "\uFEFFname, ip_address ,model_id.name\n" +
		"web01,10.0.0.1,ServerX\n" +
		"web02,,\n" +
		"\n" +
		"db01,10.0.0.9\n"

	tb, err := ReadTable(context.Background(), strings.NewReader(input), "inventory", nil)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}

	if want := []string{"name", "ip_address", "model_id.name"}; !reflect.DeepEqual(tb.Columns, want) {
		t.Fatalf("columns=%v, want %v", tb.Columns, want)
	}
	want := [][]any{
		{"web01", "10.0.0.1", "ServerX"},
		{"web02", nil, nil},
		{"db01", "10.0.0.9", nil},
	}
	if tb.Len() != len(want) {
		t.Fatalf("rows=%d, want %d", tb.Len(), len(want))
	}
	for i := range want {
		if !reflect.DeepEqual(tb.Rows[i].V, want[i]) {
			t.Fatalf("row %d=%v, want %v", i, tb.Rows[i].V, want[i])
		}
	}
	if tb.Rows[2].Line != 5 {
		t.Fatalf("row 2 line=%d, want 5", tb.Rows[2].Line)
	}
}

func TestReadTable_HeaderNames(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		opt   config.Options
		want  []string
	}{
		{name: "duplicates", input: "a,a,b,a\n", want: []string{"a", "a.1", "b", "a.2"}},
		{name: "blank", input: "host,,x\n", want: []string{"host", "Unnamed: 1", "x"}},
		{name: "header_map", input: "Host Name,IP\n", opt: config.Options{"header_map": map[string]any{"Host Name": "hostname"}}, want: []string{"hostname", "IP"}},
		{name: "semicolon", input: "name;ip_address\n", opt: config.Options{"comma": ";"}, want: []string{"name", "ip_address"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tb, err := ReadTable(context.Background(), strings.NewReader(tc.input), "t", tc.opt)
			if err != nil {
				t.Fatalf("ReadTable: %v", err)
			}
			if !reflect.DeepEqual(tb.Columns, tc.want) {
				t.Fatalf("columns=%v, want %v", tb.Columns, tc.want)
			}
		})
	}
}

func TestReadTable_KeepsValuesLiteralUnlessTrimmed(t *testing.T) {
	t.Parallel()

	input := "hostname\n  web01 \n"

	tb, err := ReadTable(context.Background(), strings.NewReader(input), "h", nil)
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got := tb.Rows[0].V[0]; got != "  web01 " {
		t.Fatalf("literal value=%q, want untouched", got)
	}

	tb, err = ReadTable(context.Background(), strings.NewReader(input), "h", config.Options{"trim_space": true})
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	if got := tb.Rows[0].V[0]; got != "web01" {
		t.Fatalf("trimmed value=%q, want web01", got)
	}
}

func TestReadTable_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		wantSub string
		wantIs  error
	}{
		{name: "empty", input: "", wantIs: ErrNoColumns},
		{name: "too_many_fields", input: "a,b\n1,2\n1,2,3\n", wantSub: "line 3: expected 2 fields, saw 3"},
		{name: "bad_quote", input: "a,b\n\"x,2\n", wantSub: "csv read"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ReadTable(context.Background(), strings.NewReader(tc.input), "t", nil)
			if err == nil {
				t.Fatalf("err=nil, want error")
			}
			if tc.wantIs != nil && !errors.Is(err, tc.wantIs) {
				t.Fatalf("err=%v, want errors.Is %v", err, tc.wantIs)
			}
			if tc.wantSub != "" && !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("err=%q, want contains %q", err.Error(), tc.wantSub)
			}
		})
	}
}

func TestReadTable_Canceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadTable(ctx, strings.NewReader("a\n1\n"), "t", nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
}
