// Package csv parses delimited text into a table.Table.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cmdbjoin/internal/config"
	"cmdbjoin/internal/table"
)

// ErrNoColumns is returned when the input has no header row.
var ErrNoColumns = errors.New("no columns to parse")

// ReadTable parses r into a table named name.
//
// Options:
//   - comma (rune, default ','): field delimiter.
//   - lazy_quotes (bool, default false): tolerate stray quotes.
//   - trim_space (bool, default false): trim leading/trailing space in cells.
//   - header_map (map): rename header names after trimming.
//
// The first record is the header. Header names are trimmed and a leading BOM
// is dropped; blank names become "Unnamed: <i>" and repeated names get ".1",
// ".2" suffixes. Empty cells load as nil. Records shorter than the header are
// padded with nil; longer records are an error.
func ReadTable(ctx context.Context, r io.Reader, name string, opt config.Options) (*table.Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = opt.Rune("comma", ',')
	cr.LazyQuotes = opt.Bool("lazy_quotes", false)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	trim := opt.Bool("trim_space", false)
	hm := opt.StringMap("header_map")

	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoColumns
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	t := table.New(name, headerNames(hdr, hm))
	width := len(t.Columns)

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rec, err := cr.Read()
		if err == io.EOF {
			return t, nil
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}

		line, _ := cr.FieldPos(0)
		if len(rec) > width {
			return nil, fmt.Errorf("line %d: expected %d fields, saw %d", line, width, len(rec))
		}

		v := make([]any, width)
		for i, s := range rec {
			if trim && table.HasEdgeSpace(s) {
				s = strings.TrimSpace(s)
			}
			if s != "" {
				v[i] = s
			}
		}
		t.Rows = append(t.Rows, table.Row{V: v, Line: line})
	}
}

func headerNames(hdr []string, hm map[string]string) []string {
	out := make([]string, len(hdr))
	seen := make(map[string]int, len(hdr))
	for i, h := range hdr {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if table.HasEdgeSpace(h) {
			h = strings.TrimSpace(h)
		}
		if mapped, ok := hm[h]; ok {
			h = mapped
		}
		if h == "" {
			h = "Unnamed: " + strconv.Itoa(i)
		}

		if seen[h] > 0 {
			base := h
			n := seen[base]
			for seen[base+"."+strconv.Itoa(n)] > 0 {
				n++
			}
			seen[base] = n + 1
			h = base + "." + strconv.Itoa(n)
		}
		seen[h]++
		out[i] = h
	}
	return out
}
