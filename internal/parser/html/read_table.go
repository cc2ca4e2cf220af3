// Package html reads a table.Table out of an HTML <table> export, as produced
// by CMDB list views saved from a browser or "Export > HTML".
package html

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"cmdbjoin/internal/config"
	"cmdbjoin/internal/table"
)

// ErrNoTable is returned when the selector matches no <table> element.
var ErrNoTable = errors.New("no table found")

// ErrNoColumns is returned when the matched table has no header cells.
var ErrNoColumns = errors.New("no columns to parse")

// ReadTable parses the first table matched by the "table_selector" option
// (default "table").
//
// The header is the first row of <thead> if present, otherwise the first
// <tr> of the table. Cell text is whitespace-trimmed; empty cells load as
// nil. Rows wider than the header are an error, shorter rows are padded.
// The "header_map" option renames header cells.
func ReadTable(ctx context.Context, r io.Reader, name string, opt config.Options) (*table.Table, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	sel := opt.String("table_selector", "table")
	tbl := doc.Find(sel).First()
	if tbl.Length() == 0 {
		return nil, fmt.Errorf("%w (selector %q)", ErrNoTable, sel)
	}

	rows := tbl.Find("tr")
	header := tbl.Find("thead tr").First()
	if header.Length() == 0 {
		header = rows.First()
	}
	if header.Length() == 0 {
		return nil, ErrNoColumns
	}

	cols := cellTexts(header)
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}
	hm := opt.StringMap("header_map")
	for i, c := range cols {
		if mapped, ok := hm[c]; ok {
			cols[i] = mapped
			continue
		}
		if c == "" {
			cols[i] = "Unnamed: " + strconv.Itoa(i)
		}
	}

	t := table.New(name, cols)
	width := len(cols)
	headerNode := header.Get(0)

	var rowErr error
	line := 0
	rows.EachWithBreak(func(_ int, tr *goquery.Selection) bool {
		if tr.Get(0) == headerNode {
			return true
		}
		if err := ctx.Err(); err != nil {
			rowErr = err
			return false
		}
		line++

		cells := cellTexts(tr)
		if len(cells) == 0 {
			return true
		}
		if len(cells) > width {
			rowErr = fmt.Errorf("row %d: expected %d cells, saw %d", line, width, len(cells))
			return false
		}

		v := make([]any, width)
		for i, s := range cells {
			if s != "" {
				v[i] = s
			}
		}
		t.Rows = append(t.Rows, table.Row{V: v, Line: line})
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	return t, nil
}

func cellTexts(tr *goquery.Selection) []string {
	var out []string
	tr.ChildrenFiltered("th, td").Each(func(_ int, c *goquery.Selection) {
		out = append(out, strings.TrimSpace(c.Text()))
	})
	return out
}
