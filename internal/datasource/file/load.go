package file

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cmdbjoin/internal/cmdb"
	"cmdbjoin/internal/config"
	"cmdbjoin/internal/metrics"
	csvparser "cmdbjoin/internal/parser/csv"
	htmlparser "cmdbjoin/internal/parser/html"
	jsonparser "cmdbjoin/internal/parser/json"
	"cmdbjoin/internal/table"
)

// Load reads src and parses it with p into a table named name.
//
// An empty parser kind is inferred from the file extension. Every failure
// (missing or unreadable file, undecodable bytes, parse error) is returned
// as a cmdb LoadError.
func Load(ctx context.Context, name string, src config.FileSource, p config.Parser) (t *table.Table, err error) {
	start := time.Now()
	defer func() { metrics.RecordStep("load_"+name, start, err) }()

	t, err = load(ctx, name, src, p)
	if err != nil {
		return nil, cmdb.NewError(cmdb.ErrLoad, "load "+name, err)
	}
	metrics.RecordRows(name, t.Len())
	return t, nil
}

func load(ctx context.Context, name string, src config.FileSource, p config.Parser) (*table.Table, error) {
	raw, err := NewLocal(src.Path).ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	text, enc, err := Decode(raw, src.FallbackEncoding)
	if err != nil {
		return nil, err
	}

	kind := p.Kind
	if kind == "" {
		kind = config.ParserKindForPath(src.Path)
	}

	var t *table.Table
	switch kind {
	case config.ParserCSV:
		t, err = csvparser.ReadTable(ctx, strings.NewReader(text), name, p.Options)
	case config.ParserHTML:
		t, err = htmlparser.ReadTable(ctx, strings.NewReader(text), name, p.Options)
	case config.ParserJSON:
		t, err = jsonparser.ReadTable(ctx, strings.NewReader(text), name, p.Options)
	default:
		return nil, fmt.Errorf("unsupported parser kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Path, err)
	}

	slog.Info("table loaded",
		slog.String("table", name),
		slog.String("path", src.Path),
		slog.String("encoding", enc),
		slog.String("parser", kind),
		slog.Int("columns", len(t.Columns)),
		slog.Int("rows", t.Len()),
	)
	return t, nil
}
