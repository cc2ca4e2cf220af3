// Package probe samples the head of an inventory or hostname export and
// infers enough about it to bootstrap a cmdbjoin job config.
//
// The probe is responsible for:
//   - Reading a bounded prefix of a local file (default 20KB)
//   - Detecting the format (CSV, HTML or JSON) and, for CSV, the delimiter
//   - Matching the columns cmdbjoin needs, case-insensitively
//   - Measuring per-column uniqueness, which exposes join fan-out early
//
// All inference is best-effort. Probing a well-formed file never fails
// because of a malformed row near the end of the sample.
package probe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"cmdbjoin/internal/cmdb"
	"cmdbjoin/internal/config"
	"cmdbjoin/internal/datasource/file"
	csvparser "cmdbjoin/internal/parser/csv"
	htmlparser "cmdbjoin/internal/parser/html"
	jsonparser "cmdbjoin/internal/parser/json"
	"cmdbjoin/internal/table"
)

// DefaultMaxBytes is the sample size used when Options.MaxBytes is <= 0.
const DefaultMaxBytes = 20000

// Options control one probe run.
type Options struct {
	// Path is the local file to sample.
	Path string

	// Name labels the sampled table ("inventory" or "hostnames").
	Name string

	// MaxBytes bounds the sample. Defaults to DefaultMaxBytes.
	MaxBytes int

	// FallbackEncoding decodes non-UTF-8 samples. Defaults to latin1.
	FallbackEncoding string
}

// Profile is what the probe learned about one file.
type Profile struct {
	Name      string
	Path      string
	Format    string // config.ParserCSV, ParserHTML or ParserJSON
	Delimiter rune   // CSV only
	Encoding  string
	Truncated bool // the sample ended before the file did

	Columns []string
	Rows    int

	// HeaderMap renames sampled headers to the exact names cmdbjoin
	// expects when they only differ by case or surrounding space.
	HeaderMap map[string]string

	// Missing lists required columns that could not be matched.
	Missing []string

	Stats Uniqueness
}

// ErrEmptySample is returned when the sampled bytes hold no header.
var ErrEmptySample = errors.New("empty sample")

// Inspect samples opt.Path and profiles it.
func Inspect(ctx context.Context, opt Options) (Profile, error) {
	p := Profile{Name: opt.Name, Path: opt.Path}
	if p.Name == "" {
		p.Name = "inventory"
	}

	n := opt.MaxBytes
	if n <= 0 {
		n = DefaultMaxBytes
	}

	sample, truncated, err := readSample(ctx, opt.Path, n)
	if err != nil {
		return p, err
	}
	p.Format = sniffFormat(sample)

	// A cut JSON document does not parse, so JSON is always read whole.
	if truncated && p.Format == config.ParserJSON {
		if sample, err = file.NewLocal(opt.Path).ReadAll(ctx); err != nil {
			return p, err
		}
		truncated = false
	}
	p.Truncated = truncated
	if truncated {
		sample = trimToLastLine(sample)
	}
	if len(bytes.TrimSpace(sample)) == 0 {
		return p, fmt.Errorf("%s: %w", opt.Path, ErrEmptySample)
	}

	fallback := opt.FallbackEncoding
	if fallback == "" {
		fallback = config.DefaultFallbackEncoding
	}
	text, enc, err := file.Decode(sample, fallback)
	if err != nil {
		return p, err
	}
	p.Encoding = enc

	var t *table.Table
	switch p.Format {
	case config.ParserHTML:
		t, err = htmlparser.ReadTable(ctx, strings.NewReader(text), p.Name, nil)
	case config.ParserJSON:
		t, err = jsonparser.ReadTable(ctx, strings.NewReader(text), p.Name, nil)
	default:
		p.Delimiter = sniffDelimiter(firstLine(text))
		opts := config.Options{"lazy_quotes": true}
		if p.Delimiter != ',' {
			opts["comma"] = string(p.Delimiter)
		}
		t, err = csvparser.ReadTable(ctx, strings.NewReader(text), p.Name, opts)
	}
	if err != nil {
		return p, fmt.Errorf("parse sample: %w", err)
	}

	p.Columns = append([]string(nil), t.Columns...)
	p.Rows = t.Len()
	p.HeaderMap, p.Missing = matchColumns(t.Columns, requiredColumns(p.Name))
	p.Stats = computeUniqueness(t)
	return p, nil
}

// readSample reads at most n bytes and reports whether more remained.
func readSample(ctx context.Context, path string, n int) ([]byte, bool, error) {
	rc, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return nil, false, err
	}
	defer rc.Close()

	buf, err := io.ReadAll(io.LimitReader(rc, int64(n)+1))
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(buf) > n {
		return buf[:n], true, nil
	}
	return buf, false, nil
}

// trimToLastLine drops a trailing partial line (and any multi-byte rune it
// cut in half). A sample with no newline is returned unchanged.
func trimToLastLine(b []byte) []byte {
	if i := bytes.LastIndexByte(b, '\n'); i >= 0 {
		return b[:i+1]
	}
	return b
}

// sniffFormat infers the input format from a byte sample.
func sniffFormat(sample []byte) string {
	trim := bytes.TrimSpace(bytes.TrimPrefix(sample, []byte{0xEF, 0xBB, 0xBF}))
	if len(trim) == 0 {
		return config.ParserCSV
	}
	switch trim[0] {
	case '<':
		return config.ParserHTML
	case '{', '[':
		return config.ParserJSON
	default:
		return config.ParserCSV
	}
}

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate that occurs most often in the header
// line outside quotes. Ties go to the earlier candidate, so ',' wins when
// nothing else is present.
func sniffDelimiter(header string) rune {
	counts := make(map[rune]int, len(delimiterCandidates))
	inQuotes := false
	for _, r := range header {
		if r == '"' {
			inQuotes = !inQuotes
			continue
		}
		if !inQuotes {
			counts[r]++
		}
	}

	best := delimiterCandidates[0]
	for _, c := range delimiterCandidates[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}
	return best
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimRight(s[:i], "\r")
	}
	return s
}

// requiredColumns lists the columns cmdbjoin reads from a table of the
// given role. The hostname list has no fixed requirement because
// normalization accepts any single column or a "hostname" column.
func requiredColumns(name string) []string {
	if name == "hostnames" {
		return nil
	}
	return []string{cmdb.NameColumn, cmdb.IPAddressColumn, cmdb.ModelNameColumn}
}

// matchColumns pairs each required column with a header that differs only
// by case or surrounding space. Exact matches need no mapping.
func matchColumns(headers, required []string) (map[string]string, []string) {
	var (
		mapping map[string]string
		missing []string
	)
	for _, want := range required {
		found := false
		for _, h := range headers {
			if h == want {
				found = true
				break
			}
		}
		if found {
			continue
		}
		for _, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), want) {
				if mapping == nil {
					mapping = make(map[string]string)
				}
				mapping[h] = want
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, want)
		}
	}
	return mapping, missing
}

const distinctCapPerColumn = 10000

// Uniqueness holds bounded distinct-value counts for a sample.
//
// PerColumnTotal counts only rows where the column had a value; it is the
// denominator for the column's uniqueness ratio. TotalRows is informational.
type Uniqueness struct {
	TotalRows         int
	PerColumnTotal    map[string]int
	PerColumnDistinct map[string]int
	PerColumnCapped   map[string]bool
	ColumnOrder       []string
}

// Duplicates returns how many sampled rows repeat an earlier value of col.
func (u Uniqueness) Duplicates(col string) int {
	if u.PerColumnCapped[col] {
		return 0
	}
	return u.PerColumnTotal[col] - u.PerColumnDistinct[col]
}

// computeUniqueness counts distinct non-empty values per column, keyed on
// the literal cell text (the join key semantics). Distinct tracking stops
// at distinctCapPerColumn to keep memory bounded.
func computeUniqueness(t *table.Table) Uniqueness {
	stats := Uniqueness{
		PerColumnTotal:    make(map[string]int, len(t.Columns)),
		PerColumnDistinct: make(map[string]int, len(t.Columns)),
		PerColumnCapped:   make(map[string]bool, len(t.Columns)),
		ColumnOrder:       append([]string(nil), t.Columns...),
	}
	if t.Len() == 0 {
		return stats
	}

	sets := make([]map[string]struct{}, len(t.Columns))
	for i := range sets {
		sets[i] = make(map[string]struct{})
	}

	for _, r := range t.Rows {
		stats.TotalRows++
		for i, col := range t.Columns {
			k, ok := table.Key(r.V[i])
			if !ok || k == "" {
				continue
			}
			stats.PerColumnTotal[col]++
			if stats.PerColumnCapped[col] {
				continue
			}
			sets[i][k] = struct{}{}
			if len(sets[i]) >= distinctCapPerColumn {
				stats.PerColumnCapped[col] = true
				sets[i] = nil
			}
		}
	}

	for i, col := range t.Columns {
		if stats.PerColumnCapped[col] {
			stats.PerColumnDistinct[col] = distinctCapPerColumn
			continue
		}
		stats.PerColumnDistinct[col] = len(sets[i])
	}
	return stats
}

// FormatReport renders a human-readable profile, least unique columns first.
func FormatReport(p Profile) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s: %s format=%s encoding=%s", p.Name, p.Path, p.Format, p.Encoding)
	if p.Format == config.ParserCSV {
		fmt.Fprintf(&b, " delimiter=%q", p.Delimiter)
	}
	if p.Truncated {
		b.WriteString(" (sampled)")
	}
	b.WriteByte('\n')

	if len(p.Missing) > 0 {
		fmt.Fprintf(&b, "missing columns: %s\n", strings.Join(p.Missing, ", "))
	}
	keys := make([]string, 0, len(p.HeaderMap))
	for k := range p.HeaderMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "rename: %q -> %q\n", k, p.HeaderMap[k])
	}

	keyCol := cmdb.NameColumn
	if p.Name == "hostnames" {
		keyCol = ""
		if len(p.Columns) > 0 {
			keyCol = p.Columns[0]
		}
	}
	if renamed, ok := reverseLookup(p.HeaderMap, keyCol); ok {
		keyCol = renamed
	}
	if d := p.Stats.Duplicates(keyCol); d > 0 && p.Name != "hostnames" {
		fmt.Fprintf(&b, "warning: %d duplicate %s value(s); matching hostnames will appear once per duplicate\n", d, keyCol)
	}

	if p.Stats.TotalRows <= 0 {
		b.WriteString("uniqueness: no rows sampled")
		return b.String()
	}

	type row struct {
		Col    string
		Dist   int
		Den    int
		Ratio  float64
		Capped bool
	}
	rows := make([]row, 0, len(p.Stats.ColumnOrder))
	for _, col := range p.Stats.ColumnOrder {
		den := p.Stats.PerColumnTotal[col]
		if den <= 0 {
			continue
		}
		d := p.Stats.PerColumnDistinct[col]
		rows = append(rows, row{Col: col, Dist: d, Den: den, Ratio: float64(d) / float64(den), Capped: p.Stats.PerColumnCapped[col]})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Ratio == rows[j].Ratio {
			return rows[i].Col < rows[j].Col
		}
		return rows[i].Ratio < rows[j].Ratio
	})

	fmt.Fprintf(&b, "uniqueness report:\tsampled_rows=%d\n", p.Stats.TotalRows)
	fmt.Fprintf(&b, "%-15s\t%-7s\t%-7s\tratio\tcapped\n", "col", "unique", "rows")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-15s\t%-7d\t%d\t%.1f%%\t%t\n", r.Col, r.Dist, r.Den, r.Ratio*100, r.Capped)
	}
	return strings.TrimRight(b.String(), "\n")
}

// reverseLookup finds the original header mapped onto want.
func reverseLookup(m map[string]string, want string) (string, bool) {
	for k, v := range m {
		if v == want {
			return k, true
		}
	}
	return "", false
}

// Source turns a profile into the job config source that reads the whole
// file the same way the sample was read.
func (p Profile) Source() config.Source {
	s := config.Source{
		Kind:   config.SourceFile,
		File:   &config.FileSource{Path: p.Path, FallbackEncoding: config.DefaultFallbackEncoding},
		Parser: config.Parser{Kind: p.Format},
	}

	opts := config.Options{}
	if p.Format == config.ParserCSV && p.Delimiter != 0 && p.Delimiter != ',' {
		opts["comma"] = string(p.Delimiter)
	}
	if len(p.HeaderMap) > 0 {
		hm := make(map[string]any, len(p.HeaderMap))
		for k, v := range p.HeaderMap {
			hm[k] = v
		}
		opts["header_map"] = hm
	}
	if len(opts) > 0 {
		s.Parser.Options = opts
	}
	return s
}

// Job assembles a job config from the two profiles. A nil inventory leaves
// the inventory source empty for the caller to fill (e.g. with SQL).
func Job(name string, inventory *Profile, hostnames Profile) config.Job {
	j := config.Job{Job: name, Hostnames: hostnames.Source()}
	if inventory != nil {
		j.Inventory = inventory.Source()
	}
	j.Defaults()
	return j
}
