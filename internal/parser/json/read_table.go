// Package json reads a table.Table out of a JSON table export.
//
// Accepted shapes:
//   - a root array of objects: [{"name":"web01",...}, ...]
//   - an envelope object whose first array-of-objects field holds the
//     records, as in {"records":[...]} or {"result":[...]}
//   - a single object (one record)
//   - any of the above followed by further objects (JSON Lines)
//
// Nested objects are flattened with '.' so a reference field such as
// {"model_id":{"name":"ServerX"}} becomes the column "model_id.name".
package json

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"cmdbjoin/internal/config"
	"cmdbjoin/internal/table"
)

// ErrNoColumns is returned when the input holds no record fields.
var ErrNoColumns = errors.New("no columns to parse")

// field is one flattened key/value pair; val is nil or a string.
type field struct {
	key string
	val any
}

type record []field

// ReadTable parses r into a table named name.
//
// Options:
//   - header_map (map): rename flattened keys.
//   - array_join_separator (string, default ","): joins arrays of strings
//     into one cell. Other arrays are kept as compact JSON text.
//
// Columns appear in first-seen key order across all records. Missing keys,
// null and "" load as nil. Numbers and booleans keep their JSON spelling.
func ReadTable(ctx context.Context, r io.Reader, name string, opt config.Options) (*table.Table, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	sep := opt.String("array_join_separator", ",")
	if sep == "" {
		sep = ","
	}

	var recs []record
	emit := func(rec record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	}

	if err := readRoot(dec, sep, emit); err != nil {
		return nil, err
	}
	return buildTable(name, recs, opt.StringMap("header_map"))
}

func readRoot(dec *json.Decoder, sep string, emit func(record) error) error {
	tok, err := dec.Token()
	if err == io.EOF {
		return ErrNoColumns
	}
	if err != nil {
		return fmt.Errorf("json: read first token: %w", err)
	}

	d, ok := tok.(json.Delim)
	if !ok {
		return fmt.Errorf("json: unsupported root token %T (want object or array)", tok)
	}

	switch d {
	case '[':
		if err := readArrayOfObjects(dec, sep, emit); err != nil {
			return err
		}
	case '{':
		if err := readEnvelopeOrSingle(dec, sep, emit); err != nil {
			return err
		}
	default:
		return fmt.Errorf("json: unsupported root delimiter %q", d)
	}

	return readTrailingObjects(dec, sep, emit)
}

// readArrayOfObjects reads records until the closing ']' (the '[' has been
// consumed). null elements are skipped.
func readArrayOfObjects(dec *json.Decoder, sep string, emit func(record) error) error {
	n := 0
	for dec.More() {
		n++
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: record %d: %w", n, err)
		}
		if tok == nil {
			continue
		}
		if tok != json.Delim('{') {
			return fmt.Errorf("json: record %d: array element not an object (got %v)", n, tok)
		}
		var rec record
		if err := readObject(dec, "", sep, &rec); err != nil {
			return fmt.Errorf("json: record %d: %w", n, err)
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return expectDelim(dec, ']')
}

// readEnvelopeOrSingle walks a root object (the '{' has been consumed).
//
// The first field holding an array whose first element is an object (or an
// empty array) is the record list; the remaining fields are skipped.
// Otherwise the root object itself is the single record.
func readEnvelopeOrSingle(dec *json.Decoder, sep string, emit func(record) error) error {
	var single record

	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		valTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: read value of %q: %w", key, err)
		}

		switch valTok {
		case json.Delim('['):
			if !dec.More() {
				if err := expectDelim(dec, ']'); err != nil {
					return err
				}
				return skipRest(dec)
			}
			first, err := dec.Token()
			if err != nil {
				return fmt.Errorf("json: read %q: %w", key, err)
			}
			if first == json.Delim('{') {
				var rec record
				if err := readObject(dec, "", sep, &rec); err != nil {
					return fmt.Errorf("json: %s record 1: %w", key, err)
				}
				if err := emit(rec); err != nil {
					return err
				}
				if err := readArrayOfObjects(dec, sep, emit); err != nil {
					return err
				}
				return skipRest(dec)
			}
			arr, err := materializeArrayFrom(dec, first)
			if err != nil {
				return err
			}
			single = append(single, field{key, joinArray(arr, sep)})

		case json.Delim('{'):
			if err := readObject(dec, key+".", sep, &single); err != nil {
				return err
			}

		default:
			single = append(single, field{key, scalarText(valTok)})
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return err
	}
	return emit(single)
}

// readTrailingObjects reads further root-level objects (JSON Lines).
func readTrailingObjects(dec *json.Decoder, sep string, emit func(record) error) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("json: read trailing value: %w", err)
		}
		if tok != json.Delim('{') {
			return fmt.Errorf("json: trailing value is not an object (got %v)", tok)
		}
		var rec record
		if err := readObject(dec, "", sep, &rec); err != nil {
			return err
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
}

// readObject appends the fields of the current object to rec, flattening
// nested objects under prefix. The '{' has been consumed.
func readObject(dec *json.Decoder, prefix, sep string, rec *record) error {
	for dec.More() {
		key, err := readKey(dec)
		if err != nil {
			return err
		}
		key = prefix + key

		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("json: read value of %q: %w", key, err)
		}
		switch tok {
		case json.Delim('{'):
			if err := readObject(dec, key+".", sep, rec); err != nil {
				return err
			}
		case json.Delim('['):
			arr, err := materializeArray(dec)
			if err != nil {
				return err
			}
			*rec = append(*rec, field{key, joinArray(arr, sep)})
		default:
			*rec = append(*rec, field{key, scalarText(tok)})
		}
	}
	return expectDelim(dec, '}')
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("json: read object key: %w", err)
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("json: object key not a string (got %T)", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: read %q: %w", want, err)
	}
	if tok != want {
		return fmt.Errorf("json: expected %q, got %v", want, tok)
	}
	return nil
}

// skipRest skips the remaining fields of the current object and its '}'.
func skipRest(dec *json.Decoder) error {
	for dec.More() {
		if _, err := readKey(dec); err != nil {
			return err
		}
		if err := skipNextValue(dec); err != nil {
			return err
		}
	}
	return expectDelim(dec, '}')
}

// skipNextValue skips the next JSON value without materializing it.
func skipNextValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("json: skip value token: %w", err)
	}
	d, ok := tok.(json.Delim)
	if !ok {
		return nil
	}
	switch d {
	case '{':
		return skipRest(dec)
	case '[':
		for dec.More() {
			if err := skipNextValue(dec); err != nil {
				return err
			}
		}
		return expectDelim(dec, ']')
	default:
		return fmt.Errorf("json: unexpected delimiter %q", d)
	}
}

// materializeArray reads the rest of an array whose '[' has been consumed.
func materializeArray(dec *json.Decoder) ([]any, error) {
	var arr []any
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("json: read array value: %w", err)
		}
		v, err := materializeValueFromFirstToken(dec, tok)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if err := expectDelim(dec, ']'); err != nil {
		return nil, err
	}
	return arr, nil
}

// materializeArrayFrom is materializeArray when the first element's token
// has already been read.
func materializeArrayFrom(dec *json.Decoder, first json.Token) ([]any, error) {
	v, err := materializeValueFromFirstToken(dec, first)
	if err != nil {
		return nil, err
	}
	rest, err := materializeArray(dec)
	if err != nil {
		return nil, err
	}
	return append([]any{v}, rest...), nil
}

// materializeValueFromFirstToken builds a Go value for the current JSON
// value given its first token. Only used for array cells, which are small.
func materializeValueFromFirstToken(dec *json.Decoder, tok json.Token) (any, error) {
	d, ok := tok.(json.Delim)
	if !ok {
		return tok, nil
	}
	switch d {
	case '{':
		m := make(map[string]any)
		for dec.More() {
			k, err := readKey(dec)
			if err != nil {
				return nil, err
			}
			vt, err := dec.Token()
			if err != nil {
				return nil, fmt.Errorf("json: read nested value: %w", err)
			}
			v, err := materializeValueFromFirstToken(dec, vt)
			if err != nil {
				return nil, err
			}
			m[k] = v
		}
		if err := expectDelim(dec, '}'); err != nil {
			return nil, err
		}
		return m, nil
	case '[':
		return materializeArray(dec)
	default:
		return nil, fmt.Errorf("json: unexpected delimiter %q", d)
	}
}

// scalarText converts a scalar token to a cell: nil or a non-empty string.
func scalarText(tok json.Token) any {
	switch t := tok.(type) {
	case nil:
		return nil
	case string:
		if t == "" {
			return nil
		}
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// joinArray flattens an array of strings into one cell. Mixed or nested
// arrays are kept as compact JSON.
func joinArray(arr []any, sep string) any {
	ss := make([]string, 0, len(arr))
	for _, it := range arr {
		if it == nil {
			continue
		}
		s, ok := it.(string)
		if !ok {
			b, err := json.Marshal(arr)
			if err != nil {
				return fmt.Sprint(arr)
			}
			return string(b)
		}
		ss = append(ss, s)
	}
	if len(ss) == 0 {
		return nil
	}
	return strings.Join(ss, sep)
}

func buildTable(name string, recs []record, hm map[string]string) (*table.Table, error) {
	var cols []string
	index := make(map[string]int)

	colFor := func(key string) int {
		if mapped, ok := hm[key]; ok {
			key = mapped
		}
		i, ok := index[key]
		if !ok {
			i = len(cols)
			index[key] = i
			cols = append(cols, key)
		}
		return i
	}

	positions := make([][]int, len(recs))
	for r, rec := range recs {
		positions[r] = make([]int, len(rec))
		for f, fl := range rec {
			positions[r][f] = colFor(fl.key)
		}
	}
	if len(cols) == 0 {
		return nil, ErrNoColumns
	}

	t := table.New(name, cols)
	for r, rec := range recs {
		v := make([]any, len(cols))
		for f, fl := range rec {
			v[positions[r][f]] = fl.val
		}
		t.Rows = append(t.Rows, table.Row{V: v, Line: r + 1})
	}
	return t, nil
}
