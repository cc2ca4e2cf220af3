package cmdb

import (
	"log/slog"

	"cmdbjoin/internal/table"
)

// Suffixes applied to non-key columns present on both sides of a join.
const (
	LeftSuffix  = "_x"
	RightSuffix = "_y"
)

// LeftJoin performs a hash left outer join of left onto right where
// left[leftKey] == right[rightKey].
//
// Every left row is kept, in order. A left row matching n right rows is
// emitted n times, in right-table order; an unmatched row gets nil for every
// right column. Missing keys (nil cells) never match. Keys compare exactly.
//
// Output columns are left columns followed by right columns. Names that
// appear on both sides get LeftSuffix/RightSuffix; when both keys share a
// name the right key column is omitted.
//
// A missing key column is a JoinError.
func LeftJoin(left, right *table.Table, leftKey, rightKey string) (*table.Table, error) {
	if missing := left.Missing(leftKey); len(missing) > 0 {
		return nil, NewError(ErrJoin, "join", &table.MissingColumnsError{Table: left.Name, Columns: missing})
	}
	if missing := right.Missing(rightKey); len(missing) > 0 {
		return nil, NewError(ErrJoin, "join", &table.MissingColumnsError{Table: right.Name, Columns: missing})
	}

	lk := left.Index(leftKey)
	rk := right.Index(rightKey)
	sharedKey := leftKey == rightKey

	cols, rightIdx := joinedColumns(left.Columns, right.Columns, rk, sharedKey)

	slog.Debug("starting left join",
		slog.String("left_table", left.Name),
		slog.String("right_table", right.Name),
		slog.String("left_column", leftKey),
		slog.String("right_column", rightKey),
		slog.Int("left_rows", left.Len()),
		slog.Int("right_rows", right.Len()),
	)

	index := buildJoinIndex(right, rk)

	out := table.New(left.Name+"+"+right.Name, cols)
	out.Rows = make([]table.Row, 0, left.Len())
	matched := 0

	for _, lr := range left.Rows {
		var hits []int
		if k, ok := table.Key(lr.V[lk]); ok {
			hits = index[k]
		}
		if len(hits) == 0 {
			out.Rows = append(out.Rows, combineRows(lr, nil, rightIdx, len(cols)))
			continue
		}
		matched++
		for _, pos := range hits {
			out.Rows = append(out.Rows, combineRows(lr, right.Rows[pos].V, rightIdx, len(cols)))
		}
	}

	slog.Debug("left join completed",
		slog.Int("matched_left_rows", matched),
		slog.Int("unmatched_left_rows", left.Len()-matched),
		slog.Int("result_rows", out.Len()),
	)
	return out, nil
}

// buildJoinIndex maps each key value to the positions of the rows holding it.
func buildJoinIndex(t *table.Table, col int) map[string][]int {
	idx := make(map[string][]int, t.Len())
	for i, r := range t.Rows {
		if k, ok := table.Key(r.V[col]); ok {
			idx[k] = append(idx[k], i)
		}
	}
	return idx
}

// joinedColumns returns the output column names and the right-side column
// positions that are carried into the output.
func joinedColumns(leftCols, rightCols []string, rk int, sharedKey bool) ([]string, []int) {
	inLeft := make(map[string]bool, len(leftCols))
	for _, c := range leftCols {
		inLeft[c] = true
	}
	inRight := make(map[string]bool, len(rightCols))
	for i, c := range rightCols {
		if sharedKey && i == rk {
			continue
		}
		inRight[c] = true
	}

	cols := make([]string, 0, len(leftCols)+len(rightCols))
	for _, c := range leftCols {
		if inRight[c] {
			c += LeftSuffix
		}
		cols = append(cols, c)
	}

	rightIdx := make([]int, 0, len(rightCols))
	for i, c := range rightCols {
		if sharedKey && i == rk {
			continue
		}
		if inLeft[c] {
			c += RightSuffix
		}
		cols = append(cols, c)
		rightIdx = append(rightIdx, i)
	}
	return cols, rightIdx
}

func combineRows(left table.Row, right []any, rightIdx []int, width int) table.Row {
	v := make([]any, width)
	n := copy(v, left.V)
	if right != nil {
		for i, si := range rightIdx {
			v[n+i] = right[si]
		}
	}
	return table.Row{V: v, Line: left.Line}
}
