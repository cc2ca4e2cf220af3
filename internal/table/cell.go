package table

import (
	"fmt"
	"strings"
)

// IsEmpty reports whether a cell counts as missing: nil or the empty string.
func IsEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	default:
		return false
	}
}

// AllEmpty reports whether every cell of r is empty.
func AllEmpty(r Row) bool {
	for _, v := range r.V {
		if !IsEmpty(v) {
			return false
		}
	}
	return true
}

// Key converts a cell to a join key. Missing cells have no key.
//
// Keys are compared exactly; no case folding or trimming is applied so that
// "web01" and "WEB01 " stay distinct.
func Key(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case []byte:
		return string(t), true
	default:
		return fmt.Sprint(v), true
	}
}

// Text renders a cell for output. Missing cells render as "".
func Text(v any) string {
	s, _ := Key(v)
	return s
}

// HasEdgeSpace reports whether s starts or ends with ASCII whitespace.
func HasEdgeSpace(s string) bool {
	if s == "" {
		return false
	}
	return strings.ContainsRune(" \t\r\n", rune(s[0])) || strings.ContainsRune(" \t\r\n", rune(s[len(s)-1]))
}
