package file

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode returns b as a UTF-8 string and the name of the encoding used.
//
// UTF-8 is tried first (a leading BOM is dropped). If b is not valid UTF-8 it
// is decoded with the named single-byte fallback instead. latin1 maps every
// byte to a rune, so the fallback itself cannot fail on content.
func Decode(b []byte, fallback string) (string, string, error) {
	b = bytes.TrimPrefix(b, utf8BOM)
	if utf8.Valid(b) {
		return string(b), "utf-8", nil
	}

	enc, name, err := fallbackEncoding(fallback)
	if err != nil {
		return "", "", err
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), name, nil
}

func fallbackEncoding(name string) (encoding.Encoding, string, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "latin1", "latin-1", "iso-8859-1":
		return charmap.ISO8859_1, "iso-8859-1", nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252, "windows-1252", nil
	case "windows-1250", "cp1250":
		return charmap.Windows1250, "windows-1250", nil
	default:
		return nil, "", fmt.Errorf("unsupported fallback encoding %q", name)
	}
}
