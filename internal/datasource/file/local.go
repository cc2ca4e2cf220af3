// Package file is the Table Loader for local files: it reads a CSV, HTML or
// JSON export, decodes it to UTF-8 and parses it into a table.Table.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local is a file on the local filesystem.
type Local struct {
	path string
}

// NewLocal returns a Local for path.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the file path.
func (l *Local) Path() string { return l.path }

// Open opens the file for reading.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ReadAll returns the whole file.
func (l *Local) ReadAll(ctx context.Context) ([]byte, error) {
	rc, err := l.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", l.path, err)
	}
	return b, nil
}
