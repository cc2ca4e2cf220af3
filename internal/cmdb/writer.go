package cmdb

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"cmdbjoin/internal/table"
)

// DefaultPrefix names result files clean_csv_<YYYY-MM-DD>.csv.
const DefaultPrefix = "clean_csv_"

// Writer serializes a Result Table to a dated CSV file.
//
// The zero value writes clean_csv_<today>.csv into the working directory.
type Writer struct {
	Dir    string
	Prefix string
	Now    func() time.Time
}

// Path returns the file the writer targets for the current date.
func (w Writer) Path() string {
	dir := w.Dir
	if dir == "" {
		dir = "."
	}
	prefix := w.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	return filepath.Join(dir, prefix+now().Format("2006-01-02")+".csv")
}

// Write writes t as UTF-8 CSV with a header row and no index column. Nil
// cells are written as empty fields.
//
// Output goes to a temp file in the same directory that is renamed over the
// target, so a failed write leaves no partial file and an existing file is
// replaced. Failures are WriteErrors.
func (w Writer) Write(ctx context.Context, t *table.Table) (string, error) {
	path := w.Path()
	if err := writeAtomic(ctx, path, t); err != nil {
		return "", NewError(ErrWrite, "write "+path, err)
	}
	return path, nil
}

func writeAtomic(ctx context.Context, path string, t *table.Table) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	cw := csv.NewWriter(f)
	if err = cw.Write(t.Columns); err != nil {
		return err
	}

	rec := make([]string, len(t.Columns))
	for _, r := range t.Rows {
		if err = ctx.Err(); err != nil {
			return err
		}
		for i := range rec {
			rec[i] = table.Text(r.V[i])
		}
		if err = cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err = cw.Error(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	if err = f.Sync(); err != nil {
		return err
	}
	if err = f.Chmod(0o644); err != nil {
		return err
	}
	if err = f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
