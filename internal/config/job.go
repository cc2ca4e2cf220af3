// Package config defines the JSON job configuration for cmdbjoin and the
// validation rules applied before a run.
//
// A job names two sources (inventory and hostnames), how to parse them, and
// where the result goes. Every field is optional on disk; the CLI fills paths
// from flags and Defaults fills the rest.
package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Source kinds.
const (
	SourceFile = "file"
	SourceSQL  = "sql"
)

// Parser kinds.
const (
	ParserCSV  = "csv"
	ParserHTML = "html"
	ParserJSON = "json"
)

// DefaultFallbackEncoding decodes any byte sequence.
const DefaultFallbackEncoding = "latin1"

// Job is the top-level config document.
type Job struct {
	Job       string `json:"job"`
	Inventory Source `json:"inventory"`
	Hostnames Source `json:"hostnames"`
	Output    Output `json:"output"`
}

// Source describes where one input table comes from.
type Source struct {
	// Kind is "file" (default) or "sql". Only the inventory may be "sql".
	Kind   string      `json:"kind"`
	File   *FileSource `json:"file,omitempty"`
	SQL    *SQLSource  `json:"sql,omitempty"`
	Parser Parser      `json:"parser"`
}

// FileSource is a delimited text or HTML export on local disk.
type FileSource struct {
	Path string `json:"path"`

	// FallbackEncoding is used when the file is not valid UTF-8.
	// Supported: latin1 (default), windows-1252, windows-1250.
	FallbackEncoding string `json:"fallback_encoding,omitempty"`
}

// SQLSource reads the inventory from a database query.
type SQLSource struct {
	// Driver selects the registered backend: sqlite, postgres or mssql.
	Driver string `json:"driver"`
	// DSN is expanded with os.ExpandEnv before use.
	DSN   string `json:"dsn"`
	Query string `json:"query"`
}

// Parser selects how file bytes become a table.
type Parser struct {
	Kind    string  `json:"kind"`
	Options Options `json:"options"`
}

// Output controls where the result file is written.
type Output struct {
	Dir string `json:"dir"`
}

// Defaults fills unset fields in place.
func (j *Job) Defaults() {
	if j.Job == "" {
		j.Job = "cmdbjoin"
	}
	j.Inventory.defaults()
	j.Hostnames.defaults()
	if j.Output.Dir == "" {
		j.Output.Dir = "."
	}
}

func (s *Source) defaults() {
	if s.Kind == "" {
		s.Kind = SourceFile
	}
	if s.Kind == SourceFile && s.File != nil {
		if s.File.FallbackEncoding == "" {
			s.File.FallbackEncoding = DefaultFallbackEncoding
		}
		if s.Parser.Kind == "" {
			s.Parser.Kind = ParserKindForPath(s.File.Path)
		}
	}
}

// ParserKindForPath picks html for .html/.htm, json for .json/.jsonl and
// csv otherwise.
func ParserKindForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return ParserHTML
	case ".json", ".jsonl":
		return ParserJSON
	default:
		return ParserCSV
	}
}

// Severity of a validation issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one validation finding.
type Issue struct {
	Severity Severity
	Path     string
	Message  string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s: %s", i.Severity, i.Path, i.Message)
}

// ValidateJob checks a job after Defaults has been applied.
// It never fails fast; all findings are returned.
func ValidateJob(j Job) []Issue {
	var out []Issue
	out = append(out, validateSource("inventory", j.Inventory, true)...)
	out = append(out, validateSource("hostnames", j.Hostnames, false)...)
	if strings.TrimSpace(j.Output.Dir) == "" {
		out = append(out, Issue{SeverityError, "output.dir", "must not be empty"})
	}
	return out
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

func validateSource(path string, s Source, allowSQL bool) []Issue {
	var out []Issue
	switch s.Kind {
	case SourceFile:
		if s.File == nil || strings.TrimSpace(s.File.Path) == "" {
			out = append(out, Issue{SeverityError, path + ".file.path", "is required"})
			break
		}
		switch strings.ToLower(s.File.FallbackEncoding) {
		case "", "latin1", "latin-1", "iso-8859-1", "windows-1252", "cp1252", "windows-1250", "cp1250":
		default:
			out = append(out, Issue{SeverityError, path + ".file.fallback_encoding",
				fmt.Sprintf("unsupported encoding %q", s.File.FallbackEncoding)})
		}
		switch s.Parser.Kind {
		case ParserCSV, ParserHTML, ParserJSON:
		default:
			out = append(out, Issue{SeverityError, path + ".parser.kind",
				fmt.Sprintf("must be csv, html or json, got %q", s.Parser.Kind)})
		}
		if s.SQL != nil {
			out = append(out, Issue{SeverityWarning, path + ".sql", "ignored for kind=file"})
		}
	case SourceSQL:
		if !allowSQL {
			out = append(out, Issue{SeverityError, path + ".kind", "sql is only supported for the inventory"})
			break
		}
		if s.SQL == nil {
			out = append(out, Issue{SeverityError, path + ".sql", "is required for kind=sql"})
			break
		}
		switch s.SQL.Driver {
		case "sqlite", "postgres", "mssql":
		default:
			out = append(out, Issue{SeverityError, path + ".sql.driver",
				fmt.Sprintf("must be sqlite, postgres or mssql, got %q", s.SQL.Driver)})
		}
		if strings.TrimSpace(s.SQL.DSN) == "" {
			out = append(out, Issue{SeverityError, path + ".sql.dsn", "is required"})
		}
		if strings.TrimSpace(s.SQL.Query) == "" {
			out = append(out, Issue{SeverityError, path + ".sql.query", "is required"})
		}
	default:
		out = append(out, Issue{SeverityError, path + ".kind",
			fmt.Sprintf("must be file or sql, got %q", s.Kind)})
	}
	return out
}
