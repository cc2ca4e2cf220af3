// Package cmdb joins a CMDB inventory with a hostname list and writes the
// cleaned result.
//
// The pipeline is normalize → join → project → clean → write. Every step
// takes explicit tables and returns new ones; nothing is cached between
// runs. Failures are *Error values tagged with one of the Err* kinds.
package cmdb

import (
	"context"
	"log/slog"
	"time"

	"cmdbjoin/internal/metrics"
	"cmdbjoin/internal/table"
)

// Options configure a pipeline run.
type Options struct {
	Writer Writer
}

// Result summarizes a successful run.
type Result struct {
	Path      string
	Hostnames int // rows in the normalized hostname table
	Joined    int // rows after the left join, before cleanup
	Dropped   int // all-empty rows removed by cleanup
	Written   int // rows in the output file
}

// Build runs every step except writing and returns the Result Table.
func Build(ctx context.Context, inventory, hostnames *table.Table) (*table.Table, Result, error) {
	var res Result

	var hosts *table.Table
	err := step("normalize", func() (err error) {
		hosts, err = NormalizeHostnames(hostnames)
		return err
	})
	if err != nil {
		return nil, res, err
	}
	res.Hostnames = hosts.Len()

	if err := ctx.Err(); err != nil {
		return nil, res, err
	}

	var joined *table.Table
	err = step("join", func() (err error) {
		joined, err = LeftJoin(hosts, inventory, HostnameColumn, NameColumn)
		return err
	})
	if err != nil {
		return nil, res, err
	}
	res.Joined = joined.Len()
	metrics.RecordRows("joined", res.Joined)

	var out *table.Table
	err = step("project", func() (err error) {
		out, err = Project(joined)
		if err != nil {
			return err
		}
		out, res.Dropped = DropEmpty(out)
		return nil
	})
	if err != nil {
		return nil, res, err
	}
	metrics.RecordRows("dropped", res.Dropped)

	return out, res, nil
}

// Run builds the Result Table from inventory and hostnames and writes it with
// opts.Writer. Nothing is written unless every earlier step succeeds.
func Run(ctx context.Context, inventory, hostnames *table.Table, opts Options) (Result, error) {
	out, res, err := Build(ctx, inventory, hostnames)
	if err != nil {
		return res, err
	}

	err = step("write", func() (err error) {
		res.Path, err = opts.Writer.Write(ctx, out)
		return err
	})
	if err != nil {
		return res, err
	}
	res.Written = out.Len()
	metrics.RecordRows("written", res.Written)

	slog.Info("result written",
		slog.String("path", res.Path),
		slog.Int("hostnames", res.Hostnames),
		slog.Int("joined", res.Joined),
		slog.Int("dropped", res.Dropped),
		slog.Int("written", res.Written),
	)
	return res, nil
}

func step(name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordStep(name, start, err)
	if err != nil {
		slog.Debug("step failed", slog.String("step", name), slog.Any("error", err))
	}
	return err
}
