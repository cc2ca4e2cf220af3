// Command cmdbjoin joins a CMDB inventory export with a hostname list and
// writes clean_csv_<date>.csv with hostname, ip_address and model_id.name.
//
//	cmdbjoin -inventory cmdb.csv -hostnames hosts.csv [-out-dir DIR]
//	cmdbjoin -config job.json [-metrics-backend datadog] [-seq-url URL] [-v]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"cmdbjoin/internal/cmdb"
	"cmdbjoin/internal/config"
	"cmdbjoin/internal/datasource/file"
	"cmdbjoin/internal/datasource/sqlsrc"
	"cmdbjoin/internal/logging"
	"cmdbjoin/internal/metrics"
	"cmdbjoin/internal/metrics/datadog"
	"cmdbjoin/internal/table"

	// register every SQL inventory backend; the job config picks one.
	_ "cmdbjoin/internal/datasource/sqlsrc/all"
)

const usage = "usage: cmdbjoin -inventory PATH -hostnames PATH [-out-dir DIR] | cmdbjoin -config job.json"

// runner executes one job end to end.
type runner interface {
	Run(ctx context.Context, job config.Job) (cmdb.Result, error)
}

// appDeps are the side-effecting seams runMain uses.
type appDeps struct {
	readFile     func(string) ([]byte, error)
	unmarshal    func([]byte, any) error
	setupLogging func(logging.Options) func()
	initMetrics  func(ctx context.Context, jobName, backendName string) (func(), error)
	newRunner    func() runner
}

// metricsBackend is what initMetrics needs from a constructed backend.
type metricsBackend interface {
	Close() error
}

var (
	logPrintf = log.Printf

	newDatadogBackend = func(ctx context.Context, opts datadog.Options) (metricsBackend, error) {
		b, err := datadog.NewBackend(ctx, opts)
		if err != nil {
			return nil, err
		}
		return b, nil
	}

	setMetricsBackend = func(b any) {
		if mb, ok := b.(metrics.Backend); ok {
			metrics.SetBackend(mb)
		}
	}
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	code := runMain(ctx, os.Args[1:], os.Stdout, os.Stderr, appDeps{
		readFile:     os.ReadFile,
		unmarshal:    json.Unmarshal,
		setupLogging: setupLogging,
		initMetrics:  initMetrics,
		newRunner:    func() runner { return defaultRunner{} },
	})
	stop()
	os.Exit(code)
}

// runMain parses args, resolves the job, and runs it. It returns the process
// exit code: 2 for usage errors, 1 for config or run failures, 0 on success.
func runMain(ctx context.Context, args []string, stdout, stderr io.Writer, d appDeps) int {
	fs := flag.NewFlagSet("cmdbjoin", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		inventoryPath string
		hostnamesPath string
		cfgPath       string
		outDir        string
		backendName   string
		seqURL        string
		verbose       bool
	)
	fs.StringVar(&inventoryPath, "inventory", "", "CMDB inventory export (csv, html or json)")
	fs.StringVar(&hostnamesPath, "hostnames", "", "hostname list (csv)")
	fs.StringVar(&cfgPath, "config", "", "optional job config JSON")
	fs.StringVar(&outDir, "out-dir", "", "directory for the result file (default: config output.dir or .)")
	fs.StringVar(&backendName, "metrics-backend", "", "metrics backend: none|datadog (overrides env METRICS_BACKEND)")
	fs.StringVar(&seqURL, "seq-url", "", "ship logs to this Seq server as well")
	fs.BoolVar(&verbose, "v", false, "enable verbose logs")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, usage)
		}
		return 2
	}

	cfgPath = strings.TrimSpace(cfgPath)
	inventoryPath = strings.TrimSpace(inventoryPath)
	hostnamesPath = strings.TrimSpace(hostnamesPath)

	if fs.NArg() > 0 || (cfgPath == "" && (inventoryPath == "" || hostnamesPath == "")) {
		fmt.Fprintln(stderr, usage)
		return 2
	}

	var job config.Job
	if cfgPath != "" {
		raw, err := d.readFile(cfgPath)
		if err != nil {
			fmt.Fprintf(stderr, "read config: %v\n", err)
			return 1
		}
		if err := d.unmarshal(raw, &job); err != nil {
			fmt.Fprintf(stderr, "parse config: %v\n", err)
			return 1
		}
	}
	applyFlags(&job, inventoryPath, hostnamesPath, outDir)
	job.Defaults()

	issues := config.ValidateJob(job)
	for _, iss := range issues {
		fmt.Fprintln(stderr, iss.String())
	}
	if config.HasErrors(issues) {
		fmt.Fprintln(stderr, "invalid job configuration")
		return 1
	}

	closeLogs := d.setupLogging(logging.Options{Verbose: verbose, SeqURL: seqURL, Output: stderr})
	defer closeLogs()

	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	cleanup, err := d.initMetrics(ctx, job.Job, backendName)
	if err != nil {
		fmt.Fprintf(stderr, "init metrics: %v\n", err)
		return 1
	}
	defer cleanup()

	start := time.Now()
	res, err := d.newRunner().Run(ctx, job)
	if err != nil {
		fmt.Fprintf(stderr, "run: %v\n", err)
		return 1
	}
	if verbose {
		logPrintf("completed in %s: %d written, %d dropped", time.Since(start).Truncate(time.Millisecond), res.Written, res.Dropped)
	}

	fmt.Fprintf(stdout, "ok %s\n", res.Path)
	return 0
}

// applyFlags lets command-line paths override (or stand in for) the config.
func applyFlags(job *config.Job, inventoryPath, hostnamesPath, outDir string) {
	if inventoryPath != "" {
		job.Inventory = fileSource(job.Inventory, inventoryPath)
	}
	if hostnamesPath != "" {
		job.Hostnames = fileSource(job.Hostnames, hostnamesPath)
	}
	if outDir = strings.TrimSpace(outDir); outDir != "" {
		job.Output.Dir = outDir
	}
}

// fileSource points s at path, keeping file and parser settings that came
// from the config when s was already a file source.
func fileSource(s config.Source, path string) config.Source {
	if s.Kind != "" && s.Kind != config.SourceFile {
		s = config.Source{}
	}
	s.Kind = config.SourceFile
	s.SQL = nil
	if s.File == nil {
		s.File = &config.FileSource{}
	}
	s.File.Path = path
	if !strings.EqualFold(config.ParserKindForPath(path), s.Parser.Kind) {
		s.Parser.Kind = ""
	}
	return s
}

func setupLogging(opts logging.Options) func() {
	_, closeFn := logging.Setup(opts)
	return closeFn
}

// initMetrics installs the named backend and returns a cleanup that flushes
// it. cleanup is always non-nil.
func initMetrics(ctx context.Context, jobName, backendName string) (func(), error) {
	switch strings.ToLower(strings.TrimSpace(backendName)) {
	case "", "none", "noop":
		return func() {}, nil

	case "datadog", "dd":
		b, err := newDatadogBackend(ctx, datadog.Options{
			JobName:    jobName,
			Tags:       datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
			FlushEvery: 60 * time.Second,
		})
		if err != nil {
			return func() {}, datadog.WrapInitErr(err)
		}
		setMetricsBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				logPrintf("metrics: datadog close error: %v", err)
			}
		}, nil

	default:
		return func() {}, fmt.Errorf("unknown metrics backend %q (want none|datadog)", backendName)
	}
}

// defaultRunner loads both sources and runs the cmdb pipeline.
type defaultRunner struct{}

func (defaultRunner) Run(ctx context.Context, job config.Job) (cmdb.Result, error) {
	inventory, err := loadSource(ctx, "inventory", job.Inventory)
	if err != nil {
		return cmdb.Result{}, err
	}
	hostnames, err := loadSource(ctx, "hostnames", job.Hostnames)
	if err != nil {
		return cmdb.Result{}, err
	}
	return cmdb.Run(ctx, inventory, hostnames, cmdb.Options{
		Writer: cmdb.Writer{Dir: job.Output.Dir},
	})
}

func loadSource(ctx context.Context, name string, src config.Source) (*table.Table, error) {
	switch src.Kind {
	case config.SourceSQL:
		return sqlsrc.Load(ctx, name, *src.SQL)
	default:
		return file.Load(ctx, name, *src.File, src.Parser)
	}
}
