// Package main implements the colgroup binary.
// It reads a tabular source, splits every row into column groups and prints
// the groups side by side as text or newline-delimited JSON.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/arkilian/colgroup/internal/config"
	"github.com/arkilian/colgroup/internal/logger"
	"github.com/arkilian/colgroup/internal/observability"
	"github.com/arkilian/colgroup/internal/render"
	"github.com/arkilian/colgroup/internal/source"
	"github.com/arkilian/colgroup/pkg/partition"
	"github.com/arkilian/colgroup/pkg/types"
)

var (
	version = "dev"
	commit  = "unknown"
)

// errMaxRows stops the scan once the row limit is reached.
var errMaxRows = errors.New("row limit reached")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "colgroup: %v\n", err)
		os.Exit(1)
	}
}

// run is main without the process exits.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("colgroup", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var (
		configFile  string
		envFile     string
		sourcePath  string
		format      string
		compression string
		delimiter   string
		noHeader    bool
		trimSpace   bool
		query       string
		groups      int
		ranges      string
		detect      bool
		output      string
		maxRows     int
		logLevel    string
		logFormat   string
		showStats   bool
		showVersion bool
	)

	fs.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	fs.StringVar(&envFile, "env-file", ".env", "Optional KEY=VALUE file loaded before COLGROUP_* variables are read")
	fs.StringVar(&sourcePath, "source", "", "Source object path (file path for local storage, key for s3)")
	fs.StringVar(&format, "format", "", "Source format: csv, arrow, sqlite")
	fs.StringVar(&compression, "compression", "", "CSV compression: none, snappy")
	fs.StringVar(&delimiter, "delimiter", "", "CSV field delimiter")
	fs.BoolVar(&noHeader, "no-header", false, "CSV has no header row")
	fs.BoolVar(&trimSpace, "trim", true, "Trim white space around CSV fields (-trim=false keeps it)")
	fs.StringVar(&query, "query", "", "SELECT statement for sqlite sources")
	fs.IntVar(&groups, "groups", 0, "Split into this many equal-width groups")
	fs.StringVar(&ranges, "ranges", "", "Explicit ranges, e.g. verbs:0-3,adjectives:3-6")
	fs.BoolVar(&detect, "detect", false, "Detect named groups from the header row")
	fs.StringVar(&output, "output", "", "Output format: text, json")
	fs.IntVar(&maxRows, "max-rows", -1, "Stop after this many data rows (0 for no limit)")
	fs.StringVar(&logLevel, "log-level", "", "Log level: none, debug, info, warn, error")
	fs.StringVar(&logFormat, "log-format", "", "Log format: text, json")
	fs.BoolVar(&showStats, "stats", false, "Log per-group scan statistics when done")
	fs.BoolVar(&showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "colgroup - split wide tables into named column groups\n\n")
		fmt.Fprintf(stderr, "Usage: colgroup [options]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  colgroup -source vocab.csv -detect\n")
		fmt.Fprintf(stderr, "  colgroup -source vocab.csv -ranges verbs:0-3,adjectives:3-6 -output json\n")
		fmt.Fprintf(stderr, "  colgroup -source words.db -format sqlite -query 'SELECT * FROM vocab' -groups 2\n")
		fmt.Fprintf(stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(stderr, "  COLGROUP_SOURCE_*     Source settings (path, format, compression, ...)\n")
		fmt.Fprintf(stderr, "  COLGROUP_PARTITION_*  Partition settings (mode, groups, ranges)\n")
		fmt.Fprintf(stderr, "  COLGROUP_STORAGE_TYPE Storage type (local, s3)\n")
		fmt.Fprintf(stderr, "  COLGROUP_S3_*         S3 bucket, region, endpoint\n")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if showVersion {
		fmt.Fprintf(stdout, "colgroup version %s (commit: %s)\n", version, commit)
		return nil
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	// Load configuration
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	// Apply command line flags (highest priority)
	if sourcePath != "" {
		cfg.Source.Path = sourcePath
	}
	if format != "" {
		cfg.Source.Format = format
	}
	if compression != "" {
		cfg.Source.Compression = compression
	}
	if delimiter != "" {
		cfg.Source.Delimiter = delimiter
	}
	if set["no-header"] {
		cfg.Source.HasHeader = !noHeader
	}
	if set["trim"] {
		cfg.Source.TrimSpace = trimSpace
	}
	if query != "" {
		cfg.Source.Query = query
	}
	switch {
	case detect:
		cfg.Partition.Mode = config.ModeHeader
	case ranges != "":
		parsed, err := config.ParseRanges(ranges)
		if err != nil {
			return err
		}
		cfg.Partition.Mode = config.ModeCustom
		cfg.Partition.Ranges = parsed
	case set["groups"]:
		cfg.Partition.Mode = config.ModeEqual
		cfg.Partition.Groups = groups
	}
	if output != "" {
		cfg.Output.Format = output
	}
	if maxRows >= 0 {
		cfg.Output.MaxRows = maxRows
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Log.Format, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	return partitionSource(ctx, cfg, log, stdout, showStats)
}

// partitionSource opens the configured source, partitions it and renders
// every row.
func partitionSource(ctx context.Context, cfg *config.Config, log *zap.Logger, stdout io.Writer, showStats bool) error {
	store, err := source.NewStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	src, err := source.Open(ctx, cfg.Source, store, log)
	if err != nil {
		return err
	}
	defer src.Close()

	stats := observability.NewScanStats()
	p, err := source.NewPartition(src.Stream, cfg.Partition,
		partition.WithLogger(log),
		partition.WithObserver(stats),
	)
	if err != nil {
		return err
	}

	r, err := render.New(cfg.Output.Format, stdout)
	if err != nil {
		return err
	}
	if err := r.Layout(p); err != nil {
		return err
	}

	err = p.ForEachRow(ctx, func(rowIndex int, views []types.RowView) error {
		if err := r.Row(rowIndex, views); err != nil {
			return err
		}
		if cfg.Output.MaxRows > 0 && rowIndex >= cfg.Output.MaxRows {
			return errMaxRows
		}
		return nil
	})
	if flushErr := r.Flush(); err == nil {
		err = flushErr
	}
	if err != nil && !errors.Is(err, errMaxRows) {
		return err
	}

	rows, fields, bytes := stats.Totals()
	log.Info("partition scanned",
		zap.String("partition_id", p.ID()),
		zap.String("source", src.Path),
		zap.Int("groups", p.GroupCount()),
		zap.Int64("rows", rows/int64(max(p.GroupCount(), 1))),
		zap.Int64("fields", fields),
		zap.Int64("bytes", bytes),
	)
	if showStats {
		logGroupStats(log, stats, p.GroupCount())
	}
	return nil
}

// logGroupStats logs one entry per group, heaviest groups first.
func logGroupStats(log *zap.Logger, stats *observability.ScanStats, groups int) {
	for _, g := range stats.TopByBytes(groups) {
		fields := []zap.Field{
			zap.Int("group", g.GroupIndex),
			zap.Int64("rows", g.Rows),
			zap.Int64("bytes", g.Bytes),
			zap.Float64("bytes_per_second", stats.Throughput(g.GroupIndex)),
		}
		if g.Err != "" {
			fields = append(fields, zap.String("error", g.Err))
		}
		log.Info("group stats", fields...)
	}
}
