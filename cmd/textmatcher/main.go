// Command textmatcher scans a file for literal search terms and prints, for
// each term, every line number and character offset where it occurs.
//
//	textmatcher -terms Timothy,home sample.txt
//	textmatcher -config configs/textmatcher.yaml -format json
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/report"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/scanner"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/internal/source"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/textmatcher/pkg/metrics"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("textmatcher", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to YAML config file")
	file := fs.String("file", "", "file to scan (or first positional argument)")
	terms := fs.String("terms", "", "comma-separated search terms (or remaining positional arguments)")
	batchSize := fs.Int("batch-size", 0, "lines per batch (default 1000)")
	workers := fs.Int("workers", 0, "worker count (default GOMAXPROCS)")
	format := fs.String("format", "text", "output format: text or json")
	timeout := fs.Duration("timeout", 0, "abort the scan after this long (default scan.timeout from config)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	logger.SetupWriter(stderr, cfg.Logging.Level, cfg.Logging.Format)

	applyFlags(&cfg.Scan, fs.Args(), *file, *terms, *batchSize, *workers)
	if *timeout > 0 {
		cfg.Scan.Timeout = *timeout
	}
	if *format != "text" && *format != "json" {
		fmt.Fprintf(stderr, "unknown format %q\n", *format)
		return 2
	}
	if err := cfg.Scan.Validate(true); err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return apperrors.ExitCode(err)
	}

	var opts []scanner.Option
	if cfg.Metrics.Enabled {
		opts = append(opts, scanner.WithMetrics(metrics.New()))
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(context.Background())
	}

	if cfg.Scan.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Scan.Timeout)
		defer cancel()
	}

	res, err := scanFile(ctx, cfg.Scan, opts...)
	if err != nil {
		slog.Error("scan failed", "file", cfg.Scan.FilePath, "kind", apperrors.Kind(err), "error", err)
		fmt.Fprintf(stderr, "Error processing file: %v\n", err)
		return apperrors.ExitCode(err)
	}

	if *format == "json" {
		err = report.WriteJSON(stdout, res)
	} else {
		err = report.WriteText(stdout, res.Terms, res.Matches)
	}
	if err != nil {
		fmt.Fprintf(stderr, "writing report: %v\n", err)
		return 1
	}
	slog.Info("scan completed",
		"file", cfg.Scan.FilePath,
		"lines", res.Stats.Lines,
		"batches", res.Stats.Batches,
		"matches", res.Stats.Matches,
		"duration", res.Stats.Duration,
	)
	return 0
}

func scanFile(ctx context.Context, cfg config.ScanConfig, opts ...scanner.Option) (*scanner.Result, error) {
	f, err := source.OpenFile(cfg.FilePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return scanner.New(cfg, opts...).Scan(ctx, f, cfg.Terms)
}

// applyFlags layers command-line values over the loaded scan config.
// Positional arguments are the file followed by terms.
func applyFlags(sc *config.ScanConfig, positional []string, file, terms string, batchSize, workers int) {
	if len(positional) > 0 && file == "" {
		file, positional = positional[0], positional[1:]
	}
	if file != "" {
		sc.FilePath = file
	}
	var list []string
	if terms != "" {
		list = strings.Split(terms, ",")
	}
	list = append(list, positional...)
	if len(list) > 0 {
		sc.Terms = list
	}
	if batchSize != 0 {
		sc.BatchSize = batchSize
	}
	if workers != 0 {
		sc.Workers = workers
	}
}
