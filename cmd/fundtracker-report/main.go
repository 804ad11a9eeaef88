// Command fundtracker-report prints the budget summary of the configured
// ledger and optionally writes PDF, chart and CSV exports.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"fundtracker/internal/backend"
	"fundtracker/internal/cli"
	"fundtracker/internal/core"
	"fundtracker/internal/ledger"
	applog "fundtracker/internal/log"
	"fundtracker/internal/report"
	"fundtracker/internal/summary"
)

type options struct {
	partition string
	split     string
	years     string
	format    string
	pdfPath   string
	chartPath string
	csvPath   string
	title     string
}

func main() {
	var o options
	flag.StringVar(&o.partition, "partition", "none", "summary partition: none, year or quarter")
	flag.StringVar(&o.split, "split", "none", "budget split across partitions: none or even")
	flag.StringVar(&o.years, "years", "", "comma separated years to report, e.g. 2024,2025")
	flag.StringVar(&o.format, "format", "text", "table format: text or markdown")
	flag.StringVar(&o.pdfPath, "pdf", "", "write a PDF report to this path")
	flag.StringVar(&o.chartPath, "chart", "", "write the usage bar chart (PNG) to this path")
	flag.StringVar(&o.csvPath, "csv", "", "write the transactions as CSV to this path")
	flag.StringVar(&o.title, "title", "", "PDF title")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)
	logger = cli.SetupLogger(cfg.LogLevel, cfg.LogFormat).WithComponent(applog.ComponentReport)

	sumOpts, format, err := o.parse()
	if err != nil {
		fmt.Fprintln(os.Stderr, "fundtracker-report:", core.MessageOf(err))
		flag.Usage()
		os.Exit(2)
	}

	catalog, err := cli.LoadCatalog(cfg)
	if err != nil {
		logger.Error("Failed to load budget table", "error", err, "path", cfg.BudgetsFile)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Slog()).Create(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to create backend", "error", err)
		os.Exit(1)
	}
	defer result.Close()

	store := ledger.NewStore(result.Backend, catalog, ledger.WithLogger(logger.Slog()))
	loaded, err := store.Load(ctx)
	if err != nil {
		logger.Error("Failed to load ledger", "error", err, "backend", result.Describe)
		os.Exit(1)
	}
	if loaded.Dropped > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d malformed row(s) skipped\n", loaded.Dropped)
	}

	txs := store.Snapshot()
	rep := summary.Summarize(txs, catalog.Categories, sumOpts)

	if err := run(os.Stdout, o, format, rep, txs, cfg.CurrencyLabel); err != nil {
		logger.Error("Report failed", "error", err)
		os.Exit(1)
	}
}

func (o options) parse() (summary.Options, report.Format, error) {
	var opts summary.Options
	var err error
	if opts.Partition, err = summary.ParsePartition(o.partition); err != nil {
		return opts, "", err
	}
	if opts.Split, err = summary.ParseSplit(o.split); err != nil {
		return opts, "", err
	}
	for _, part := range strings.Split(o.years, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		y, err := strconv.Atoi(part)
		if err != nil {
			return opts, "", core.Invalid(fmt.Errorf("invalid year %q", part))
		}
		opts.Years = append(opts.Years, y)
	}
	format, err := report.ParseFormat(o.format)
	if err != nil {
		return opts, "", err
	}
	return opts, format, nil
}

func run(stdout io.Writer, o options, format report.Format, rep summary.Report, txs []core.Transaction, currency string) error {
	if err := report.WriteSummaryTable(stdout, rep, format); err != nil {
		return fmt.Errorf("write summary table: %w", err)
	}

	if o.pdfPath != "" {
		doc := report.Document{
			Title:         o.title,
			GeneratedAt:   time.Now(),
			CurrencyLabel: currency,
			Summary:       rep,
			Transactions:  txs,
		}
		if err := writeFile(o.pdfPath, func(w io.Writer) error { return report.WritePDF(w, doc) }); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "PDF written to", o.pdfPath)
	}

	if o.chartPath != "" {
		err := writeFile(o.chartPath, func(w io.Writer) error { return report.RenderUsageChart(w, rep) })
		switch {
		case errors.Is(err, report.ErrNoChartData):
			fmt.Fprintln(stdout, "No spend recorded, chart skipped")
		case err != nil:
			return err
		default:
			fmt.Fprintln(stdout, "Chart written to", o.chartPath)
		}
	}

	if o.csvPath != "" {
		if err := writeFile(o.csvPath, func(w io.Writer) error { return report.WriteTransactionsCSV(w, txs) }); err != nil {
			return err
		}
		fmt.Fprintln(stdout, "CSV written to", o.csvPath)
	}
	return nil
}

// writeFile renders into memory, then replaces path atomically.
func writeFile(path string, render func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		return err
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
