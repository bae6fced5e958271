package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/docrecon/internal/app"
	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/entity"
	"github.com/joseph-ayodele/docrecon/internal/export"
	"github.com/joseph-ayodele/docrecon/internal/ingest"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	os.Exit(run())
}

func run() int {
	var (
		template = flag.String("template", "", "template name: bank_statement, iocl_invoice or erv_challan (required)")
		dir      = flag.String("dir", "", "process every document in this directory instead of a single file")
		out      = flag.String("out", "", "directory for per-document JSON results (batch mode)")
		xlsx     = flag.String("xlsx", "", "also write an XLSX workbook to this path")
		jobs     = flag.Int("jobs", 4, "documents processed concurrently in batch mode")
	)
	flag.Usage = func() {
		printError("usage: docrecon -template NAME [-xlsx out.xlsx] FILE\n       docrecon -template NAME -dir DIR [-out DIR] [-xlsx out.xlsx] [-jobs N]\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *template == "" {
		printError("Error: -template is required\n")
		return 2
	}
	if (*dir == "") == (flag.NArg() != 1) {
		flag.Usage()
		return 2
	}

	cfg := common.LoadConfig()
	logger := app.NewLogger(os.Stderr, cfg.LogLevel, false)

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		return 1
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		results []*entity.Result
		code    int
	)
	if *dir == "" {
		res, err := a.Processor.Process(ctx, flag.Arg(0), *template)
		if err != nil {
			printError("Error: %v\n", err)
			return exitCode(err)
		}
		if err := writePayload(os.Stdout, res); err != nil {
			printError("Error: %v\n", err)
			return 1
		}
		results = append(results, res)
	} else {
		var failures int
		results, failures, err = runBatch(ctx, a, *dir, *template, *out, *jobs)
		if err != nil {
			printError("Error: %v\n", err)
			return exitCode(err)
		}
		fmt.Fprintf(os.Stderr, "Batch processing complete!\n")
		fmt.Fprintf(os.Stderr, "- Documents processed: %d\n", len(results))
		fmt.Fprintf(os.Stderr, "- Failures: %d\n", failures)
		if failures > 0 && len(results) == 0 {
			code = 1
		}
	}

	if *xlsx != "" {
		data, err := export.NewService(logger).ExportXLSX(results)
		if err != nil {
			logger.Error("failed to export results", "error", err)
			return 1
		}
		if err := os.WriteFile(*xlsx, data, 0o644); err != nil {
			logger.Error("failed to write output file", "error", err)
			return 1
		}
		logger.Info("wrote workbook", "path", *xlsx, "documents", len(results))
	}
	return code
}

// runBatch processes every supported file under dir with at most jobs in
// flight. Per-document failures are logged and counted, not fatal. Results
// come back in path order.
func runBatch(ctx context.Context, a *app.App, dir, template, out string, jobs int) ([]*entity.Result, int, error) {
	paths, stats, err := ingest.ScanDirectory(dir, true, out)
	if err != nil {
		return nil, 0, err
	}
	a.Logger.Info("scanned directory", "dir", dir, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)
	if out != "" {
		if err := os.MkdirAll(out, 0o755); err != nil {
			return nil, 0, err
		}
	}

	slots := make([]*entity.Result, len(paths))
	var (
		mu       sync.Mutex
		failures int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, p := range paths {
		g.Go(func() error {
			res, err := a.Processor.Process(gctx, p, template)
			if err != nil {
				if errors.Is(err, common.ErrInvalidInput) {
					return err
				}
				mu.Lock()
				failures++
				mu.Unlock()
				a.Logger.Error("failed to process document", "path", p, "error", err)
				return nil
			}
			slots[i] = res
			if out == "" {
				return nil
			}
			name := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)) + ".json"
			f, err := os.Create(filepath.Join(out, name))
			if err != nil {
				return err
			}
			defer f.Close()
			return writePayload(f, res)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, failures, err
	}

	results := make([]*entity.Result, 0, len(slots))
	for _, r := range slots {
		if r != nil {
			results = append(results, r)
		}
	}
	return results, failures, nil
}

func writePayload(f *os.File, res *entity.Result) error {
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Payload())
}

func exitCode(err error) int {
	if errors.Is(err, common.ErrInputMissing) || errors.Is(err, common.ErrInvalidInput) {
		return 2
	}
	return 1
}
