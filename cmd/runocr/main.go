// Command runocr dumps what the OCR stage sees for one document, for
// calibrating template bands and rules.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/app"
	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/core/table"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

func main() {
	var (
		template = flag.String("template", "", "template whose dpi and granularity to use (required)")
		format   = flag.String("format", "lines", "output: tokens (json), lines, or rows (table templates only)")
		timeout  = flag.Duration("timeout", 2*time.Minute, "overall timeout")
	)
	flag.Parse()

	cfg := common.LoadConfig()
	logger := app.NewLogger(os.Stderr, cfg.LogLevel, true)

	if *template == "" || flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr -template NAME [-format tokens|lines|rows] FILE")
		os.Exit(2)
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	tpl, err := a.Templates.Get(*template)
	if err != nil {
		logger.Error("unknown template", "template", *template, "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	tokens, pages, err := a.Processor.Recognize(ctx, flag.Arg(0), tpl)
	if err != nil {
		logger.Error("ocr failed", "path", flag.Arg(0), "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}
	logger.Info("ocr ok",
		"engine", a.Engine.Name(),
		"pages", pages,
		"tokens", len(tokens),
		"confidence", entity.MeanConfidence(tokens),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	switch *format {
	case "tokens":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(tokens)
	case "lines":
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for i, t := range tokens {
			fmt.Fprintf(w, "%d\t%d\t%.0f,%.0f\t%.2f\t%s\n", i, t.Page, t.XCenter(), t.YCenter(), t.Confidence, t.Text)
		}
		err = w.Flush()
	case "rows":
		if tpl.Kind() != constants.KindTable {
			logger.Error("rows output needs a table template", "template", tpl.Name)
			os.Exit(2)
		}
		rows := table.ReconstructRows(tokens, tpl.Table.Bands, tpl.Table.Tolerance)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, b := range tpl.Table.Bands {
			fmt.Fprintf(w, "%s\t", b.Name)
		}
		fmt.Fprintln(w)
		for _, r := range rows {
			for _, b := range tpl.Table.Bands {
				fmt.Fprintf(w, "%s\t", r.Get(b.Name))
			}
			fmt.Fprintln(w)
		}
		err = w.Flush()
	default:
		logger.Error("unknown format", "format", *format)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("write output", "error", err)
		os.Exit(1)
	}
}
