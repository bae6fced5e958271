// Package app wires configuration into a ready Processor for the binaries.
package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/core"
	"github.com/joseph-ayodele/docrecon/internal/core/ocr"
	"github.com/joseph-ayodele/docrecon/internal/core/ocr/engines"
	"github.com/joseph-ayodele/docrecon/internal/core/schema"
	"github.com/joseph-ayodele/docrecon/internal/templates"
)

// App owns the long-lived collaborators of one process.
type App struct {
	Config    *common.Config
	Engine    ocr.Engine
	Pages     *ocr.Rasterizer
	Templates *templates.Registry
	Processor *core.Processor
	Logger    *slog.Logger
}

// NewLogger builds the process logger. JSON output suits daemons; text suits
// a terminal.
func NewLogger(w io.Writer, level slog.Level, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h)
}

// New validates cfg and constructs the engine, rasterizer, template registry
// and processor. Call Close when done.
func New(cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.OCR.ArtifactCacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact dir: %w", err)
	}

	registry, err := templates.Load(cfg.Templates.Dir, logger)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}
	engine, err := engines.New(cfg.OCR, logger)
	if err != nil {
		return nil, err
	}
	pages := ocr.NewRasterizer(engines.OCRConfig(cfg.OCR), logger)

	return &App{
		Config:    cfg,
		Engine:    engine,
		Pages:     pages,
		Templates: registry,
		Processor: core.NewProcessor(logger, engine, pages, registry, schema.NewValidator()),
		Logger:    logger,
	}, nil
}

func (a *App) Close() {
	if err := a.Engine.Close(); err != nil {
		a.Logger.Error("failed to close ocr engine", "error", err)
	}
}
