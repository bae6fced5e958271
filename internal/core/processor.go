package core

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/core/normalize"
	"github.com/joseph-ayodele/docrecon/internal/core/ocr"
	"github.com/joseph-ayodele/docrecon/internal/core/schema"
	"github.com/joseph-ayodele/docrecon/internal/core/table"
	"github.com/joseph-ayodele/docrecon/internal/entity"
	"github.com/joseph-ayodele/docrecon/internal/templates"
)

// PageSource renders a document into page images.
type PageSource interface {
	Rasterize(ctx context.Context, path string, dpi int, g ocr.Granularity) ([]ocr.Page, func(), error)
}

// Processor coordinates rasterization, OCR, and template-driven
// reconstruction for one document at a time. It is safe for concurrent use
// as long as the engine is.
type Processor struct {
	logger    *slog.Logger
	engine    ocr.Engine
	pages     PageSource
	templates *templates.Registry
	validator *schema.Validator
}

func NewProcessor(
	logger *slog.Logger,
	engine ocr.Engine,
	pages PageSource,
	registry *templates.Registry,
	validator *schema.Validator,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if validator == nil {
		validator = schema.NewValidator()
	}
	return &Processor{
		logger:    logger,
		engine:    engine,
		pages:     pages,
		templates: registry,
		validator: validator,
	}
}

// Templates exposes the registry for callers that need to resolve names.
func (p *Processor) Templates() *templates.Registry { return p.templates }

// Process extracts structured records from the document at path using the
// named template. A missing document or unknown template is an error; a
// document that yields no valid rows is an empty result.
func (p *Processor) Process(ctx context.Context, path, templateName string) (*entity.Result, error) {
	start := time.Now()
	tpl, err := p.templates.Get(templateName)
	if err != nil {
		return nil, err
	}
	ctx = common.WithTemplate(ctx, string(tpl.Name))
	logger := p.logger.With("path", path, "template", tpl.Name, "request_id", common.RequestIDFromContext(ctx))

	tokens, pages, err := p.Recognize(ctx, path, tpl)
	if err != nil {
		logger.Error("processor.ocr.failed", "err", err)
		return nil, err
	}
	logger.Debug("processor ocr success", "pages", pages, "tokens", len(tokens))

	res := p.Reconstruct(tpl, tokens)
	res.Source = filepath.Base(path)
	res.Meta.Pages = pages
	res.Meta.Duration = time.Since(start)

	if err := p.validator.Validate(tpl, res.Payload()); err != nil {
		logger.Error("processor.schema.failed", "err", err)
		return nil, err
	}

	logger.Info("extracted document",
		"id", res.ID,
		"rows", res.Meta.Rows,
		"confidence", res.Meta.Confidence,
		"duration_ms", res.Meta.Duration.Milliseconds(),
	)
	return res, nil
}

// Recognize rasterizes path and runs OCR on every page in order, returning the
// cleaned tokens and the page count.
func (p *Processor) Recognize(ctx context.Context, path string, tpl *templates.Template) ([]entity.OcrToken, int, error) {
	pages, cleanup, err := p.pages.Rasterize(ctx, path, tpl.DPI, ocr.Granularity(tpl.Granularity))
	defer cleanup()
	if err != nil {
		return nil, 0, err
	}

	var tokens []entity.OcrToken
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		toks, err := p.engine.Recognize(ctx, page)
		if err != nil {
			return nil, 0, fmt.Errorf("recognize page %d: %w", page.Index+1, err)
		}
		for i := range toks {
			toks[i].Page = page.Index
		}
		tokens = append(tokens, ocr.CleanTokens(toks)...)
	}
	return tokens, len(pages), nil
}

// Reconstruct applies the template to already-recognized tokens.
func (p *Processor) Reconstruct(tpl *templates.Template, tokens []entity.OcrToken) *entity.Result {
	res := &entity.Result{
		ID:       uuid.New(),
		Template: tpl.Name,
		Kind:     tpl.Kind(),
		Meta: entity.Meta{
			Engine:     p.engineName(),
			Tokens:     len(tokens),
			Confidence: entity.MeanConfidence(tokens),
		},
	}

	if tpl.Kind() == constants.KindTable {
		rows := table.ReconstructRows(tokens, tpl.Table.Bands, tpl.Table.Tolerance)
		res.Transactions = make([]entity.ParsedTransaction, 0, len(rows))
		for _, r := range rows {
			tx, ok := normalize.ValidateTransaction(r)
			if !ok {
				p.logger.Debug("row rejected", "page", r.Page, "y", r.Key, "txn_date", r.Get(normalize.ColTxnDate))
				continue
			}
			res.Transactions = append(res.Transactions, tx)
		}
		res.Meta.Rows = len(res.Transactions)
		if len(rows) > 0 && len(res.Transactions) == 0 {
			res.Meta.Warnings = append(res.Meta.Warnings, "no rows passed validation; check column bands")
		}
		return res
	}

	fields, items := tpl.Scanner().Scan(entity.LinesFromTokens(tokens))
	res.Fields = fields
	res.FieldOrder = tpl.FieldOrder()
	res.Items = items
	res.Meta.Rows = len(items)
	return res
}

func (p *Processor) engineName() string {
	if p.engine == nil {
		return ""
	}
	return p.engine.Name()
}
