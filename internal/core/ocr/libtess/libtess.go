// Package libtess is an in-process OCR engine backed by libtesseract through
// gosseract. Build with cgo and the tesseract/leptonica headers installed.
package libtess

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/core/ocr"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

// Engine reuses one gosseract client. The client is not safe for concurrent
// use, so Recognize calls are serialized.
type Engine struct {
	mu     sync.Mutex
	client *gosseract.Client
	logger *slog.Logger
	closed bool
}

func New(cfg ocr.Config, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := gosseract.NewClient()
	lang := cfg.Language
	if lang == "" {
		lang = "eng"
	}
	if err := c.SetLanguage(lang); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("set language: %w", err)
	}
	if cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(cfg.TessdataDir); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(cfg.PSM)); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("set psm: %w", err)
		}
	}
	return &Engine{client: c, logger: logger}, nil
}

func (e *Engine) Name() string { return "gosseract" }

func (e *Engine) Recognize(ctx context.Context, page ocr.Page) ([]entity.OcrToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, common.ErrClosed
	}

	if err := e.client.SetImage(page.Path); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if page.DPI > 0 {
		if err := e.client.SetVariable("user_defined_dpi", strconv.Itoa(page.DPI)); err != nil {
			return nil, fmt.Errorf("set dpi: %w", err)
		}
	}

	level := gosseract.RIL_WORD
	if page.Granularity == ocr.Line {
		level = gosseract.RIL_TEXTLINE
	}
	boxes, err := e.client.GetBoundingBoxes(level)
	if err != nil {
		return nil, fmt.Errorf("bounding boxes: %w", err)
	}

	tokens := make([]entity.OcrToken, 0, len(boxes))
	for _, b := range boxes {
		tokens = append(tokens, entity.OcrToken{
			BBox: entity.BBox{
				X0: float64(b.Box.Min.X), Y0: float64(b.Box.Min.Y),
				X1: float64(b.Box.Max.X), Y1: float64(b.Box.Max.Y),
			},
			Text:       b.Word,
			Confidence: b.Confidence / 100.0,
			Page:       page.Index,
		})
	}
	e.logger.Debug("gosseract page recognized", "page", page.Index, "tokens", len(tokens))
	return tokens, nil
}

func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.client.Close()
}
