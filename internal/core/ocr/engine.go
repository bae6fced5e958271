// Package ocr adapts OCR engines and PDF rasterization into ordered token
// streams for the reconstruction packages.
package ocr

import (
	"context"

	"github.com/joseph-ayodele/docrecon/internal/entity"
)

// Granularity is the detection unit requested from an engine.
type Granularity string

const (
	Word Granularity = "word"
	Line Granularity = "line"
)

// Page is one rendered page image ready for recognition.
type Page struct {
	Index       int
	Path        string
	DPI         int
	Granularity Granularity
}

// Engine turns a page image into tokens in reading order. Engines are built
// once, shared across documents, and closed at shutdown.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, page Page) ([]entity.OcrToken, error)
	Close() error
}

// Config is shared by the engine constructors.
type Config struct {
	Tesseract   string // binary for the exec engine; default "tesseract"
	Pdftoppm    string // default "pdftoppm"
	Language    string // default "eng"
	TessdataDir string
	PSM         int // page segmentation mode; 0 leaves tesseract's default
	MaxPages    int // 0 = no limit
	WorkDir     string
}

func (c Config) withDefaults() Config {
	if c.Tesseract == "" {
		c.Tesseract = "tesseract"
	}
	if c.Pdftoppm == "" {
		c.Pdftoppm = "pdftoppm"
	}
	if c.Language == "" {
		c.Language = "eng"
	}
	return c
}
