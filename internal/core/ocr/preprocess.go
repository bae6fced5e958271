package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/docrecon/internal/entity"
)

// Enhance settings used by Preprocess.
const (
	enhanceContrast = 30
	enhanceSharpen  = 1.5
)

// Preprocess writes a grayscale, contrast-boosted, sharpened copy of src into
// dir and returns its path. The pixel grid is preserved, so token coordinates
// stay comparable with template bands.
func Preprocess(src, dir string) (string, error) {
	img, err := imaging.Open(src)
	if err != nil {
		return "", fmt.Errorf("open image: %w", err)
	}
	out := imaging.Grayscale(img)
	out = imaging.AdjustContrast(out, enhanceContrast)
	out = imaging.Sharpen(out, enhanceSharpen)

	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	dst := filepath.Join(dir, base+"-enhanced.png")
	if err := imaging.Save(out, dst); err != nil {
		return "", fmt.Errorf("save enhanced image: %w", err)
	}
	return dst, nil
}

// preprocessingEngine enhances each page before delegating.
type preprocessingEngine struct {
	next    Engine
	workDir string
	logger  *slog.Logger
}

// WithPreprocessing wraps next so every page is enhanced first.
func WithPreprocessing(next Engine, workDir string, logger *slog.Logger) Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &preprocessingEngine{next: next, workDir: workDir, logger: logger}
}

func (p *preprocessingEngine) Name() string { return p.next.Name() + "+enhance" }

func (p *preprocessingEngine) Close() error { return p.next.Close() }

func (p *preprocessingEngine) Recognize(ctx context.Context, page Page) ([]entity.OcrToken, error) {
	dir, err := os.MkdirTemp(p.workDir, "docrecon-enh-*")
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			p.logger.Warn("failed to remove temp dir", "dir", dir, "error", err)
		}
	}()

	enhanced, err := Preprocess(page.Path, dir)
	if err != nil {
		return nil, fmt.Errorf("preprocess page %d: %w", page.Index, err)
	}
	page.Path = enhanced
	return p.next.Recognize(ctx, page)
}
