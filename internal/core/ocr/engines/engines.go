// Package engines builds the configured OCR engine.
package engines

import (
	"fmt"
	"log/slog"

	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/core/ocr"
	"github.com/joseph-ayodele/docrecon/internal/core/ocr/azure"
	"github.com/joseph-ayodele/docrecon/internal/core/ocr/libtess"
)

// Names of the selectable engines.
const (
	Tesseract = "tesseract"
	Gosseract = "gosseract"
	Azure     = "azure"
)

// OCRConfig maps application config onto the engine config.
func OCRConfig(c common.OCRConfig) ocr.Config {
	return ocr.Config{
		Tesseract:   c.TesseractBin,
		Pdftoppm:    c.PdftoppmBin,
		Language:    c.Language,
		TessdataDir: c.TessdataDir,
		PSM:         c.PSM,
		MaxPages:    c.MaxPages,
		WorkDir:     c.ArtifactCacheDir,
	}
}

// New constructs the engine named by cfg.Engine, wrapped with image
// enhancement when cfg.Preprocess is set. The caller owns Close.
func New(cfg common.OCRConfig, logger *slog.Logger) (ocr.Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	oc := OCRConfig(cfg)

	var (
		eng ocr.Engine
		err error
	)
	switch cfg.Engine {
	case "", Tesseract:
		eng = ocr.NewTesseractEngine(oc, logger)
	case Gosseract:
		eng, err = libtess.New(oc, logger)
	case Azure:
		if cfg.AzureEndpoint == "" || cfg.AzureKey == "" {
			return nil, fmt.Errorf("%w: azure engine needs AZURE_VISION_ENDPOINT and AZURE_VISION_KEY", common.ErrInvalidInput)
		}
		eng = azure.New(cfg.AzureEndpoint, cfg.AzureKey, cfg.Language, logger)
	default:
		return nil, fmt.Errorf("%w: unknown OCR engine %q", common.ErrInvalidInput, cfg.Engine)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s engine: %w", cfg.Engine, err)
	}
	if cfg.Preprocess {
		eng = ocr.WithPreprocessing(eng, cfg.ArtifactCacheDir, logger)
	}
	logger.Info("ocr engine ready", "engine", eng.Name())
	return eng, nil
}
