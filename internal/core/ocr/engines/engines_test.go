package engines

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/core/ocr"
)

func TestOCRConfigCarriesEngineSettings(t *testing.T) {
	got := OCRConfig(common.OCRConfig{
		TesseractBin:     "/usr/bin/tesseract",
		PdftoppmBin:      "/usr/bin/pdftoppm",
		Language:         "eng+fra",
		TessdataDir:      "/td",
		PSM:              6,
		MaxPages:         4,
		ArtifactCacheDir: "/cache",
	})
	want := ocr.Config{
		Tesseract:   "/usr/bin/tesseract",
		Pdftoppm:    "/usr/bin/pdftoppm",
		Language:    "eng+fra",
		TessdataDir: "/td",
		PSM:         6,
		MaxPages:    4,
		WorkDir:     "/cache",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("OCRConfig mismatch (-want +got):\n%s", diff)
	}
}

func TestNewRejectsUnknownEngine(t *testing.T) {
	_, err := New(common.OCRConfig{Engine: "paddle"}, nil)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestNewAzureNeedsCredentials(t *testing.T) {
	_, err := New(common.OCRConfig{Engine: Azure, AzureEndpoint: "https://x"}, nil)
	if !errors.Is(err, common.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
