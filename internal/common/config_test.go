package common

import (
	"errors"
	"log/slog"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"OCR_ENGINE", "QUEUE_WORKERS", "OCR_MAX_PAGES", "DOCRECON_LOG_LEVEL", "DOCRECON_TEMPLATES_DIR"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()
	if cfg.OCR.Engine != "tesseract" {
		t.Errorf("engine = %q", cfg.OCR.Engine)
	}
	if cfg.Queue.Workers != 4 || cfg.Queue.ProcessTimeout != 3*time.Minute {
		t.Errorf("queue = %+v", cfg.Queue)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("level = %v", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("OCR_ENGINE", "GOSSERACT")
	t.Setenv("QUEUE_WORKERS", "9")
	t.Setenv("OCR_PREPROCESS", "true")
	t.Setenv("OCR_PSM", "6")
	t.Setenv("DOCRECON_LOG_LEVEL", "debug")
	t.Setenv("QUEUE_PROCESS_TIMEOUT", "bogus")

	cfg := LoadConfig()
	if cfg.OCR.Engine != "gosseract" || cfg.Queue.Workers != 9 || !cfg.OCR.Preprocess {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.OCR.PSM != 6 {
		t.Errorf("Expected PSM 6, got %d", cfg.OCR.PSM)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("level = %v", cfg.LogLevel)
	}
	if cfg.Queue.ProcessTimeout != 3*time.Minute {
		t.Errorf("bad duration should fall back, got %v", cfg.Queue.ProcessTimeout)
	}
}

func TestValidateRejects(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{GRPCAddr: ":1"},
		OCR:    OCRConfig{Engine: "azure", MaxPages: 1},
		Queue:  QueueConfig{Workers: 0},
	}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("want ErrInvalidInput, got %v", err)
	}
	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code != "CONFIG_ERROR" {
		t.Errorf("want CONFIG_ERROR AppError, got %v", err)
	}
}

func TestErrorMapping(t *testing.T) {
	missing := InputMissing("/nope.pdf", nil)
	if got := HTTPStatus(missing); got != 400 {
		t.Errorf("HTTPStatus(missing) = %d", got)
	}
	if got := HTTPStatus(errors.New("boom")); got != 500 {
		t.Errorf("HTTPStatus(other) = %d", got)
	}
	if !errors.Is(missing, ErrInputMissing) {
		t.Error("InputMissing should wrap ErrInputMissing")
	}
	if ToStatus(nil) != nil {
		t.Error("ToStatus(nil) should be nil")
	}
}
