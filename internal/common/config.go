package common

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig
	OCR       OCRConfig
	Queue     QueueConfig
	Watch     WatchConfig
	Templates TemplatesConfig
	LogLevel  slog.Level
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	GRPCAddr string
	HTTPAddr string
}

// OCRConfig holds OCR-related configuration
type OCRConfig struct {
	Engine           string // tesseract | gosseract | azure
	TesseractBin     string
	PdftoppmBin      string
	TessdataDir      string
	Language         string
	PSM              int // tesseract page segmentation mode; 0 keeps the engine default
	MaxPages         int
	Preprocess       bool
	ArtifactCacheDir string
	AzureEndpoint    string
	AzureKey         string
}

// QueueConfig holds worker pool configuration
type QueueConfig struct {
	Workers        int
	Size           int
	ProcessTimeout time.Duration
}

// WatchConfig holds inbox watcher configuration
type WatchConfig struct {
	InboxDir  string
	OutboxDir string
	Debounce  time.Duration
}

// TemplatesConfig holds template loading configuration
type TemplatesConfig struct {
	Dir string
}

// LoadConfig loads configuration from environment variables. A .env file in
// the working directory is read first when present.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load .env", "err", err)
	}
	return &Config{
		Server: ServerConfig{
			GRPCAddr: getEnv("GRPC_ADDR", ":8080"),
			HTTPAddr: getEnv("HTTP_ADDR", ":8081"),
		},
		OCR: OCRConfig{
			Engine:           strings.ToLower(getEnv("OCR_ENGINE", "tesseract")),
			TesseractBin:     getEnv("TESSERACT_BIN", "tesseract"),
			PdftoppmBin:      getEnv("PDFTOPPM_BIN", "pdftoppm"),
			TessdataDir:      getEnv("TESSDATA_PREFIX", ""),
			Language:         getEnv("OCR_LANG", "eng"),
			PSM:              getEnvAsInt("OCR_PSM", 0),
			MaxPages:         getEnvAsInt("OCR_MAX_PAGES", 20),
			Preprocess:       getEnvAsBool("OCR_PREPROCESS", false),
			ArtifactCacheDir: getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
			AzureEndpoint:    getEnv("AZURE_VISION_ENDPOINT", ""),
			AzureKey:         getEnv("AZURE_VISION_KEY", ""),
		},
		Queue: QueueConfig{
			Workers:        getEnvAsInt("QUEUE_WORKERS", 4),
			Size:           getEnvAsInt("QUEUE_SIZE", 256),
			ProcessTimeout: getEnvAsDuration("QUEUE_PROCESS_TIMEOUT", 3*time.Minute),
		},
		Watch: WatchConfig{
			InboxDir:  getEnv("DOCRECON_INBOX", ""),
			OutboxDir: getEnv("DOCRECON_OUTBOX", ""),
			Debounce:  getEnvAsDuration("DOCRECON_WATCH_DEBOUNCE", 750*time.Millisecond),
		},
		Templates: TemplatesConfig{
			Dir: getEnv("DOCRECON_TEMPLATES_DIR", ""),
		},
		LogLevel: getEnvAsLevel("DOCRECON_LOG_LEVEL", slog.LevelInfo),
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsLevel(key string, defaultValue slog.Level) slog.Level {
	if value := os.Getenv(key); value != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(value)); err == nil {
			return lvl
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("OCR_ENGINE", c.OCR.Engine, OneOf("tesseract", "gosseract", "azure")).
		Field("OCR_MAX_PAGES", c.OCR.MaxPages, Positive).
		Field("QUEUE_WORKERS", c.Queue.Workers, Positive).
		Field("GRPC_ADDR", c.Server.GRPCAddr, Required)
	if c.OCR.Engine == "azure" {
		v.Field("AZURE_VISION_ENDPOINT", c.OCR.AzureEndpoint, Required).
			Field("AZURE_VISION_KEY", c.OCR.AzureKey, Required)
	}
	if err := v.Err(); err != nil {
		return NewAppError("CONFIG_ERROR", "invalid configuration", err)
	}
	return nil
}
