// Package azure recognizes pages with the Azure Computer Vision OCR API.
package azure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"

	"github.com/joseph-ayodele/docrecon/internal/core/ocr"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

// printedTextRecognizer is the subset of computervision.BaseClient we call.
type printedTextRecognizer interface {
	RecognizePrintedTextInStream(ctx context.Context, detectOrientation bool, image io.ReadCloser, language computervision.OcrLanguages) (computervision.OcrResult, error)
}

// Engine calls the printed-text OCR endpoint. The API reports no per-word
// confidence, so tokens carry 1.0.
type Engine struct {
	client printedTextRecognizer
	lang   computervision.OcrLanguages
	logger *slog.Logger
}

func New(endpoint, apiKey, lang string, logger *slog.Logger) *Engine {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return newEngine(client, lang, logger)
}

func newEngine(client printedTextRecognizer, lang string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	l := computervision.OcrLanguagesEn
	if lang != "" && lang != "eng" {
		l = computervision.OcrLanguages(lang)
	}
	return &Engine{client: client, lang: l, logger: logger}
}

func (e *Engine) Name() string { return "azure" }

func (e *Engine) Close() error { return nil }

func (e *Engine) Recognize(ctx context.Context, page ocr.Page) ([]entity.OcrToken, error) {
	f, err := os.Open(page.Path)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer f.Close()

	result, err := e.client.RecognizePrintedTextInStream(ctx, true, f, e.lang)
	if err != nil {
		return nil, fmt.Errorf("recognize printed text: %w", err)
	}
	tokens := tokensFromResult(result, page)
	e.logger.Debug("azure page recognized", "page", page.Index, "tokens", len(tokens))
	return tokens, nil
}

func tokensFromResult(result computervision.OcrResult, page ocr.Page) []entity.OcrToken {
	var tokens []entity.OcrToken
	if result.Regions == nil {
		return tokens
	}
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			if page.Granularity == ocr.Line {
				var b strings.Builder
				for _, w := range *line.Words {
					if w.Text != nil {
						b.WriteString(*w.Text)
						b.WriteString(" ")
					}
				}
				if box, ok := parseBox(line.BoundingBox); ok {
					tokens = append(tokens, token(strings.TrimSpace(b.String()), box, page.Index))
				}
				continue
			}
			for _, w := range *line.Words {
				if w.Text == nil {
					continue
				}
				if box, ok := parseBox(w.BoundingBox); ok {
					tokens = append(tokens, token(*w.Text, box, page.Index))
				}
			}
		}
	}
	return tokens
}

func token(text string, box entity.BBox, page int) entity.OcrToken {
	return entity.OcrToken{BBox: box, Text: text, Confidence: 1.0, Page: page}
}

// parseBox reads the "left,top,width,height" strings the API returns.
func parseBox(s *string) (entity.BBox, bool) {
	if s == nil {
		return entity.BBox{}, false
	}
	parts := strings.Split(*s, ",")
	if len(parts) < 4 {
		return entity.BBox{}, false
	}
	var v [4]float64
	for i := 0; i < 4; i++ {
		n, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return entity.BBox{}, false
		}
		v[i] = n
	}
	return entity.BBox{X0: v[0], Y0: v[1], X1: v[0] + v[2], Y1: v[1] + v[3]}, true
}
