package ocr

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docrecon/internal/entity"
)

// TesseractEngine shells out to the tesseract CLI and parses its TSV output.
// It holds no per-call state.
type TesseractEngine struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(cfg Config, logger *slog.Logger) *TesseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{cfg: cfg.withDefaults(), runner: ExecRunner{Logger: logger}, logger: logger}
}

// WithRunner swaps the command runner; used by tests.
func (e *TesseractEngine) WithRunner(r Runner) *TesseractEngine {
	e.runner = r
	return e
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Close() error { return nil }

func (e *TesseractEngine) Recognize(ctx context.Context, page Page) ([]entity.OcrToken, error) {
	args := []string{page.Path, "stdout", "-l", e.cfg.Language}
	if page.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(page.DPI))
	}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return nil, commandError(e.cfg.Tesseract, err, errb)
	}
	tokens, err := ParseTSV(out, page.Index, page.Granularity)
	if err != nil {
		return nil, fmt.Errorf("parse tsv: %w", err)
	}
	e.logger.Debug("tesseract page recognized", "page", page.Index, "tokens", len(tokens), "granularity", page.Granularity)
	return tokens, nil
}

// TSV columns emitted by tesseract.
const (
	tsvLevel = iota
	tsvPage
	tsvBlock
	tsvPar
	tsvLine
	tsvWord
	tsvLeft
	tsvTop
	tsvWidth
	tsvHeight
	tsvConf
	tsvText
	tsvColumns
)

const tsvWordLevel = 5

type lineKey struct{ block, par, line int }

type lineAcc struct {
	box   entity.BBox
	words []string
	conf  float64
}

// ParseTSV converts tesseract TSV into tokens in reading order. Word
// granularity yields one token per word; line granularity merges the words
// of each (block, paragraph, line) with the union of their boxes and the mean
// of their confidences. Confidences are scaled to 0..1.
func ParseTSV(data []byte, page int, g Granularity) ([]entity.OcrToken, error) {
	var (
		words []entity.OcrToken
		keys  []lineKey
	)
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	first := true
	for sc.Scan() {
		ln := sc.Text()
		if first {
			first = false
			if strings.HasPrefix(ln, "level") {
				continue
			}
		}
		if ln == "" {
			continue
		}
		cols := strings.SplitN(ln, "\t", tsvColumns)
		if len(cols) < tsvColumns {
			continue
		}
		nums := make([]int, tsvConf)
		for i := 0; i < tsvConf; i++ {
			n, err := strconv.Atoi(cols[i])
			if err != nil {
				return nil, fmt.Errorf("column %d %q: %w", i, cols[i], err)
			}
			nums[i] = n
		}
		if nums[tsvLevel] != tsvWordLevel {
			continue
		}
		conf, err := strconv.ParseFloat(cols[tsvConf], 64)
		if err != nil {
			return nil, fmt.Errorf("conf %q: %w", cols[tsvConf], err)
		}
		text := strings.TrimSpace(cols[tsvText])
		if conf < 0 || text == "" {
			continue
		}
		x, y := float64(nums[tsvLeft]), float64(nums[tsvTop])
		words = append(words, entity.OcrToken{
			BBox:       entity.BBox{X0: x, Y0: y, X1: x + float64(nums[tsvWidth]), Y1: y + float64(nums[tsvHeight])},
			Text:       text,
			Confidence: conf / 100,
			Page:       page,
		})
		keys = append(keys, lineKey{nums[tsvBlock], nums[tsvPar], nums[tsvLine]})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if g != Line {
		return words, nil
	}
	return mergeLines(words, keys), nil
}

func mergeLines(words []entity.OcrToken, keys []lineKey) []entity.OcrToken {
	var order []lineKey
	acc := make(map[lineKey]*lineAcc)
	for i, w := range words {
		k := keys[i]
		a, ok := acc[k]
		if !ok {
			a = &lineAcc{box: w.BBox}
			acc[k] = a
			order = append(order, k)
		}
		a.words = append(a.words, w.Text)
		a.conf += w.Confidence
		a.box = union(a.box, w.BBox)
	}
	out := make([]entity.OcrToken, 0, len(order))
	for _, k := range order {
		a := acc[k]
		out = append(out, entity.OcrToken{
			BBox:       a.box,
			Text:       strings.Join(a.words, " "),
			Confidence: a.conf / float64(len(a.words)),
			Page:       words[0].Page,
		})
	}
	return out
}

func union(a, b entity.BBox) entity.BBox {
	return entity.BBox{
		X0: min(a.X0, b.X0),
		Y0: min(a.Y0, b.Y0),
		X1: max(a.X1, b.X1),
		Y1: max(a.Y1, b.Y1),
	}
}
