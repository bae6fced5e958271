package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/common"
)

// Rasterizer renders PDFs to one PNG per page with pdftoppm. Images pass
// through as a single page.
type Rasterizer struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewRasterizer(cfg Config, logger *slog.Logger) *Rasterizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{cfg: cfg.withDefaults(), runner: ExecRunner{Logger: logger}, logger: logger}
}

// WithRunner swaps the command runner; used by tests.
func (r *Rasterizer) WithRunner(run Runner) *Rasterizer {
	r.runner = run
	return r
}

// Rasterize returns the pages of path in order and a cleanup func that removes
// any rendered files. cleanup is never nil.
func (r *Rasterizer) Rasterize(ctx context.Context, path string, dpi int, g Granularity) ([]Page, func(), error) {
	noop := func() {}
	info, err := os.Stat(path)
	if err != nil {
		return nil, noop, common.InputMissing(path, err)
	}
	if info.IsDir() {
		return nil, noop, common.InputMissing(path, fmt.Errorf("is a directory"))
	}
	if dpi <= 0 {
		dpi = 300
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	switch constants.MapExtToFormat(ext) {
	case constants.IMAGE:
		return []Page{{Index: 0, Path: path, DPI: dpi, Granularity: g}}, noop, nil
	case constants.PDF:
	default:
		return nil, noop, fmt.Errorf("%w: unsupported extension %q", common.ErrInvalidInput, ext)
	}

	tmpDir, err := os.MkdirTemp(r.cfg.WorkDir, "docrecon-pp-*")
	if err != nil {
		return nil, noop, fmt.Errorf("rasterize: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			r.logger.Warn("failed to remove temp dir", "dir", tmpDir, "error", err)
		}
	}

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", strconv.Itoa(dpi), "-png"}
	if r.cfg.MaxPages > 0 {
		args = append(args, "-l", strconv.Itoa(r.cfg.MaxPages))
	}
	args = append(args, path, prefix)
	// pdftoppm -r 300 -png [-l N] <in.pdf> <tmp/page>
	if _, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, args...); err != nil {
		cleanup()
		return nil, noop, fmt.Errorf("rasterize: %w", commandError(r.cfg.Pdftoppm, err, errb))
	}

	matches, _ := filepath.Glob(prefix + "-*.png")
	sortPageFiles(matches)
	if r.cfg.MaxPages > 0 && len(matches) > r.cfg.MaxPages {
		matches = matches[:r.cfg.MaxPages]
	}
	if len(matches) == 0 {
		cleanup()
		return nil, noop, fmt.Errorf("rasterize: pdftoppm produced no images")
	}

	pages := make([]Page, len(matches))
	for i, m := range matches {
		pages[i] = Page{Index: i, Path: m, DPI: dpi, Granularity: g}
	}
	r.logger.Debug("rasterized pdf",
		"path", path,
		"pages", len(pages),
		"dpi", dpi,
		"template", common.TemplateFromContext(ctx),
		"request_id", common.RequestIDFromContext(ctx),
	)
	return pages, cleanup, nil
}

// sortPageFiles orders page-N.png numerically. pdftoppm zero-pads to the
// width of the page count, but numeric order holds either way.
func sortPageFiles(files []string) {
	num := func(p string) int {
		base := strings.TrimSuffix(filepath.Base(p), ".png")
		i := strings.LastIndex(base, "-")
		n, err := strconv.Atoi(base[i+1:])
		if err != nil {
			return -1
		}
		return n
	}
	sort.SliceStable(files, func(i, j int) bool { return num(files[i]) < num(files[j]) })
}
