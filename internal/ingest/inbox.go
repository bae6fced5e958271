package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/async"
	"github.com/joseph-ayodele/docrecon/internal/common"
	coreasync "github.com/joseph-ayodele/docrecon/internal/core/async"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

// Inbox feeds documents dropped below root into a queue. The first directory
// under root names the template, e.g. <root>/bank_statement/june.pdf.
type Inbox struct {
	root      string
	outbox    string
	templates []constants.Template
	debounce  time.Duration
	queue     async.Queue
	logger    *slog.Logger
}

// NewInbox accepts documents for the named templates, typically the loaded
// registry's names.
func NewInbox(root, outbox string, templates []string, debounce time.Duration, queue async.Queue, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	in := &Inbox{root: root, outbox: outbox, debounce: debounce, queue: queue, logger: logger}
	for _, name := range templates {
		if tpl, ok := constants.Canonicalize(name); ok {
			in.templates = append(in.templates, tpl)
		}
	}
	return in
}

// TemplateFor resolves the template from the path's first segment below root.
func (i *Inbox) TemplateFor(path string) (constants.Template, error) {
	rel, err := filepath.Rel(i.root, path)
	if err != nil {
		return "", fmt.Errorf("%w: %s is outside the inbox", common.ErrInvalidInput, path)
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 || parts[0] == ".." {
		return "", fmt.Errorf("%w: %s is not inside a template directory", common.ErrInvalidInput, path)
	}
	tpl, ok := constants.Canonicalize(parts[0])
	if ok && slices.Contains(i.templates, tpl) {
		return tpl, nil
	}
	return "", fmt.Errorf("%w: unknown template directory %q", common.ErrInvalidInput, parts[0])
}

// Run watches the inbox until ctx is done. Files already present are
// submitted first.
func (i *Inbox) Run(ctx context.Context) error {
	for _, tpl := range i.templates {
		if err := os.MkdirAll(filepath.Join(i.root, string(tpl)), 0o755); err != nil {
			return fmt.Errorf("prepare inbox: %w", err)
		}
	}
	paths, errs, err := StartWatcher(ctx, WatchConfig{
		Roots:       []string{i.root},
		Exclude:     i.outbox,
		InitialScan: true,
		Debounce:    i.debounce,
	}, i.logger)
	if err != nil {
		return fmt.Errorf("start watcher: %w", err)
	}
	i.logger.Info("inbox watching", "root", i.root, "outbox", i.outbox)

	for {
		select {
		case p, ok := <-paths:
			if !ok {
				return nil
			}
			i.submit(ctx, p)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			i.logger.Warn("inbox watcher error", "error", err)
		}
	}
}

func (i *Inbox) submit(ctx context.Context, path string) {
	tpl, err := i.TemplateFor(path)
	if err != nil {
		i.logger.Warn("inbox file skipped", "path", path, "error", err)
		return
	}
	job := async.NewJob(path, string(tpl))
	_, job.RequestID = common.EnsureRequestID(ctx)
	if err := i.queue.Enqueue(ctx, job); err != nil && !errors.Is(err, context.Canceled) {
		i.logger.Error("inbox enqueue failed", "path", path, "error", err)
	}
}

// WriteResults returns a queue handler that stores each outcome in outbox as
// <name>.json, or <name>.error.json when the job failed.
func WriteResults(outbox string, logger *slog.Logger) coreasync.ResultHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(_ context.Context, job async.Job, res *entity.Result, err error) {
		name := strings.TrimSuffix(filepath.Base(job.Path), filepath.Ext(job.Path))
		var (
			target string
			body   any
		)
		if err != nil {
			target = filepath.Join(outbox, name+".error.json")
			body = errorBody(job, err)
		} else {
			target = filepath.Join(outbox, name+".json")
			body = res.Payload()
		}
		if werr := writeJSON(target, body); werr != nil {
			logger.Error("outbox write failed", "path", target, "error", werr)
			return
		}
		logger.Debug("outbox written", "path", target, "job_id", job.ID)
	}
}

type failure struct {
	JobID    string `json:"job_id"`
	Path     string `json:"path"`
	Template string `json:"template"`
	Code     string `json:"code,omitempty"`
	Error    string `json:"error"`
}

func errorBody(job async.Job, err error) failure {
	f := failure{JobID: job.ID.String(), Path: job.Path, Template: job.Template, Error: err.Error()}
	var appErr *common.AppError
	if errors.As(err, &appErr) {
		f.Code = appErr.Code
	}
	return f
}

// writeJSON replaces target atomically so readers never see a partial file.
func writeJSON(target string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target), ".docrecon-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), target)
}
