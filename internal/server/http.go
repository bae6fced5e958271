package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/async"
	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/entity"
	"github.com/joseph-ayodele/docrecon/internal/export"
)

// JobQueue is the subset of the processor queue the HTTP API needs.
type JobQueue interface {
	Enqueue(ctx context.Context, job async.Job) error
	Status(id uuid.UUID) (constants.JobStatus, bool)
}

type HTTPOption func(*HTTPServer)

// WithQueue enables the asynchronous job routes.
func WithQueue(q JobQueue) HTTPOption {
	return func(s *HTTPServer) { s.queue = q }
}

// WithUploadDir sets where uploads are staged while they are processed.
func WithUploadDir(dir string) HTTPOption {
	return func(s *HTTPServer) { s.uploadDir = dir }
}

// WithMaxUploadBytes caps the multipart body size.
func WithMaxUploadBytes(n int64) HTTPOption {
	return func(s *HTTPServer) {
		if n > 0 {
			s.maxUpload = n
		}
	}
}

type HTTPServer struct {
	proc      DocumentProcessor
	exporter  *export.Service
	queue     JobQueue
	templates []string
	uploadDir string
	maxUpload int64
	logger    *slog.Logger
}

func NewHTTPServer(proc DocumentProcessor, templates []string, logger *slog.Logger, opts ...HTTPOption) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &HTTPServer{
		proc:      proc,
		exporter:  export.NewService(logger),
		templates: templates,
		uploadDir: os.TempDir(),
		maxUpload: 32 << 20,
		logger:    logger,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type processRequest struct {
	Path     string `json:"path" binding:"required"`
	Template string `json:"template" binding:"required"`
}

type exportRequest struct {
	Documents []processRequest `json:"documents" binding:"required,min=1,dive"`
}

// Handler builds the gin engine. Routes:
//
//	GET  /healthz
//	GET  /templates
//	POST /ocr/:template/upload   multipart field "pdf"
//	POST /ocr/process            {"path", "template"}
//	POST /ocr/export             {"documents": [{"path", "template"}]} -> xlsx
//	POST /ocr/jobs               {"path", "template"} (queue only)
//	GET  /ocr/jobs/:id           (queue only)
func (s *HTTPServer) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
	r.GET("/templates", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"templates": s.templates}) })

	ocr := r.Group("/ocr")
	ocr.POST("/:template/upload", s.upload)
	ocr.POST("/process", s.process)
	ocr.POST("/export", s.exportXLSX)
	if s.queue != nil {
		ocr.POST("/jobs", s.enqueue)
		ocr.GET("/jobs/:id", s.jobStatus)
	}
	return r
}

func (s *HTTPServer) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx, requestID := common.EnsureRequestID(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Request-ID", requestID)
		c.Next()
		s.logger.Info("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"request_id", requestID,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *HTTPServer) upload(c *gin.Context) {
	template := c.Param("template")
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	fh, err := c.FormFile("pdf")
	if err != nil {
		s.fail(c, fmt.Errorf("%w: multipart field \"pdf\" is required", common.ErrInvalidInput))
		return
	}
	ext := filepath.Ext(fh.Filename)
	if !constants.IsAllowedExt(ext) {
		s.fail(c, fmt.Errorf("%w: unsupported file type %q", common.ErrInvalidInput, ext))
		return
	}

	staged := filepath.Join(s.uploadDir, "upload-"+uuid.NewString()+strings.ToLower(ext))
	if err := c.SaveUploadedFile(fh, staged); err != nil {
		s.logger.Error("upload.save.failed", "file", fh.Filename, "err", err)
		s.fail(c, fmt.Errorf("%w: save upload: %v", common.ErrInternal, err))
		return
	}
	defer func() {
		if err := os.Remove(staged); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove staged upload", "path", staged, "error", err)
		}
	}()

	res, err := s.proc.Process(c.Request.Context(), staged, template)
	if err != nil {
		s.fail(c, err)
		return
	}
	res.Source = fh.Filename
	c.JSON(http.StatusOK, res.Payload())
}

func (s *HTTPServer) process(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	res, err := s.proc.Process(c.Request.Context(), req.Path, req.Template)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res.Payload())
}

func (s *HTTPServer) exportXLSX(c *gin.Context) {
	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	results := make([]*entity.Result, 0, len(req.Documents))
	for _, d := range req.Documents {
		res, err := s.proc.Process(c.Request.Context(), d.Path, d.Template)
		if err != nil {
			s.fail(c, err)
			return
		}
		results = append(results, res)
	}
	data, err := s.exporter.ExportXLSX(results)
	if err != nil {
		s.logger.Error("export.xlsx.failed", "err", err)
		s.fail(c, fmt.Errorf("%w: %v", common.ErrInternal, err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="docrecon.xlsx"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (s *HTTPServer) enqueue(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, fmt.Errorf("%w: %v", common.ErrInvalidInput, err))
		return
	}
	tpl, ok := constants.Canonicalize(req.Template)
	if !ok {
		s.fail(c, fmt.Errorf("%w: unknown template %q", common.ErrInvalidInput, req.Template))
		return
	}
	job := async.NewJob(req.Path, string(tpl))
	job.RequestID = common.RequestIDFromContext(c.Request.Context())
	if err := s.queue.Enqueue(c.Request.Context(), job); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID.String(), "status": constants.JobStatusQueued})
}

func (s *HTTPServer) jobStatus(c *gin.Context) {
	raw := c.Param("id")
	if err := common.NewValidator().Field("job_id", raw, common.UUID).Err(); err != nil {
		s.fail(c, err)
		return
	}
	id := uuid.MustParse(raw)
	st, ok := s.queue.Status(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": id.String(), "status": st})
}

func (s *HTTPServer) fail(c *gin.Context, err error) {
	code := common.HTTPStatus(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("http.request.failed", "path", c.FullPath(), "err", err)
	}
	c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
}
