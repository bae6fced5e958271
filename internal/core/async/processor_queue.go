package async

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/async"
	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

// DocumentProcessor is satisfied by *core.Processor.
type DocumentProcessor interface {
	Process(ctx context.Context, path, template string) (*entity.Result, error)
}

// ResultHandler receives every finished job. err is non-nil when the job
// failed; res is nil in that case.
type ResultHandler func(ctx context.Context, job async.Job, res *entity.Result, err error)

type ProcessorQueue struct {
	proc    DocumentProcessor
	logger  *slog.Logger
	workers int
	timeout time.Duration
	onDone  ResultHandler

	ch   chan async.Job
	wg   sync.WaitGroup
	once sync.Once

	// sendMu is held for reading while a job is sent on ch and for writing
	// while ch is closed, so a send never races the close. mu only guards
	// closed and status and is never held across a channel operation.
	sendMu sync.RWMutex
	mu     sync.Mutex
	closed bool
	status map[uuid.UUID]constants.JobStatus
}

type Option func(*ProcessorQueue)

func WithWorkers(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}
func WithQueueSize(n int) Option {
	return func(q *ProcessorQueue) {
		if n > 0 {
			q.ch = make(chan async.Job, n)
		}
	}
}
func WithProcessTimeout(d time.Duration) Option {
	return func(q *ProcessorQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}
func WithResultHandler(h ResultHandler) Option {
	return func(q *ProcessorQueue) {
		q.onDone = h
	}
}

func NewProcessorQueue(proc DocumentProcessor, logger *slog.Logger, opts ...Option) *ProcessorQueue {
	if logger == nil {
		logger = slog.Default()
	}
	q := &ProcessorQueue{
		proc:    proc,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan async.Job, 256),
		status:  make(map[uuid.UUID]constants.JobStatus),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *ProcessorQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("worker started", "worker_id", workerID)
				for job := range q.ch {
					q.run(workerID, job)
				}
				q.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *ProcessorQueue) run(workerID int, job async.Job) {
	q.setStatus(job.ID, constants.JobStatusRunning)

	ctx, cancel := common.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if job.RequestID != "" {
		ctx = common.WithRequestID(ctx, job.RequestID)
	}

	res, err := q.proc.Process(ctx, job.Path, job.Template)
	if err != nil {
		q.setStatus(job.ID, constants.JobStatusFailed)
		q.logger.Error("processing failed", "worker_id", workerID, "job_id", job.ID, "path", job.Path, "error", err)
	} else {
		q.setStatus(job.ID, constants.JobStatusDone)
		q.logger.Info("processed document", "worker_id", workerID, "job_id", job.ID, "path", job.Path,
			"rows", res.Meta.Rows, "wait_ms", time.Since(job.SubmittedAt).Milliseconds())
	}
	if q.onDone != nil {
		q.onDone(ctx, job, res, err)
	}
}

// Enqueue blocks while the buffer is full, until ctx is done. Workers keep
// draining meanwhile.
func (q *ProcessorQueue) Enqueue(ctx context.Context, job async.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	q.sendMu.RLock()
	defer q.sendMu.RUnlock()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.logger.Warn("cannot enqueue: queue is shutting down", "job_id", job.ID)
		return common.NewAppError("QUEUE_CLOSED", "queue is shutting down", common.ErrInternal)
	}
	q.status[job.ID] = constants.JobStatusQueued
	q.mu.Unlock()

	select {
	case q.ch <- job:
	default:
		q.logger.Warn("queue full, applying backpressure", "job_id", job.ID)
		select {
		case q.ch <- job:
		case <-ctx.Done():
			q.mu.Lock()
			delete(q.status, job.ID)
			q.mu.Unlock()
			return ctx.Err()
		}
	}
	q.logger.Info("queued document for processing", "job_id", job.ID, "path", job.Path, "template", job.Template)
	return nil
}

// Status reports the last known state of a job.
func (q *ProcessorQueue) Status(id uuid.UUID) (constants.JobStatus, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s, ok := q.status[id]
	return s, ok
}

func (q *ProcessorQueue) setStatus(id uuid.UUID, s constants.JobStatus) {
	q.mu.Lock()
	q.status[id] = s
	q.mu.Unlock()
}

// Shutdown stops intake, waits for senders already blocked on a full buffer,
// then drains the workers until ctx is done.
func (q *ProcessorQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.mu.Unlock()

	q.sendMu.Lock()
	close(q.ch)
	q.sendMu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("shutdown interrupted by context")
	case <-done:
		q.logger.Info("queue drained, shutdown complete")
	}
}

var _ async.Queue = (*ProcessorQueue)(nil)
