package async

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/docrecon/constants"
	"github.com/joseph-ayodele/docrecon/internal/async"
	"github.com/joseph-ayodele/docrecon/internal/common"
	"github.com/joseph-ayodele/docrecon/internal/entity"
)

type fakeProcessor struct {
	mu    sync.Mutex
	paths []string
}

func (f *fakeProcessor) Process(ctx context.Context, path, template string) (*entity.Result, error) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	if path == "missing.pdf" {
		return nil, common.InputMissing(path, nil)
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a deadline")
	}
	return &entity.Result{Source: path, Template: constants.Template(template)}, nil
}

func TestProcessorQueue(t *testing.T) {
	proc := &fakeProcessor{}
	var (
		mu      sync.Mutex
		done    = make(map[string]error)
		results = make(chan struct{}, 8)
	)
	handler := func(_ context.Context, job async.Job, res *entity.Result, err error) {
		mu.Lock()
		done[job.Path] = err
		mu.Unlock()
		if err == nil && res.Source != job.Path {
			t.Errorf("result for wrong job: %q vs %q", res.Source, job.Path)
		}
		results <- struct{}{}
	}
	q := NewProcessorQueue(proc, nil, WithWorkers(2), WithQueueSize(1), WithProcessTimeout(time.Second), WithResultHandler(handler))

	okJob := async.NewJob("a.pdf", "bank_statement")
	badJob := async.NewJob("missing.pdf", "bank_statement")
	for _, j := range []async.Job{okJob, badJob, async.NewJob("b.pdf", "iocl_invoice")} {
		if err := q.Enqueue(context.Background(), j); err != nil {
			t.Fatalf("Enqueue: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		select {
		case <-results:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for results")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	q.Shutdown(ctx)

	mu.Lock()
	defer mu.Unlock()
	if done["a.pdf"] != nil || done["b.pdf"] != nil {
		t.Errorf("unexpected errors: %v", done)
	}
	if !errors.Is(done["missing.pdf"], common.ErrInputMissing) {
		t.Errorf("Expected ErrInputMissing for missing.pdf, got %v", done["missing.pdf"])
	}
	if s, _ := q.Status(okJob.ID); s != constants.JobStatusDone {
		t.Errorf("Expected DONE, got %s", s)
	}
	if s, _ := q.Status(badJob.ID); s != constants.JobStatusFailed {
		t.Errorf("Expected FAILED, got %s", s)
	}

	if err := q.Enqueue(context.Background(), async.NewJob("late.pdf", "bank_statement")); err == nil {
		t.Error("Expected enqueue after shutdown to fail")
	}
}

type gatedProcessor struct {
	started chan string
	release chan struct{}
}

func (g *gatedProcessor) Process(ctx context.Context, path, template string) (*entity.Result, error) {
	g.started <- path
	<-g.release
	return &entity.Result{Source: path, Template: constants.Template(template)}, nil
}

func TestProcessorQueueBackpressureDrains(t *testing.T) {
	proc := &gatedProcessor{started: make(chan string, 4), release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1), WithProcessTimeout(time.Minute))
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		q.Shutdown(ctx)
	}()

	first := async.NewJob("first.pdf", "bank_statement")
	if err := q.Enqueue(context.Background(), first); err != nil {
		t.Fatalf("Enqueue first: %v", err)
	}
	select {
	case <-proc.started:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the first job")
	}
	// The single slot is now taken by the second job.
	if err := q.Enqueue(context.Background(), async.NewJob("second.pdf", "bank_statement")); err != nil {
		t.Fatalf("Enqueue second: %v", err)
	}

	third := async.NewJob("third.pdf", "bank_statement")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- q.Enqueue(ctx, third) }()

	time.Sleep(50 * time.Millisecond)
	if s, _ := q.Status(first.ID); s != constants.JobStatusRunning {
		t.Errorf("Expected RUNNING while the buffer is full, got %s", s)
	}
	close(proc.release)

	start := time.Now()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Enqueue third: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Enqueue stayed blocked after the worker freed capacity")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Expected third Enqueue to return promptly, took %v", elapsed)
	}
	if s, ok := q.Status(third.ID); !ok || s == "" {
		t.Errorf("Expected a status for the third job, got %q", s)
	}
}

func TestProcessorQueueEnqueueCanceledWhileFull(t *testing.T) {
	proc := &gatedProcessor{started: make(chan string, 4), release: make(chan struct{})}
	q := NewProcessorQueue(proc, nil, WithWorkers(1), WithQueueSize(1))
	defer func() {
		close(proc.release)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		q.Shutdown(ctx)
	}()

	if err := q.Enqueue(context.Background(), async.NewJob("a.pdf", "bank_statement")); err != nil {
		t.Fatal(err)
	}
	<-proc.started
	if err := q.Enqueue(context.Background(), async.NewJob("b.pdf", "bank_statement")); err != nil {
		t.Fatal(err)
	}

	dropped := async.NewJob("c.pdf", "bank_statement")
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := q.Enqueue(ctx, dropped); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Expected context.DeadlineExceeded, got %v", err)
	}
	if _, ok := q.Status(dropped.ID); ok {
		t.Error("Expected no status for a job that was never queued")
	}
}
