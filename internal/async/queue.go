package async

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Job is one document waiting for extraction.
type Job struct {
	ID          uuid.UUID
	Path        string
	Template    string
	SubmittedAt time.Time
	RequestID   string
}

// NewJob stamps a job with a fresh ID and submission time.
func NewJob(path, template string) Job {
	return Job{ID: uuid.New(), Path: path, Template: template, SubmittedAt: time.Now()}
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Shutdown(ctx context.Context)
}
