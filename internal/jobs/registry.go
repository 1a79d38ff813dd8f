// Package jobs tracks translation jobs. Each job owns its progress state and
// cancellation, keyed by a job ID, so concurrent requests never share
// mutable state.
package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eprouveze/gslides-translator/internal/pipeline"
)

// Job is one translation run.
type Job struct {
	ID             string
	PresentationID string
	SourceLang     string
	TargetLang     string
	CreatedAt      time.Time
	Progress       *pipeline.Progress

	cancel context.CancelFunc
}

// Cancel requests cooperative cancellation; the driver observes it between
// batches and between update calls.
func (j *Job) Cancel() {
	if j.cancel != nil {
		j.cancel()
	}
}

// Registry holds all known jobs.
type Registry struct {
	mu     sync.RWMutex
	jobs   map[string]*Job
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		jobs:   make(map[string]*Job),
		logger: logger,
	}
}

// Create registers a new job and returns it together with the context its
// pipeline run should use.
func (r *Registry) Create(presentationID, sourceLang, targetLang string) (*Job, context.Context) {
	ctx, cancel := context.WithCancel(context.Background())
	job := &Job{
		ID:             uuid.NewString(),
		PresentationID: presentationID,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		CreatedAt:      time.Now(),
		Progress:       pipeline.NewProgress(),
		cancel:         cancel,
	}

	r.mu.Lock()
	r.jobs[job.ID] = job
	r.mu.Unlock()

	r.logger.Info("job created",
		slog.String("job_id", job.ID),
		slog.String("presentation_id", presentationID),
		slog.String("source", sourceLang),
		slog.String("target", targetLang),
	)
	return job, ctx
}

// Get returns the job with the given ID.
func (r *Registry) Get(id string) (*Job, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[id]
	return job, ok
}

// Snapshot returns the progress snapshot of a job.
func (r *Registry) Snapshot(id string) (pipeline.Snapshot, bool) {
	job, ok := r.Get(id)
	if !ok {
		return pipeline.Snapshot{}, false
	}
	return job.Progress.Snapshot(), true
}

// Len returns the number of registered jobs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.jobs)
}
