package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/eprouveze/gslides-translator/internal/jobs"
	"github.com/eprouveze/gslides-translator/internal/middleware"
	"github.com/eprouveze/gslides-translator/internal/pipeline"
)

// StartFunc launches the pipeline for a newly created job. It is expected to
// return quickly and run the pipeline on its own goroutine using ctx.
type StartFunc func(ctx context.Context, job *jobs.Job, tokenSource oauth2.TokenSource)

// CreateJobRequest is the body of POST /jobs.
type CreateJobRequest struct {
	PresentationID string `json:"presentation_id"`
	SourceLanguage string `json:"source_language,omitempty"`
	TargetLanguage string `json:"target_language"`
}

// CreateJobResponse is the response of POST /jobs.
type CreateJobResponse struct {
	JobID string `json:"job_id"`
}

// ProgressResponse is the response of GET /jobs/{id}.
type ProgressResponse struct {
	JobID string `json:"job_id"`
	pipeline.Snapshot
}

// JobsHandler serves the job API: creation, progress polling and
// cancellation, each keyed by job ID.
type JobsHandler struct {
	registry *jobs.Registry
	start    StartFunc
	// defaultTokenSource is used when no API-key middleware put a per-key
	// token source on the request context (CLI-style single-user serving).
	defaultTokenSource oauth2.TokenSource
	logger             *slog.Logger
}

// NewJobsHandler creates the handler.
func NewJobsHandler(registry *jobs.Registry, start StartFunc, defaultTokenSource oauth2.TokenSource, logger *slog.Logger) *JobsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &JobsHandler{
		registry:           registry,
		start:              start,
		defaultTokenSource: defaultTokenSource,
		logger:             logger,
	}
}

// HandleCreate handles POST /jobs: it registers the job, kicks off the
// pipeline, and returns the job ID for polling.
func (h *JobsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.PresentationID == "" {
		writeJSONError(w, http.StatusBadRequest, "presentation_id is required")
		return
	}
	if req.TargetLanguage == "" {
		writeJSONError(w, http.StatusBadRequest, "target_language is required")
		return
	}

	tokenSource := middleware.GetTokenSource(r.Context())
	if tokenSource == nil {
		tokenSource = h.defaultTokenSource
	}
	if tokenSource == nil {
		writeJSONError(w, http.StatusUnauthorized, "no credentials available for this request")
		return
	}

	job, jobCtx := h.registry.Create(req.PresentationID, req.SourceLanguage, req.TargetLanguage)
	h.start(jobCtx, job, tokenSource)

	h.logger.Info("translation job started",
		slog.String("job_id", job.ID),
		slog.String("presentation_id", req.PresentationID),
		slog.String("target", req.TargetLanguage),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(CreateJobResponse{JobID: job.ID})
}

// HandleProgress handles GET /jobs/{id}. Polling is side-effect free and
// tolerates stale snapshots.
func (h *JobsHandler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	snapshot, ok := h.registry.Snapshot(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "job not found")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ProgressResponse{JobID: id, Snapshot: snapshot})
}

// HandleCancel handles POST /jobs/{id}/cancel. Cancellation is cooperative:
// the pipeline stops at the next batch or update boundary.
func (h *JobsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	job, ok := h.registry.Get(id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "job not found")
		return
	}

	job.Cancel()
	h.logger.Info("job cancellation requested", slog.String("job_id", id))

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"job_id": id, "status": "canceling"})
}
