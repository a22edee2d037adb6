package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
	"github.com/nemanja-m/gobatch/internal/coordinator/service"
	"github.com/nemanja-m/gobatch/internal/shared/config"
	"github.com/nemanja-m/gobatch/internal/shared/logging"
)

const (
	defaultListLimit = 10
	maxListLimit     = 100
)

type API struct {
	jobService    core.JobService
	workerService core.WorkerService
	tasks         core.TaskFlusher
	progress      core.ProgressService
	logger        logging.Logger
}

func NewAPI(
	jobService core.JobService,
	workerService core.WorkerService,
	tasks core.TaskFlusher,
	progress core.ProgressService,
	logger logging.Logger,
) *API {
	return &API{
		jobService:    jobService,
		workerService: workerService,
		tasks:         tasks,
		progress:      progress,
		logger:        logger,
	}
}

func (a *API) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/jobs", a.submitJob)
	mux.HandleFunc("GET /api/jobs", a.listJobs)
	mux.HandleFunc("GET /api/jobs/{id}", a.getJob)
	mux.HandleFunc("GET /api/status", a.getStatus)
	mux.HandleFunc("GET /api/workers", a.listWorkers)
	mux.HandleFunc("POST /api/tasks/flush", a.flushTasks)
}

func (a *API) submitJob(w http.ResponseWriter, r *http.Request) {
	var req SubmitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Name == "" {
		a.respondError(w, http.StatusBadRequest, "validation failed", "job name is required")
		return
	}

	job := req.ToJob()
	if err := a.jobService.SubmitJob(job); err != nil {
		if errors.Is(err, service.ErrInvalidJob) {
			a.respondError(w, http.StatusBadRequest, "validation failed", err.Error())
			return
		}
		a.logger.Error("Failed to submit job", "error", err)
		a.respondError(w, http.StatusInternalServerError, "failed to submit job", "")
		return
	}

	a.respondJSON(w, http.StatusCreated, ToSubmitJobResponse(job))
}

// getJob handles GET /api/jobs/{id}
func (a *API) getJob(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		a.respondError(w, http.StatusBadRequest, "invalid job ID", err.Error())
		return
	}

	job, err := a.jobService.GetJob(id)
	if err != nil {
		if errors.Is(err, core.ErrJobNotFound) {
			a.respondError(w, http.StatusNotFound, "job not found", "")
			return
		}
		a.logger.Error("Failed to get job", "job_id", id, "error", err)
		a.respondError(w, http.StatusInternalServerError, "failed to get job", "")
		return
	}

	a.respondJSON(w, http.StatusOK, ToGetJobResponse(job))
}

// listJobs handles GET /api/jobs with an optional status filter and pagination
func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	statusFilter := query.Get("status")

	limit := defaultListLimit
	if l, err := strconv.Atoi(query.Get("limit")); err == nil && l > 0 {
		limit = min(l, maxListLimit)
	}
	offset := 0
	if o, err := strconv.Atoi(query.Get("offset")); err == nil && o >= 0 {
		offset = o
	}

	jobs, err := a.jobService.GetJobs()
	if err != nil {
		a.logger.Error("Failed to list jobs", "error", err)
		a.respondError(w, http.StatusInternalServerError, "failed to list jobs", "")
		return
	}

	summaries := make([]JobSummary, 0, len(jobs))
	for _, job := range jobs {
		if statusFilter != "" && string(job.Status) != statusFilter {
			continue
		}
		summaries = append(summaries, ToJobSummary(job))
	}

	total := len(summaries)
	start := min(offset, total)
	end := min(start+limit, total)

	var nextOffset *int
	if end < total {
		next := end
		nextOffset = &next
	}

	a.respondJSON(w, http.StatusOK, ListJobsResponse{
		Jobs:       summaries[start:end],
		Total:      total,
		Limit:      limit,
		Offset:     offset,
		NextOffset: nextOffset,
	})
}

func (a *API) getStatus(w http.ResponseWriter, r *http.Request) {
	a.respondJSON(w, http.StatusOK, ToStatusResponse(a.tasks.Stats()))
}

func (a *API) listWorkers(w http.ResponseWriter, r *http.Request) {
	workers, err := a.workerService.GetWorkers()
	if err != nil {
		a.logger.Error("Failed to list workers", "error", err)
		a.respondError(w, http.StatusInternalServerError, "failed to list workers", "")
		return
	}

	resp := ListWorkersResponse{Workers: make([]WorkerInfo, 0, len(workers))}
	for _, worker := range workers {
		resp.Workers = append(resp.Workers, ToWorkerInfo(worker))
	}
	a.respondJSON(w, http.StatusOK, resp)
}

// flushTasks drains the finished queue on demand. Drained tasks are always
// returned; a sink failure is reported next to them.
func (a *API) flushTasks(w http.ResponseWriter, r *http.Request) {
	flushed, err := a.progress.Flush(r.Context())

	resp := FlushResponse{
		NumFlushed: len(flushed),
		Tasks:      make([]FinishedTaskInfo, 0, len(flushed)),
	}
	for _, task := range flushed {
		resp.Tasks = append(resp.Tasks, ToFinishedTaskInfo(task))
	}
	if err != nil {
		resp.SinkError = err.Error()
	}

	a.respondJSON(w, http.StatusOK, resp)
}

func (a *API) respondJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		a.logger.Warn("Failed to write response", "error", err)
	}
}

func (a *API) respondError(w http.ResponseWriter, statusCode int, error string, message string) {
	a.respondJSON(w, statusCode, ErrorResponse{
		Error:   error,
		Message: message,
		Code:    statusCode,
	})
}

func NewServer(cfg config.RESTConfig, api *API, logger logging.Logger) *http.Server {
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	handler := ChainMiddleware(
		mux,
		RequestIDMiddleware,
		RecoveryMiddleware(logger),
		LoggingMiddleware(logger),
	)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}
