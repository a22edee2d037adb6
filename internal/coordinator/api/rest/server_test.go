package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
	"github.com/nemanja-m/gobatch/internal/coordinator/service"
	"github.com/nemanja-m/gobatch/internal/coordinator/storage"
)

type failingReporter struct{}

func (failingReporter) Report(ctx context.Context, tasks []core.Task) error {
	return errors.New("sink unavailable")
}

type testAPI struct {
	mux     *http.ServeMux
	tasks   *core.TaskManager
	workers core.WorkerService
}

func newTestAPI(t *testing.T, reporter service.Reporter) *testAPI {
	t.Helper()

	logger := newMockLogger()
	jobStore := storage.NewInMemoryJobStore()
	tasks := core.NewTaskManager(core.NewStatusManager(), logger)
	workers := service.NewWorkerService(storage.NewInMemoryWorkerStore(), logger)
	if reporter == nil {
		reporter = service.NewLogReporter(logger)
	}
	progress := service.NewProgressTracker(tasks, jobStore, reporter, logger)

	api := NewAPI(service.NewJobService(jobStore, tasks, logger), workers, tasks, progress, logger)
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	return &testAPI{mux: mux, tasks: tasks, workers: workers}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var payload bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&payload).Encode(body))
	}
	req := httptest.NewRequest(method, path, &payload)
	w := httptest.NewRecorder()
	a.mux.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v))
	return v
}

func createInputFiles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("data"), 0o644))
	}
	return dir
}

func submitRequest(dir string) SubmitJobRequest {
	return SubmitJobRequest{
		Name:    "wc",
		Input:   InputConfig{Paths: []string{filepath.Join(dir, "*.txt")}},
		Output:  OutputConfig{Path: filepath.Join(dir, "out")},
		Command: []string{"wc", "-l", "{input}"},
	}
}

func TestSubmitJob(t *testing.T) {
	api := newTestAPI(t, nil)
	dir := createInputFiles(t, "a.txt", "b.txt", "c.log")

	w := api.do(t, http.MethodPost, "/api/jobs", submitRequest(dir))
	require.Equal(t, http.StatusCreated, w.Code)

	resp := decode[SubmitJobResponse](t, w)
	require.Equal(t, int64(1), resp.JobID)
	require.Equal(t, string(core.JobStatusRunning), resp.Status)
	require.Equal(t, 2, resp.NumTasks)
	require.Equal(t, "/api/jobs/1", resp.Links.Self)

	require.Equal(t, 2, api.tasks.Stats().Available)
}

func TestSubmitJob_ValidationErrors(t *testing.T) {
	dir := createInputFiles(t, "a.txt")

	tests := []struct {
		name   string
		mutate func(*SubmitJobRequest)
	}{
		{"missing name", func(r *SubmitJobRequest) { r.Name = "" }},
		{"missing command", func(r *SubmitJobRequest) { r.Command = nil }},
		{"missing input", func(r *SubmitJobRequest) { r.Input.Paths = nil }},
		{"no matching files", func(r *SubmitJobRequest) { r.Input.Paths = []string{filepath.Join(dir, "*.csv")} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPI(t, nil)
			req := submitRequest(dir)
			tt.mutate(&req)

			w := api.do(t, http.MethodPost, "/api/jobs", req)
			if w.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", w.Code)
			}
			require.Zero(t, api.tasks.Stats().Available)
		})
	}
}

func TestSubmitJob_InvalidBody(t *testing.T) {
	api := newTestAPI(t, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/jobs", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	api.mux.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[ErrorResponse](t, w)
	require.Equal(t, "invalid request body", resp.Error)
}

func TestGetJob(t *testing.T) {
	api := newTestAPI(t, nil)
	dir := createInputFiles(t, "a.txt")
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/jobs", submitRequest(dir)).Code)

	w := api.do(t, http.MethodGet, "/api/jobs/1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[GetJobResponse](t, w)
	require.Equal(t, "wc", resp.Name)
	require.Equal(t, 1, resp.Progress.Total)
	require.Zero(t, resp.Progress.Completed)
	require.False(t, resp.Output.Available)

	require.Equal(t, http.StatusNotFound, api.do(t, http.MethodGet, "/api/jobs/42", nil).Code)
	require.Equal(t, http.StatusBadRequest, api.do(t, http.MethodGet, "/api/jobs/abc", nil).Code)
}

func TestListJobs_Pagination(t *testing.T) {
	api := newTestAPI(t, nil)
	dir := createInputFiles(t, "a.txt")
	for range 3 {
		require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/jobs", submitRequest(dir)).Code)
	}

	w := api.do(t, http.MethodGet, "/api/jobs?limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	resp := decode[ListJobsResponse](t, w)
	require.Equal(t, 3, resp.Total)
	require.Len(t, resp.Jobs, 2)
	require.Equal(t, int64(1), resp.Jobs[0].JobID)
	require.NotNil(t, resp.NextOffset)
	require.Equal(t, 2, *resp.NextOffset)

	resp = decode[ListJobsResponse](t, api.do(t, http.MethodGet, "/api/jobs?limit=2&offset=2", nil))
	require.Len(t, resp.Jobs, 1)
	require.Nil(t, resp.NextOffset)

	resp = decode[ListJobsResponse](t, api.do(t, http.MethodGet, "/api/jobs?status=COMPLETED", nil))
	require.Zero(t, resp.Total)
}

func TestStatusAndFlush(t *testing.T) {
	api := newTestAPI(t, nil)
	dir := createInputFiles(t, "a.txt", "b.txt")
	require.Equal(t, http.StatusCreated, api.do(t, http.MethodPost, "/api/jobs", submitRequest(dir)).Code)

	tasks, err := api.tasks.ConnectAvailableTasks(2, "conn-1")
	require.NoError(t, err)
	require.NoError(t, api.tasks.TaskFinished(core.Report{TaskID: tasks[0].ID, Outcome: core.OutcomeProcessed, Result: []byte("3")}))

	status := decode[StatusResponse](t, api.do(t, http.MethodGet, "/api/status", nil))
	require.Equal(t, StatusResponse{Claimed: 1, Finished: 1, NumTasksDone: 1}, status)

	require.NoError(t, api.tasks.TaskFinished(core.Report{TaskID: tasks[1].ID, Outcome: core.OutcomeProcessed}))
	status = decode[StatusResponse](t, api.do(t, http.MethodGet, "/api/status", nil))
	require.True(t, status.JobDone)

	w := api.do(t, http.MethodPost, "/api/tasks/flush", nil)
	require.Equal(t, http.StatusOK, w.Code)
	flush := decode[FlushResponse](t, w)
	require.Equal(t, 2, flush.NumFlushed)
	require.Equal(t, []byte("3"), flush.Tasks[0].Result)
	require.Empty(t, flush.SinkError)

	job := decode[GetJobResponse](t, api.do(t, http.MethodGet, "/api/jobs/1", nil))
	require.Equal(t, string(core.JobStatusCompleted), job.Status)
	require.Equal(t, 2, job.Progress.Completed)
	require.True(t, job.Output.Available)

	flush = decode[FlushResponse](t, api.do(t, http.MethodPost, "/api/tasks/flush", nil))
	require.Zero(t, flush.NumFlushed)
}

func TestFlush_SinkErrorStillReturnsTasks(t *testing.T) {
	api := newTestAPI(t, failingReporter{})
	api.tasks.AddNewAvailableTask(core.Task{ID: 1, Command: []string{"true"}}, 1)

	_, err := api.tasks.ConnectAvailableTask("conn-1")
	require.NoError(t, err)
	require.NoError(t, api.tasks.TaskFinished(core.Report{TaskID: 1, Outcome: core.OutcomeProcessed}))

	flush := decode[FlushResponse](t, api.do(t, http.MethodPost, "/api/tasks/flush", nil))
	require.Equal(t, 1, flush.NumFlushed)
	require.Contains(t, flush.SinkError, "sink unavailable")
}

func TestListWorkers(t *testing.T) {
	api := newTestAPI(t, nil)
	require.NoError(t, api.workers.RegisterWorker(&core.Worker{ConnectionID: "conn-1", Address: "10.0.0.1:5000"}))

	resp := decode[ListWorkersResponse](t, api.do(t, http.MethodGet, "/api/workers", nil))
	require.Len(t, resp.Workers, 1)
	require.Equal(t, "conn-1", resp.Workers[0].ConnectionID)
	require.Equal(t, "10.0.0.1:5000", resp.Workers[0].Address)
}
