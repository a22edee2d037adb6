package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
	"github.com/nemanja-m/gobatch/internal/coordinator/storage"
)

type recordingReporter struct {
	mu      sync.Mutex
	batches [][]core.Task
	err     error
}

func (r *recordingReporter) Report(ctx context.Context, tasks []core.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, tasks)
	return r.err
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, batch := range r.batches {
		n += len(batch)
	}
	return n
}

// runJob submits a job with one task per file and processes all of them.
func runJob(t *testing.T, tasks *core.TaskManager, jobs core.JobService, numFiles int) *core.Job {
	t.Helper()
	_, dir := createTempTestFiles(t, numFiles)
	job := &core.Job{
		Input:   core.InputConfig{Paths: []string{dir + "/*"}},
		Command: []string{"cat", "{input}"},
	}
	require.NoError(t, jobs.SubmitJob(job))

	claimed, err := tasks.ConnectAvailableTasks(numFiles, "c1")
	require.NoError(t, err)
	reports := make([]core.Report, len(claimed))
	for i, task := range claimed {
		reports[i] = core.Report{TaskID: task.ID, Outcome: core.OutcomeProcessed}
	}
	require.NoError(t, tasks.TasksFinished(reports))
	return job
}

func TestProgressTracker_Flush(t *testing.T) {
	tasks := newTestTaskManager()
	store := storage.NewInMemoryJobStore()
	jobs := NewJobService(store, tasks, &mockLogger{})
	reporter := &recordingReporter{}
	tracker := NewProgressTracker(tasks, store, reporter, &mockLogger{})

	job := runJob(t, tasks, jobs, 2)

	flushed, err := tracker.Flush(context.Background())
	require.NoError(t, err)
	require.Len(t, flushed, 2)
	require.Equal(t, 2, reporter.count())

	stored, err := store.GetJobByID(job.ID)
	require.NoError(t, err)
	require.Equal(t, core.JobStatusCompleted, stored.Status)
	require.Equal(t, 2, stored.NumCompleted)
	require.NotNil(t, stored.CompletedAt)

	flushed, err = tracker.Flush(context.Background())
	require.NoError(t, err)
	require.Empty(t, flushed)
	require.Len(t, reporter.batches, 1, "empty flushes are not reported")
}

func TestProgressTracker_FlushUnknownJob(t *testing.T) {
	tasks := newTestTaskManager()
	reporter := &recordingReporter{}
	tracker := NewProgressTracker(tasks, storage.NewInMemoryJobStore(), reporter, &mockLogger{})

	tasks.AddNewAvailableTask(core.Task{ID: 1}, 99)
	_, err := tasks.ConnectAvailableTask("c1")
	require.NoError(t, err)
	require.NoError(t, tasks.TaskFinished(core.Report{TaskID: 1, Outcome: core.OutcomeProcessed}))

	flushed, err := tracker.Flush(context.Background())
	require.NoError(t, err)
	require.Len(t, flushed, 1)
	require.Equal(t, 1, reporter.count())
}

func TestProgressTracker_FlushReporterError(t *testing.T) {
	tasks := newTestTaskManager()
	store := storage.NewInMemoryJobStore()
	jobs := NewJobService(store, tasks, &mockLogger{})
	reporter := &recordingReporter{err: errors.New("sink down")}
	tracker := NewProgressTracker(tasks, store, reporter, &mockLogger{})

	runJob(t, tasks, jobs, 1)

	flushed, err := tracker.Flush(context.Background())
	require.ErrorContains(t, err, "sink down")
	require.Len(t, flushed, 1)
	require.Zero(t, tasks.Stats().Finished)
}

func TestProgressTracker_StartInvalidSchedule(t *testing.T) {
	tracker := NewProgressTracker(newTestTaskManager(), storage.NewInMemoryJobStore(), &recordingReporter{}, &mockLogger{})

	err := tracker.Start("every now and then")
	require.Error(t, err)
}

func TestProgressTracker_StartFlushesOnSchedule(t *testing.T) {
	tasks := newTestTaskManager()
	store := storage.NewInMemoryJobStore()
	jobs := NewJobService(store, tasks, &mockLogger{})
	reporter := &recordingReporter{}
	tracker := NewProgressTracker(tasks, store, reporter, &mockLogger{})

	runJob(t, tasks, jobs, 3)

	require.NoError(t, tracker.Start("@every 1s"))
	require.Eventually(t, func() bool {
		return reporter.count() == 3
	}, 5*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, tracker.Stop(ctx))
}

func TestProgressTracker_StopFlushesRemaining(t *testing.T) {
	tasks := newTestTaskManager()
	store := storage.NewInMemoryJobStore()
	jobs := NewJobService(store, tasks, &mockLogger{})
	reporter := &recordingReporter{}
	tracker := NewProgressTracker(tasks, store, reporter, &mockLogger{})

	require.NoError(t, tracker.Start("@hourly"))
	runJob(t, tasks, jobs, 2)

	require.NoError(t, tracker.Stop(context.Background()))
	require.Equal(t, 2, reporter.count())
}
