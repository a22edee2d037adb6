package storage

import (
	"errors"
	"testing"
	"time"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
)

func TestInMemoryJobStore_SaveAndGet(t *testing.T) {
	store := NewInMemoryJobStore()

	job := &core.Job{
		ID:       1,
		Name:     "wordcount",
		Status:   core.JobStatusRunning,
		Command:  []string{"wc", "{input}"},
		NumTasks: 2,
	}
	if err := store.SaveJob(job); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	// Mutating the caller's copy must not leak into the store.
	job.Name = "changed"
	job.Command[0] = "cat"

	got, err := store.GetJobByID(1)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if got.Name != "wordcount" {
		t.Errorf("Expected name wordcount, got %s", got.Name)
	}
	if got.Command[0] != "wc" {
		t.Errorf("Expected command wc, got %s", got.Command[0])
	}
}

func TestInMemoryJobStore_GetJobByID_NotFound(t *testing.T) {
	store := NewInMemoryJobStore()

	_, err := store.GetJobByID(42)
	if !errors.Is(err, core.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestInMemoryJobStore_GetJobs_OrderedByID(t *testing.T) {
	store := NewInMemoryJobStore()
	for _, id := range []int64{3, 1, 2} {
		store.SaveJob(&core.Job{ID: id})
	}

	jobs, err := store.GetJobs()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(jobs) != 3 {
		t.Fatalf("Expected 3 jobs, got %d", len(jobs))
	}
	for i, want := range []int64{1, 2, 3} {
		if jobs[i].ID != want {
			t.Errorf("Expected job %d at position %d, got %d", want, i, jobs[i].ID)
		}
	}
}

func TestInMemoryJobStore_RecordCompleted(t *testing.T) {
	store := NewInMemoryJobStore()
	store.SaveJob(&core.Job{ID: 1, Status: core.JobStatusRunning, NumTasks: 3})

	now := time.Now()

	job, err := store.RecordCompleted(1, 2, now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if job.Status != core.JobStatusRunning {
		t.Errorf("Expected RUNNING status, got %s", job.Status)
	}
	if job.CompletedAt != nil {
		t.Errorf("Expected no completion time, got %v", job.CompletedAt)
	}

	job, err = store.RecordCompleted(1, 1, now)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if job.Status != core.JobStatusCompleted {
		t.Errorf("Expected COMPLETED status, got %s", job.Status)
	}
	if job.NumCompleted != 3 {
		t.Errorf("Expected 3 completed tasks, got %d", job.NumCompleted)
	}
	if job.CompletedAt == nil || !job.CompletedAt.Equal(now) {
		t.Errorf("Expected completion time %v, got %v", now, job.CompletedAt)
	}
}

func TestInMemoryJobStore_RecordCompleted_NotFound(t *testing.T) {
	store := NewInMemoryJobStore()

	_, err := store.RecordCompleted(7, 1, time.Now())
	if !errors.Is(err, core.ErrJobNotFound) {
		t.Errorf("Expected ErrJobNotFound, got %v", err)
	}
}

func TestInMemoryWorkerStore_Lifecycle(t *testing.T) {
	store := NewInMemoryWorkerStore()
	start := time.Now()

	store.AddWorker(&core.Worker{ConnectionID: "b", ConnectedAt: start.Add(time.Second)})
	store.AddWorker(&core.Worker{ConnectionID: "a", ConnectedAt: start})

	workers, err := store.GetAllWorkers()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(workers) != 2 || workers[0].ConnectionID != "a" || workers[1].ConnectionID != "b" {
		t.Fatalf("Expected workers [a b], got %v", workers)
	}

	seen := start.Add(time.Minute)
	if err := store.UpdateWorkerLastSeen("a", seen); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	workers, _ = store.GetAllWorkers()
	if !workers[0].LastSeenAt.Equal(seen) {
		t.Errorf("Expected last seen %v, got %v", seen, workers[0].LastSeenAt)
	}

	if err := store.RemoveWorker("a"); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := store.RemoveWorker("a"); !errors.Is(err, core.ErrWorkerNotFound) {
		t.Errorf("Expected ErrWorkerNotFound, got %v", err)
	}
	if err := store.UpdateWorkerLastSeen("a", seen); !errors.Is(err, core.ErrWorkerNotFound) {
		t.Errorf("Expected ErrWorkerNotFound, got %v", err)
	}

	workers, _ = store.GetAllWorkers()
	if len(workers) != 1 {
		t.Errorf("Expected 1 worker, got %d", len(workers))
	}
}
