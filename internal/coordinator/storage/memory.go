package storage

import (
	"sort"
	"sync"
	"time"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
)

type InMemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[int64]*core.Job
}

func NewInMemoryJobStore() *InMemoryJobStore {
	return &InMemoryJobStore{
		jobs: make(map[int64]*core.Job),
	}
}

func (s *InMemoryJobStore) SaveJob(job *core.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = copyJob(job)
	return nil
}

func (s *InMemoryJobStore) GetJobByID(id int64) (*core.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, exists := s.jobs[id]
	if !exists {
		return nil, core.ErrJobNotFound
	}
	return copyJob(job), nil
}

// GetJobs returns all jobs ordered by ID.
func (s *InMemoryJobStore) GetJobs() ([]*core.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]*core.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, copyJob(job))
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].ID < jobs[j].ID
	})
	return jobs, nil
}

func (s *InMemoryJobStore) RecordCompleted(jobID int64, n int, at time.Time) (*core.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, exists := s.jobs[jobID]
	if !exists {
		return nil, core.ErrJobNotFound
	}

	job.NumCompleted += n
	if job.Status != core.JobStatusCompleted && job.NumCompleted >= job.NumTasks {
		job.Status = core.JobStatusCompleted
		completedAt := at.UTC()
		job.CompletedAt = &completedAt
	}
	return copyJob(job), nil
}

func copyJob(job *core.Job) *core.Job {
	c := *job
	c.Input.Paths = append([]string(nil), job.Input.Paths...)
	c.Command = append([]string(nil), job.Command...)
	if job.CompletedAt != nil {
		t := *job.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

type InMemoryWorkerStore struct {
	mu      sync.RWMutex
	workers map[string]*core.Worker
}

func NewInMemoryWorkerStore() *InMemoryWorkerStore {
	return &InMemoryWorkerStore{
		workers: make(map[string]*core.Worker),
	}
}

func (s *InMemoryWorkerStore) AddWorker(worker *core.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w := *worker
	s.workers[worker.ConnectionID] = &w
	return nil
}

// GetAllWorkers returns workers ordered by connection time.
func (s *InMemoryWorkerStore) GetAllWorkers() ([]*core.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	workers := make([]*core.Worker, 0, len(s.workers))
	for _, worker := range s.workers {
		w := *worker
		workers = append(workers, &w)
	}
	sort.Slice(workers, func(i, j int) bool {
		if workers[i].ConnectedAt.Equal(workers[j].ConnectedAt) {
			return workers[i].ConnectionID < workers[j].ConnectionID
		}
		return workers[i].ConnectedAt.Before(workers[j].ConnectedAt)
	})
	return workers, nil
}

func (s *InMemoryWorkerStore) UpdateWorkerLastSeen(connectionID string, timestamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	worker, exists := s.workers[connectionID]
	if !exists {
		return core.ErrWorkerNotFound
	}
	worker.LastSeenAt = timestamp
	return nil
}

func (s *InMemoryWorkerStore) RemoveWorker(connectionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.workers[connectionID]; !exists {
		return core.ErrWorkerNotFound
	}
	delete(s.workers, connectionID)
	return nil
}
