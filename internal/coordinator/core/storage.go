package core

import (
	"errors"
	"time"
)

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrWorkerNotFound = errors.New("worker not found")
)

type JobStore interface {
	SaveJob(job *Job) error
	GetJobByID(id int64) (*Job, error)
	GetJobs() ([]*Job, error)

	// RecordCompleted adds n processed tasks to the job and marks it completed
	// once every planned task has been processed.
	RecordCompleted(jobID int64, n int, at time.Time) (*Job, error)
}

type WorkerStore interface {
	AddWorker(worker *Worker) error
	GetAllWorkers() ([]*Worker, error)
	UpdateWorkerLastSeen(connectionID string, timestamp time.Time) error
	RemoveWorker(connectionID string) error
}
