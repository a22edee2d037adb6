package core

import "context"

// TaskDispatcher is what the worker transport needs from the TaskManager.
type TaskDispatcher interface {
	ConnectAvailableTasks(maxCount int, connectionID string) ([]Task, error)
	TasksFinished(reports []Report) error
	ConnectionDropped(connectionID string)
}

type TaskSubmitter interface {
	AddNewAvailableTasks(tasks []Task, jobID int64)
}

type TaskFlusher interface {
	FlushFinishedTasks() []Task
	IsJobDone() bool
	Stats() Stats
}

// JobService plans submitted jobs into tasks.
type JobService interface {
	SubmitJob(job *Job) error
	GetJob(id int64) (*Job, error)
	GetJobs() ([]*Job, error)
}

// WorkerService tracks live worker sessions.
type WorkerService interface {
	RegisterWorker(worker *Worker) error
	RecordActivity(connectionID string) error
	RemoveWorker(connectionID string) error
	GetWorkers() ([]*Worker, error)
}

// ProgressService drains finished tasks and forwards them upstream.
type ProgressService interface {
	Flush(ctx context.Context) ([]Task, error)
}

var (
	_ TaskDispatcher = (*TaskManager)(nil)
	_ TaskSubmitter  = (*TaskManager)(nil)
	_ TaskFlusher    = (*TaskManager)(nil)
)
