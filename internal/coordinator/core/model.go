package core

import "time"

type Outcome string

const (
	OutcomeUnset     Outcome = "UNSET"
	OutcomeProcessed Outcome = "PROCESSED"
	OutcomeFailed    Outcome = "FAILED"
)

// Task is a single unit of work. It is passed by value so a task held in one
// queue can never be mutated through another.
//
// ID, JobID, Command, Input and Output never change once the task is
// available. Attempt, Outcome and Result are bookkeeping: Attempt counts
// hand-outs, and Outcome and Result are set only on the copy that reaches the
// finished queue. A requeued task is always UNSET.
type Task struct {
	ID      int64
	JobID   int64
	Command []string
	Input   string
	Output  string

	Attempt int

	Outcome Outcome
	Result  []byte
}

// Report carries the outcome of a task as reported by a worker. When
// ConnectionID is set, the report only settles a claim held by that connection.
type Report struct {
	TaskID       int64
	ConnectionID string
	Outcome Outcome
	Result  []byte
	Error   string
}

type ConnectedTask struct {
	Task         Task
	ConnectionID string

	seq uint64
}

type Stats struct {
	Available    int
	Claimed      int
	Finished     int
	NumTasksDone int
	JobDone      bool
}

type JobStatus string

const (
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
)

// Job groups the tasks planned from one submission.
type Job struct {
	ID      int64
	Name    string
	Status  JobStatus
	Input   InputConfig
	Output  OutputConfig
	Command []string

	NumTasks     int
	NumCompleted int

	SubmittedAt time.Time
	CompletedAt *time.Time
}

type InputConfig struct {
	Paths []string
}

type OutputConfig struct {
	Path string
}

// Worker is a live session between a worker process and the coordinator.
type Worker struct {
	ConnectionID string
	Address      string
	ConnectedAt  time.Time
	LastSeenAt   time.Time
}
