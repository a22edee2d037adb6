package rest

import (
	"time"
)

type SubmitJobRequest struct {
	Name    string       `json:"name"`
	Input   InputConfig  `json:"input"`
	Output  OutputConfig `json:"output"`
	Command []string     `json:"command"`
}

type InputConfig struct {
	Paths []string `json:"paths"` // Glob patterns or specific paths
}

type OutputConfig struct {
	Path string `json:"path,omitempty"`
}

type SubmitJobResponse struct {
	JobID       int64     `json:"job_id"`
	Status      string    `json:"status"`
	NumTasks    int       `json:"num_tasks"`
	SubmittedAt time.Time `json:"submitted_at"`
	Links       Links     `json:"links"`
}

type Links struct {
	Self string `json:"self"`
}

type GetJobResponse struct {
	JobID      int64          `json:"job_id"`
	Name       string         `json:"name"`
	Status     string         `json:"status"`
	Command    []string       `json:"command"`
	Progress   TaskProgress   `json:"progress"`
	Timestamps TimestampsInfo `json:"timestamps"`
	Output     OutputInfo     `json:"output"`
}

type TaskProgress struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
}

type TimestampsInfo struct {
	Submitted time.Time  `json:"submitted"`
	Completed *time.Time `json:"completed"`
}

type OutputInfo struct {
	Location  string `json:"location"`
	Available bool   `json:"available"`
}

type ListJobsResponse struct {
	Jobs       []JobSummary `json:"jobs"`
	Total      int          `json:"total"`
	Limit      int          `json:"limit"`
	Offset     int          `json:"offset"`
	NextOffset *int         `json:"next_offset,omitempty"`
}

type JobSummary struct {
	JobID       int64      `json:"job_id"`
	Name        string     `json:"name"`
	Status      string     `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type StatusResponse struct {
	Available    int  `json:"available"`
	Claimed      int  `json:"claimed"`
	Finished     int  `json:"finished"`
	NumTasksDone int  `json:"num_tasks_done"`
	JobDone      bool `json:"job_done"`
}

type WorkerInfo struct {
	ConnectionID string    `json:"connection_id"`
	Address      string    `json:"address"`
	ConnectedAt  time.Time `json:"connected_at"`
	LastSeenAt   time.Time `json:"last_seen_at"`
}

type ListWorkersResponse struct {
	Workers []WorkerInfo `json:"workers"`
}

type FlushResponse struct {
	NumFlushed int                `json:"num_flushed"`
	Tasks      []FinishedTaskInfo `json:"tasks"`
	SinkError  string             `json:"sink_error,omitempty"`
}

type FinishedTaskInfo struct {
	TaskID   int64  `json:"task_id"`
	JobID    int64  `json:"job_id"`
	Input    string `json:"input,omitempty"`
	Output   string `json:"output,omitempty"`
	Attempts int    `json:"attempts"`
	Result   []byte `json:"result,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}
