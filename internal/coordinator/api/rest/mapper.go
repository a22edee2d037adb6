package rest

import (
	"fmt"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
)

func (req *SubmitJobRequest) ToJob() *core.Job {
	return &core.Job{
		Name: req.Name,
		Input: core.InputConfig{
			Paths: req.Input.Paths,
		},
		Output: core.OutputConfig{
			Path: req.Output.Path,
		},
		Command: req.Command,
	}
}

func ToSubmitJobResponse(job *core.Job) SubmitJobResponse {
	return SubmitJobResponse{
		JobID:       job.ID,
		Status:      string(job.Status),
		NumTasks:    job.NumTasks,
		SubmittedAt: job.SubmittedAt,
		Links: Links{
			Self: fmt.Sprintf("/api/jobs/%d", job.ID),
		},
	}
}

func ToGetJobResponse(job *core.Job) GetJobResponse {
	return GetJobResponse{
		JobID:   job.ID,
		Name:    job.Name,
		Status:  string(job.Status),
		Command: job.Command,
		Progress: TaskProgress{
			Total:     job.NumTasks,
			Completed: job.NumCompleted,
		},
		Timestamps: TimestampsInfo{
			Submitted: job.SubmittedAt,
			Completed: job.CompletedAt,
		},
		Output: OutputInfo{
			Location:  job.Output.Path,
			Available: job.Status == core.JobStatusCompleted && job.Output.Path != "",
		},
	}
}

func ToJobSummary(job *core.Job) JobSummary {
	return JobSummary{
		JobID:       job.ID,
		Name:        job.Name,
		Status:      string(job.Status),
		SubmittedAt: job.SubmittedAt,
		CompletedAt: job.CompletedAt,
	}
}

func ToStatusResponse(stats core.Stats) StatusResponse {
	return StatusResponse{
		Available:    stats.Available,
		Claimed:      stats.Claimed,
		Finished:     stats.Finished,
		NumTasksDone: stats.NumTasksDone,
		JobDone:      stats.JobDone,
	}
}

func ToWorkerInfo(worker *core.Worker) WorkerInfo {
	return WorkerInfo{
		ConnectionID: worker.ConnectionID,
		Address:      worker.Address,
		ConnectedAt:  worker.ConnectedAt,
		LastSeenAt:   worker.LastSeenAt,
	}
}

func ToFinishedTaskInfo(task core.Task) FinishedTaskInfo {
	return FinishedTaskInfo{
		TaskID:   task.ID,
		JobID:    task.JobID,
		Input:    task.Input,
		Output:   task.Output,
		Attempts: task.Attempt,
		Result:   task.Result,
	}
}
