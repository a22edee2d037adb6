package service

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
	"github.com/nemanja-m/gobatch/internal/shared/logging"
)

var ErrInvalidJob = errors.New("invalid job")

type jobService struct {
	jobStore core.JobStore
	tasks    core.TaskSubmitter

	nextJobID  atomic.Int64
	nextTaskID atomic.Int64

	logger logging.Logger
}

func NewJobService(jobStore core.JobStore, tasks core.TaskSubmitter, logger logging.Logger) core.JobService {
	return &jobService{
		jobStore: jobStore,
		tasks:    tasks,
		logger:   logger,
	}
}

// SubmitJob plans one task per input file and makes them available to workers.
// Task IDs come from a single counter so they stay unique across jobs.
func (s *jobService) SubmitJob(job *core.Job) error {
	if len(job.Command) == 0 {
		return fmt.Errorf("%w: command is required", ErrInvalidJob)
	}
	if len(job.Input.Paths) == 0 {
		return fmt.Errorf("%w: at least one input path is required", ErrInvalidJob)
	}

	inputFiles, err := core.FindLocalFiles(job.Input.Paths)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if len(inputFiles) == 0 {
		return fmt.Errorf("%w: no input files match %v", ErrInvalidJob, job.Input.Paths)
	}

	job.ID = s.nextJobID.Add(1)
	s.logger.Info("Submitting job", "job_id", job.ID, "name", job.Name)

	tasks := make([]core.Task, 0, len(inputFiles))
	for i, inputPath := range inputFiles {
		var outputPath string
		if job.Output.Path != "" {
			outputPath = filepath.Join(job.Output.Path, fmt.Sprintf("part-%06d", i))
		}
		tasks = append(tasks, core.Task{
			ID:      s.nextTaskID.Add(1),
			Command: core.ExpandCommand(job.Command, inputPath, outputPath),
			Input:   inputPath,
			Output:  outputPath,
		})
	}

	job.Status = core.JobStatusRunning
	job.NumTasks = len(tasks)
	job.NumCompleted = 0
	job.SubmittedAt = time.Now().UTC()
	job.CompletedAt = nil

	if err := s.jobStore.SaveJob(job); err != nil {
		return err
	}
	s.tasks.AddNewAvailableTasks(tasks, job.ID)

	s.logger.Info("Job submitted", "job_id", job.ID, "num_tasks", len(tasks))
	return nil
}

func (s *jobService) GetJob(id int64) (*core.Job, error) {
	return s.jobStore.GetJobByID(id)
}

func (s *jobService) GetJobs() ([]*core.Job, error) {
	return s.jobStore.GetJobs()
}
