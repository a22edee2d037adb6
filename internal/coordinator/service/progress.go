package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
	"github.com/nemanja-m/gobatch/internal/shared/logging"
)

const flushTimeout = 30 * time.Second

// ProgressTracker periodically drains finished tasks, updates per-job
// completion and forwards the tasks to a Reporter.
type ProgressTracker struct {
	tasks    core.TaskFlusher
	jobStore core.JobStore
	reporter Reporter
	logger   logging.Logger

	mu      sync.Mutex
	allDone bool
	cron    *cron.Cron
}

func NewProgressTracker(
	tasks core.TaskFlusher,
	jobStore core.JobStore,
	reporter Reporter,
	logger logging.Logger,
) *ProgressTracker {
	return &ProgressTracker{
		tasks:    tasks,
		jobStore: jobStore,
		reporter: reporter,
		logger:   logger,
	}
}

// Flush drains the finished queue once. Drained tasks are returned even when
// the reporter fails, since they can no longer be flushed again.
func (p *ProgressTracker) Flush(ctx context.Context) ([]core.Task, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	flushed := p.tasks.FlushFinishedTasks()
	if len(flushed) > 0 {
		p.recordCompleted(flushed)
		if err := p.reporter.Report(ctx, flushed); err != nil {
			return flushed, fmt.Errorf("report finished tasks: %w", err)
		}
	}

	done := p.tasks.IsJobDone()
	if done && !p.allDone {
		stats := p.tasks.Stats()
		p.logger.Info("All submitted tasks are done", "num_tasks_done", stats.NumTasksDone)
	}
	p.allDone = done

	return flushed, nil
}

func (p *ProgressTracker) recordCompleted(tasks []core.Task) {
	counts := make(map[int64]int)
	var order []int64
	for _, task := range tasks {
		if counts[task.JobID] == 0 {
			order = append(order, task.JobID)
		}
		counts[task.JobID]++
	}

	now := time.Now()
	for _, jobID := range order {
		n := counts[jobID]
		job, err := p.jobStore.RecordCompleted(jobID, n, now)
		if errors.Is(err, core.ErrJobNotFound) {
			p.logger.Debug("Finished tasks for unknown job", "job_id", jobID, "num_tasks", n)
			continue
		}
		if err != nil {
			p.logger.Error("Failed to record job progress", "job_id", jobID, "error", err)
			continue
		}
		if job.Status == core.JobStatusCompleted && job.NumCompleted-n < job.NumTasks {
			p.logger.Info("Job completed", "job_id", job.ID, "name", job.Name, "num_tasks", job.NumTasks)
		}
	}
}

// Start flushes on the given cron schedule, e.g. "@every 5s".
func (p *ProgressTracker) Start(schedule string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
		defer cancel()
		if _, err := p.Flush(ctx); err != nil {
			p.logger.Error("Progress flush failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid progress schedule %q: %w", schedule, err)
	}

	p.mu.Lock()
	p.cron = c
	p.mu.Unlock()

	c.Start()
	p.logger.Info("Progress tracker started", "schedule", schedule)
	return nil
}

// Stop halts the schedule, waits for a running flush and then flushes one
// last time so no finished task is left unreported.
func (p *ProgressTracker) Stop(ctx context.Context) error {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c != nil {
		select {
		case <-c.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	_, err := p.Flush(ctx)
	return err
}
