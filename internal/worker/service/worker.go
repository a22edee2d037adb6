package service

import (
	"context"
	"errors"
	"time"

	"github.com/nemanja-m/gobatch/internal/shared/config"
	"github.com/nemanja-m/gobatch/internal/shared/logging"
	"github.com/nemanja-m/gobatch/internal/shared/wire"
	"github.com/nemanja-m/gobatch/internal/worker/core"
)

type workerService struct {
	client      core.CoordinatorClient
	executor    core.TaskExecutor
	concurrency int
	minBackoff  time.Duration
	maxBackoff  time.Duration
	logger      logging.Logger
}

func NewWorkerService(
	client core.CoordinatorClient,
	executor core.TaskExecutor,
	concurrency int,
	poll config.PollConfig,
	logger logging.Logger,
) core.WorkerService {
	return &workerService{
		client:      client,
		executor:    executor,
		concurrency: max(concurrency, 1),
		minBackoff:  poll.MinBackoff,
		maxBackoff:  poll.MaxBackoff,
		logger:      logger,
	}
}

// Run pulls up to concurrency tasks at a time, executes them in parallel and
// reports the whole batch back. It returns when ctx is cancelled.
func (w *workerService) Run(ctx context.Context) error {
	p := newPool(w.concurrency)
	p.start()
	defer p.close()

	backoff := w.minBackoff
	for {
		if ctx.Err() != nil {
			return nil
		}

		tasks, err := w.client.PullTasks(ctx, w.concurrency)
		if err != nil || len(tasks) == 0 {
			switch {
			case ctx.Err() != nil:
				return nil
			case errors.Is(err, core.ErrNoMoreTasks):
				w.logger.Debug("All tasks are done, waiting for new jobs")
			case errors.Is(err, core.ErrNoTasksAvailable):
				w.logger.Debug("No tasks available")
			case err != nil:
				w.logger.Error("Failed to pull tasks", "error", err)
			}
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff = min(backoff*2, w.maxBackoff)
			continue
		}

		backoff = w.minBackoff

		reports := w.execute(ctx, p, tasks)
		if ctx.Err() != nil {
			// Unreported claims are requeued once the session closes.
			return nil
		}

		reply, err := w.client.ReportTasks(ctx, reports)
		if err != nil {
			w.logger.Error("Failed to report tasks", "num_tasks", len(reports), "error", err)
			continue
		}
		if len(reply.Rejected) > 0 {
			w.logger.Warn("Coordinator rejected task reports", "task_ids", reply.Rejected)
		}
	}
}

func (w *workerService) execute(ctx context.Context, p *pool, tasks []wire.TaskAssignment) []wire.TaskReport {
	reports := make([]wire.TaskReport, len(tasks))
	jobs := make([]job, len(tasks))

	for i, task := range tasks {
		jobs[i] = func() {
			w.logger.Info("Received task",
				"task_id", task.TaskID,
				"job_id", task.JobID,
				"attempt", task.Attempt,
			)

			result, err := w.executor.Execute(ctx, task)
			if err != nil {
				w.logger.Error("Task execution failed", "task_id", task.TaskID, "error", err)
				reports[i] = wire.TaskReport{TaskID: task.TaskID, Outcome: wire.OutcomeFailed, Error: err.Error()}
				return
			}

			w.logger.Info("Task completed", "task_id", task.TaskID)
			reports[i] = wire.TaskReport{TaskID: task.TaskID, Outcome: wire.OutcomeProcessed, Result: result}
		}
	}

	p.runAll(jobs)
	return reports
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
