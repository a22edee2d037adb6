package core

import (
	"errors"
	"fmt"
	"sync"

	"github.com/nemanja-m/gobatch/internal/shared/logging"
)

// TaskManager hands tasks out to worker connections and tracks them until a
// worker reports them processed. A task is always in exactly one of the
// available queue, the claim table or the finished queue; every method moves
// tasks between them under a single lock.
type TaskManager struct {
	mu sync.Mutex

	available *TaskQueue
	claims    *ClaimTable
	finished  *TaskQueue

	status *StatusManager
	logger logging.Logger
}

func NewTaskManager(status *StatusManager, logger logging.Logger) *TaskManager {
	m := &TaskManager{
		available: NewTaskQueue(),
		claims:    NewClaimTable(),
		finished:  NewTaskQueue(),
		status:    status,
		logger:    logger,
	}
	status.bind(m)
	return m
}

func (m *TaskManager) AddNewAvailableTask(task Task, jobID int64) {
	m.AddNewAvailableTasks([]Task{task}, jobID)
}

func (m *TaskManager) AddNewAvailableTasks(tasks []Task, jobID int64) {
	if len(tasks) == 0 {
		return
	}

	queued := make([]Task, len(tasks))
	for i, task := range tasks {
		task.JobID = jobID
		task.Outcome = OutcomeUnset
		queued[i] = task
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.available.PushAll(queued)

	m.logger.Debug("Tasks added", "job_id", jobID, "num_tasks", len(queued), "available", m.available.Len())
}

// ConnectAvailableTask claims the oldest available task for connectionID.
func (m *TaskManager) ConnectAvailableTask(connectionID string) (Task, error) {
	tasks, err := m.ConnectAvailableTasks(1, connectionID)
	if err != nil {
		return Task{}, err
	}
	return tasks[0], nil
}

// ConnectAvailableTasks claims up to maxCount available tasks for
// connectionID, oldest first. Returning fewer than maxCount is not an error;
// a maxCount below one claims a single task.
func (m *TaskManager) ConnectAvailableTasks(maxCount int, connectionID string) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.available.Len() == 0 {
		if m.claims.Len() == 0 && m.finished.Len() == 0 {
			return nil, ErrNoMoreTasks
		}
		return nil, ErrNoMoreAvailableTasks
	}

	tasks := m.available.PopN(max(maxCount, 1))
	for i := range tasks {
		tasks[i].Attempt++
		m.claims.Claim(tasks[i], connectionID)
	}

	m.logger.Debug("Tasks claimed", "connection_id", connectionID, "num_tasks", len(tasks))
	return tasks, nil
}

// ConnectionDropped returns every task claimed by connectionID to the tail of
// the available queue in claim order. Unknown connections are ignored.
func (m *TaskManager) ConnectionDropped(connectionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	released := m.claims.Release(connectionID)
	if len(released) == 0 {
		return
	}
	m.available.PushAll(released)

	m.logger.Info("Connection dropped, tasks requeued", "connection_id", connectionID, "num_tasks", len(released))
}

// TaskFinished settles a claimed task. Processed tasks move to the finished
// queue; failed tasks go back to the tail of the available queue. Reports for
// tasks that are not claimed, or claimed by a connection other than
// report.ConnectionID, change nothing and return ErrTaskNotClaimed.
func (m *TaskManager) TaskFinished(report Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finishLocked(report)
}

// TasksFinished settles every report in order. Stale reports do not stop the
// batch; their errors are joined.
func (m *TaskManager) TasksFinished(reports []Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, report := range reports {
		if err := m.finishLocked(report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *TaskManager) finishLocked(report Report) error {
	switch report.Outcome {
	case OutcomeProcessed, OutcomeFailed:
	default:
		return &ReportError{TaskID: report.TaskID, Err: fmt.Errorf("invalid outcome %q", report.Outcome)}
	}

	ct, ok := m.claims.Get(report.TaskID)
	if !ok {
		m.logger.Warn("Ignoring report for unclaimed task", "task_id", report.TaskID, "outcome", string(report.Outcome))
		return &ReportError{TaskID: report.TaskID, Err: ErrTaskNotClaimed}
	}
	if report.ConnectionID != "" && report.ConnectionID != ct.ConnectionID {
		m.logger.Warn("Ignoring report from connection that does not hold the task",
			"task_id", report.TaskID,
			"connection_id", report.ConnectionID,
			"claimed_by", ct.ConnectionID,
		)
		return &ReportError{
			TaskID: report.TaskID,
			Err:    fmt.Errorf("%w by connection %s", ErrTaskNotClaimed, report.ConnectionID),
		}
	}
	m.claims.Remove(report.TaskID)

	task := ct.Task

	switch report.Outcome {
	case OutcomeProcessed:
		task.Outcome = OutcomeProcessed
		task.Result = report.Result
		m.finished.Push(task)
		m.status.NotifyTaskDone()
		m.logger.Debug("Task processed", "task_id", task.ID, "job_id", task.JobID, "connection_id", ct.ConnectionID)
	case OutcomeFailed:
		m.available.Push(task)
		m.logger.Info("Task failed, requeued",
			"task_id", task.ID,
			"job_id", task.JobID,
			"connection_id", ct.ConnectionID,
			"attempt", task.Attempt,
			"error", report.Error,
		)
	}
	return nil
}

// FlushFinishedTasks drains the finished queue in FIFO order.
func (m *TaskManager) FlushFinishedTasks() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finished.Drain()
}

func (m *TaskManager) IsJobDone() bool {
	return m.status.IsJobDone()
}

func (m *TaskManager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	done := m.status.Status().NumTasksDone
	return Stats{
		Available:    m.available.Len(),
		Claimed:      m.claims.Len(),
		Finished:     m.finished.Len(),
		NumTasksDone: done,
		JobDone:      done > 0 && m.available.Len() == 0 && m.claims.Len() == 0,
	}
}

func (m *TaskManager) outstanding() (available, claimed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.available.Len(), m.claims.Len()
}
