package core

import (
	"context"
	"errors"

	"github.com/nemanja-m/gobatch/internal/shared/wire"
)

var (
	// ErrNoMoreTasks means every submitted task is finished.
	ErrNoMoreTasks = errors.New("no more tasks")

	// ErrNoTasksAvailable means tasks are still outstanding but all of them
	// are claimed by other workers. Polling again later may succeed.
	ErrNoTasksAvailable = errors.New("no tasks available")
)

type CoordinatorClient interface {
	PullTasks(ctx context.Context, maxTasks int) ([]wire.TaskAssignment, error)
	ReportTasks(ctx context.Context, reports []wire.TaskReport) (wire.ReportReply, error)
	Close() error
}

type WorkerService interface {
	Run(ctx context.Context) error
}

// TaskExecutor runs a single task and returns its result payload.
type TaskExecutor interface {
	Execute(ctx context.Context, task wire.TaskAssignment) ([]byte, error)
}
