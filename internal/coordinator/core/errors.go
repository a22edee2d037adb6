package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNoMoreTasks means the manager holds no task at all.
	ErrNoMoreTasks = errors.New("no more tasks")

	// ErrNoMoreAvailableTasks means tasks are claimed or finished but none
	// can be handed out right now. Callers should retry later.
	ErrNoMoreAvailableTasks = errors.New("no more available tasks")

	// ErrTaskNotClaimed is returned for outcome reports about tasks that are
	// not in the claim table, e.g. duplicates or reports from a dropped connection.
	ErrTaskNotClaimed = errors.New("task is not claimed")
)

// IsTransient reports whether err signals temporary unavailability of work.
func IsTransient(err error) bool {
	return errors.Is(err, ErrNoMoreAvailableTasks)
}

// ReportError is returned for a single outcome report that could not be applied.
type ReportError struct {
	TaskID int64
	Err    error
}

func (e *ReportError) Error() string {
	return fmt.Sprintf("task %d: %v", e.TaskID, e.Err)
}

func (e *ReportError) Unwrap() error {
	return e.Err
}

// RejectedTasks lists the task IDs of every ReportError found in err,
// including those joined by TasksFinished.
func RejectedTasks(err error) []int64 {
	if err == nil {
		return nil
	}
	var ids []int64
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			ids = append(ids, RejectedTasks(e)...)
		}
		return ids
	}
	var re *ReportError
	if errors.As(err, &re) {
		ids = append(ids, re.TaskID)
	}
	return ids
}
