package core

import "sync"

type Status struct {
	NumTasksDone int
}

// workTracker exposes how much work is still outstanding.
type workTracker interface {
	outstanding() (available, claimed int)
}

// StatusManager counts completed tasks and decides whether the tracked work is
// done. It is bound to exactly one TaskManager by NewTaskManager.
type StatusManager struct {
	mu      sync.Mutex
	status  Status
	tracker workTracker
}

func NewStatusManager() *StatusManager {
	return &StatusManager{}
}

func (s *StatusManager) NotifyTaskDone() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.NumTasksDone++
}

func (s *StatusManager) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// IsJobDone reports whether at least one task completed and nothing is left
// pending or claimed. It is computed on every call, so adding new tasks after
// completion makes it false again.
func (s *StatusManager) IsJobDone() bool {
	s.mu.Lock()
	done := s.status.NumTasksDone
	tracker := s.tracker
	s.mu.Unlock()

	if done == 0 || tracker == nil {
		return false
	}
	available, claimed := tracker.outstanding()
	return available == 0 && claimed == 0
}

func (s *StatusManager) bind(tracker workTracker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracker = tracker
}
