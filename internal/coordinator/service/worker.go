package service

import (
	"time"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
	"github.com/nemanja-m/gobatch/internal/shared/logging"
)

type workerService struct {
	workerStore core.WorkerStore
	logger      logging.Logger
}

func NewWorkerService(workerStore core.WorkerStore, logger logging.Logger) core.WorkerService {
	return &workerService{
		workerStore: workerStore,
		logger:      logger,
	}
}

func (s *workerService) RegisterWorker(worker *core.Worker) error {
	s.logger.Debug("Registering worker", "connection_id", worker.ConnectionID, "address", worker.Address)
	now := time.Now().UTC()
	worker.ConnectedAt = now
	worker.LastSeenAt = now
	return s.workerStore.AddWorker(worker)
}

func (s *workerService) RecordActivity(connectionID string) error {
	return s.workerStore.UpdateWorkerLastSeen(connectionID, time.Now().UTC())
}

func (s *workerService) RemoveWorker(connectionID string) error {
	return s.workerStore.RemoveWorker(connectionID)
}

func (s *workerService) GetWorkers() ([]*core.Worker, error) {
	return s.workerStore.GetAllWorkers()
}
