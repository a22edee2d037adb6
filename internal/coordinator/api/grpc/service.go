package grpc

import (
	"errors"
	"io"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
	"github.com/nemanja-m/gobatch/internal/shared/logging"
	"github.com/nemanja-m/gobatch/internal/shared/wire"
)

const maxTasksPerPull = 64

// DispatcherService gives every Session stream its own connection ID and
// releases the tasks claimed under it when the stream ends.
type DispatcherService struct {
	dispatcher    core.TaskDispatcher
	workerService core.WorkerService

	logger logging.Logger
}

func NewDispatcherService(
	dispatcher core.TaskDispatcher,
	workerService core.WorkerService,
	logger logging.Logger,
) *DispatcherService {
	return &DispatcherService{
		dispatcher:    dispatcher,
		workerService: workerService,
		logger:        logger,
	}
}

func (s *DispatcherService) Session(stream grpc.ServerStream) error {
	connectionID := uuid.NewString()
	logger := s.logger.With("connection_id", connectionID)

	worker := &core.Worker{ConnectionID: connectionID}
	if p, ok := peer.FromContext(stream.Context()); ok && p.Addr != nil {
		worker.Address = p.Addr.String()
	}
	if err := s.workerService.RegisterWorker(worker); err != nil {
		logger.Error("Failed to register worker", "error", err)
		return status.Error(codes.Internal, "failed to register worker")
	}
	logger.Info("Worker connected", "address", worker.Address)

	defer func() {
		s.dispatcher.ConnectionDropped(connectionID)
		if err := s.workerService.RemoveWorker(connectionID); err != nil {
			logger.Warn("Failed to remove worker", "error", err)
		}
		logger.Info("Worker disconnected")
	}()

	for {
		in := &structpb.Struct{}
		if err := stream.RecvMsg(in); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			logger.Debug("Session receive failed", "error", err)
			return err
		}

		if err := s.workerService.RecordActivity(connectionID); err != nil {
			logger.Warn("Failed to record worker activity", "error", err)
		}

		reply := s.handle(connectionID, in, logger)
		out, err := wire.Encode(reply)
		if err != nil {
			logger.Error("Failed to encode reply", "error", err)
			return status.Error(codes.Internal, "failed to encode reply")
		}
		if err := stream.SendMsg(out); err != nil {
			logger.Debug("Session send failed", "error", err)
			return err
		}
	}
}

func (s *DispatcherService) handle(connectionID string, in *structpb.Struct, logger logging.Logger) wire.Frame {
	frame, err := wire.Decode(in)
	if err != nil {
		logger.Warn("Invalid frame", "error", err)
		return wire.Frame{Type: wire.FrameError, Error: err.Error()}
	}

	switch frame.Type {
	case wire.FramePull:
		return s.pull(connectionID, frame.Pull)
	case wire.FrameReport:
		return s.report(connectionID, frame.Report, logger)
	default:
		logger.Warn("Unexpected frame", "type", string(frame.Type))
		return wire.Frame{Type: wire.FrameError, Error: "unexpected frame type " + string(frame.Type)}
	}
}

func (s *DispatcherService) pull(connectionID string, req *wire.PullRequest) wire.Frame {
	maxTasks := min(max(req.MaxTasks, 1), maxTasksPerPull)

	tasks, err := s.dispatcher.ConnectAvailableTasks(maxTasks, connectionID)
	switch {
	case errors.Is(err, core.ErrNoMoreTasks):
		return pullReply(wire.PullStatusNoMoreTasks, nil)
	case core.IsTransient(err):
		return pullReply(wire.PullStatusNoMoreAvailableTasks, nil)
	case err != nil:
		return wire.Frame{Type: wire.FrameError, Error: err.Error()}
	}

	assignments := make([]wire.TaskAssignment, len(tasks))
	for i, task := range tasks {
		assignments[i] = toAssignment(task)
	}
	return pullReply(wire.PullStatusOK, assignments)
}

// report settles only claims held by this session, so a late report from a
// dropped session cannot settle a task since handed to another worker.
func (s *DispatcherService) report(connectionID string, req *wire.ReportRequest, logger logging.Logger) wire.Frame {
	reports := make([]core.Report, len(req.Reports))
	for i, r := range req.Reports {
		reports[i] = toReport(connectionID, r)
	}

	err := s.dispatcher.TasksFinished(reports)
	rejected := core.RejectedTasks(err)
	if len(rejected) > 0 {
		logger.Warn("Rejected task reports", "task_ids", rejected)
	}

	return wire.Frame{
		Type: wire.FrameReportReply,
		ReportReply: &wire.ReportReply{
			Accepted: len(reports) - len(rejected),
			Rejected: rejected,
		},
	}
}

func pullReply(status wire.PullStatus, tasks []wire.TaskAssignment) wire.Frame {
	return wire.Frame{
		Type:      wire.FramePullReply,
		PullReply: &wire.PullReply{Status: status, Tasks: tasks},
	}
}

func toAssignment(task core.Task) wire.TaskAssignment {
	return wire.TaskAssignment{
		TaskID:  task.ID,
		JobID:   task.JobID,
		Command: task.Command,
		Input:   task.Input,
		Output:  task.Output,
		Attempt: task.Attempt,
	}
}

func toReport(connectionID string, r wire.TaskReport) core.Report {
	return core.Report{
		TaskID:       r.TaskID,
		ConnectionID: connectionID,
		Outcome:      core.Outcome(r.Outcome),
		Result:       r.Result,
		Error:        r.Error,
	}
}
