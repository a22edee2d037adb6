package grpc

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/nemanja-m/gobatch/internal/shared/config"
	"github.com/nemanja-m/gobatch/internal/shared/wire"
	"github.com/nemanja-m/gobatch/internal/worker/core"
)

// CoordinatorClient talks to the coordinator over a single Session stream.
// The stream is opened on first use and reopened after any failure; the
// coordinator requeues whatever was claimed on a stream that ends.
type CoordinatorClient struct {
	conn *grpc.ClientConn

	mu     sync.Mutex
	stream grpc.ClientStream
	cancel context.CancelFunc
}

func NewCoordinatorClient(
	coordinatorAddr string,
	cfg config.WorkerGRPCConfig,
	opts ...grpc.DialOption,
) (*CoordinatorClient, error) {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithKeepaliveParams(
			keepalive.ClientParameters{
				Time:                cfg.KeepaliveTime,
				Timeout:             cfg.KeepaliveTimeout,
				PermitWithoutStream: true,
			},
		),
	}, opts...)

	conn, err := grpc.NewClient(coordinatorAddr, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to coordinator: %w", err)
	}

	return &CoordinatorClient{conn: conn}, nil
}

func (c *CoordinatorClient) PullTasks(ctx context.Context, maxTasks int) ([]wire.TaskAssignment, error) {
	reply, err := c.roundTrip(ctx, wire.Frame{
		Type: wire.FramePull,
		Pull: &wire.PullRequest{MaxTasks: maxTasks},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to pull tasks: %w", err)
	}
	if reply.Type != wire.FramePullReply {
		return nil, fmt.Errorf("failed to pull tasks: unexpected %s reply", reply.Type)
	}

	switch reply.PullReply.Status {
	case wire.PullStatusOK:
		return reply.PullReply.Tasks, nil
	case wire.PullStatusNoMoreTasks:
		return nil, core.ErrNoMoreTasks
	case wire.PullStatusNoMoreAvailableTasks:
		return nil, core.ErrNoTasksAvailable
	default:
		return nil, fmt.Errorf("failed to pull tasks: unknown status %q", reply.PullReply.Status)
	}
}

func (c *CoordinatorClient) ReportTasks(ctx context.Context, reports []wire.TaskReport) (wire.ReportReply, error) {
	reply, err := c.roundTrip(ctx, wire.Frame{
		Type:   wire.FrameReport,
		Report: &wire.ReportRequest{Reports: reports},
	})
	if err != nil {
		return wire.ReportReply{}, fmt.Errorf("failed to report tasks: %w", err)
	}
	if reply.Type != wire.FrameReportReply {
		return wire.ReportReply{}, fmt.Errorf("failed to report tasks: unexpected %s reply", reply.Type)
	}
	return *reply.ReportReply, nil
}

func (c *CoordinatorClient) Close() error {
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *CoordinatorClient) roundTrip(ctx context.Context, req wire.Frame) (wire.Frame, error) {
	if err := ctx.Err(); err != nil {
		return wire.Frame{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	stream, err := c.sessionLocked()
	if err != nil {
		return wire.Frame{}, err
	}

	// The stream outlives a single call, so a cancelled call tears it down.
	stop := context.AfterFunc(ctx, c.cancel)
	defer stop()

	msg, err := wire.Encode(req)
	if err != nil {
		return wire.Frame{}, err
	}
	if err := stream.SendMsg(msg); err != nil {
		c.resetLocked()
		return wire.Frame{}, errors.Join(ctx.Err(), fmt.Errorf("send %s frame: %w", req.Type, err))
	}

	in := &structpb.Struct{}
	if err := stream.RecvMsg(in); err != nil {
		c.resetLocked()
		return wire.Frame{}, errors.Join(ctx.Err(), fmt.Errorf("receive reply: %w", err))
	}

	// A reply the client cannot use leaves the session in an unknown state, so
	// the next call opens a fresh one.
	reply, err := wire.Decode(in)
	if err != nil {
		c.resetLocked()
		return wire.Frame{}, err
	}
	if reply.Type == wire.FrameError {
		c.resetLocked()
		return wire.Frame{}, fmt.Errorf("coordinator error: %s", reply.Error)
	}
	return reply, nil
}

func (c *CoordinatorClient) sessionLocked() (grpc.ClientStream, error) {
	if c.stream != nil {
		return c.stream, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	stream, err := c.conn.NewStream(ctx, &wire.SessionStreamDesc, wire.SessionMethod)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open session: %w", err)
	}

	c.stream = stream
	c.cancel = cancel
	return stream, nil
}

func (c *CoordinatorClient) resetLocked() {
	if c.stream == nil {
		return
	}
	_ = c.stream.CloseSend()
	c.cancel()
	c.stream = nil
	c.cancel = nil
}
