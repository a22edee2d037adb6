package grpc

import (
	"context"
	"net"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/reflection"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
	"github.com/nemanja-m/gobatch/internal/shared/config"
	"github.com/nemanja-m/gobatch/internal/shared/logging"
	"github.com/nemanja-m/gobatch/internal/shared/wire"
)

type Server struct {
	addr       string
	grpcServer *grpc.Server
	health     *health.Server
	logger     logging.Logger
}

// NewServer builds the worker-facing gRPC server. Keepalive pings detect
// workers that vanish without closing their stream, which ends the Session
// and requeues the worker's tasks.
func NewServer(
	cfg config.GRPCConfig,
	dispatcher core.TaskDispatcher,
	workerService core.WorkerService,
	logger logging.Logger,
) *Server {
	grpcServer := grpc.NewServer(
		// Stop returns only after every Session handler has released its claims.
		grpc.WaitForHandlers(true),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             cfg.KeepaliveMinTime,
			PermitWithoutStream: true,
		}),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    cfg.KeepaliveTime,
			Timeout: cfg.KeepaliveTimeout,
		}),
	)

	wire.RegisterDispatcherServer(
		grpcServer,
		NewDispatcherService(dispatcher, workerService, logger),
	)

	healthServer := health.NewServer()
	healthServer.SetServingStatus(wire.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthServer)

	if cfg.EnableReflection {
		reflection.Register(grpcServer)
	}

	return &Server{
		addr:       cfg.Addr,
		grpcServer: grpcServer,
		health:     healthServer,
		logger:     logger,
	}
}

func (s *Server) Start() error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

func (s *Server) Serve(lis net.Listener) error {
	s.logger.Info("Starting gRPC server", "addr", lis.Addr().String())
	return s.grpcServer.Serve(lis)
}

// Stop closes every open Session and waits, until ctx expires, for the
// sessions to release their claimed tasks. A Session lasts as long as its
// worker connection, so it is closed rather than drained.
func (s *Server) Stop(ctx context.Context) error {
	s.health.Shutdown()

	done := make(chan struct{})
	go func() {
		s.grpcServer.Stop()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
