package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/nemanja-m/gobatch/internal/coordinator/api/grpc"
	"github.com/nemanja-m/gobatch/internal/coordinator/api/rest"
	"github.com/nemanja-m/gobatch/internal/coordinator/core"
	"github.com/nemanja-m/gobatch/internal/coordinator/service"
	"github.com/nemanja-m/gobatch/internal/coordinator/storage"
	"github.com/nemanja-m/gobatch/internal/shared/config"
	"github.com/nemanja-m/gobatch/internal/shared/logging"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadCoordinator(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	reporter, closeReporter, err := newReporter(cfg.Progress, logger)
	if err != nil {
		logger.Fatal("Failed to create progress reporter", "sink", cfg.Progress.Sink, "error", err)
	}
	defer closeReporter()

	jobStore := storage.NewInMemoryJobStore()
	workerStore := storage.NewInMemoryWorkerStore()

	taskManager := core.NewTaskManager(core.NewStatusManager(), logger.With("component", "task_manager"))
	jobService := service.NewJobService(jobStore, taskManager, logger)
	workerService := service.NewWorkerService(workerStore, logger)
	progress := service.NewProgressTracker(taskManager, jobStore, reporter, logger)

	if err := progress.Start(cfg.Progress.Schedule); err != nil {
		logger.Fatal("Failed to start progress tracker", "error", err)
	}

	grpcServer := grpc.NewServer(cfg.GRPC, taskManager, workerService, logger)
	go func() {
		if err := grpcServer.Start(); err != nil {
			logger.Fatal("gRPC server error", "error", err)
		}
	}()

	api := rest.NewAPI(jobService, workerService, taskManager, progress, logger)
	restServer := rest.NewServer(cfg.REST, api, logger)
	go func() {
		logger.Info("Starting REST API server", "addr", cfg.REST.Addr)
		if err := restServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("REST server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down coordinator")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.GRPC.ShutdownTimeout)
	defer cancel()

	if err := restServer.Shutdown(ctx); err != nil {
		logger.Error("REST server forced to shutdown", "error", err)
	}
	if err := grpcServer.Stop(ctx); err != nil {
		logger.Error("gRPC server did not stop in time", "error", err)
	}

	// Sessions are closed, so this flush sees every task that will ever finish.
	flushCtx, flushCancel := context.WithTimeout(context.Background(), cfg.Progress.FlushTimeout)
	defer flushCancel()

	if err := progress.Stop(flushCtx); err != nil {
		logger.Error("Final progress flush failed", "error", err)
	}

	logger.Info("Coordinator stopped")
}

func newReporter(cfg config.ProgressConfig, logger logging.Logger) (service.Reporter, func(), error) {
	switch cfg.Sink {
	case config.SinkRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		closeFn := func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close redis client", "error", err)
			}
		}
		return service.NewRedisReporter(client, cfg.Redis.Key), closeFn, nil

	case config.SinkNATS:
		conn, err := nats.Connect(cfg.NATS.URL, nats.Name("gobatch-coordinator"))
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := conn.Drain(); err != nil {
				logger.Warn("Failed to drain nats connection", "error", err)
			}
		}
		return service.NewNATSReporter(conn, cfg.NATS.Subject), closeFn, nil

	default:
		return service.NewLogReporter(logger), func() {}, nil
	}
}
