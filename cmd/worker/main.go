package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nemanja-m/gobatch/internal/shared/config"
	"github.com/nemanja-m/gobatch/internal/shared/logging"
	"github.com/nemanja-m/gobatch/internal/worker/api/grpc"
	"github.com/nemanja-m/gobatch/internal/worker/core"
	"github.com/nemanja-m/gobatch/internal/worker/service"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.LoadWorker(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	client, err := grpc.NewCoordinatorClient(cfg.Coordinator.Addr, cfg.Coordinator.GRPC)
	if err != nil {
		logger.Fatal("Failed to create coordinator client", "error", err)
	}
	defer client.Close()

	var executor core.TaskExecutor
	switch cfg.Executor.Type {
	case config.ExecutorNoop:
		executor = service.NewNoopExecutor()
	default:
		executor = service.NewCommandExecutor(cfg.Executor.Timeout)
	}

	workerService := service.NewWorkerService(client, executor, cfg.Executor.Concurrency, cfg.Poll, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Worker started",
		"coordinator", cfg.Coordinator.Addr,
		"executor", cfg.Executor.Type,
		"concurrency", cfg.Executor.Concurrency,
	)

	if err := workerService.Run(ctx); err != nil {
		logger.Error("Worker stopped with error", "error", err)
	}

	logger.Info("Shutting down worker")
}
