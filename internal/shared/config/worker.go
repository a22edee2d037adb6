package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// WorkerConfig contains all configuration for the worker service.
type WorkerConfig struct {
	Coordinator CoordinatorConnConfig `mapstructure:"coordinator"`
	Executor    ExecutorConfig        `mapstructure:"executor"`
	Poll        PollConfig            `mapstructure:"poll"`
	Logging     LoggingConfig         `mapstructure:"logging"`
}

// CoordinatorConnConfig contains coordinator connection configuration.
type CoordinatorConnConfig struct {
	Addr string           `mapstructure:"addr"`
	GRPC WorkerGRPCConfig `mapstructure:"grpc"`
}

// WorkerGRPCConfig contains worker gRPC client configuration.
type WorkerGRPCConfig struct {
	KeepaliveTime    time.Duration `mapstructure:"keepalive_time"`
	KeepaliveTimeout time.Duration `mapstructure:"keepalive_timeout"`
}

// ExecutorConfig controls how pulled tasks are run.
type ExecutorConfig struct {
	Type        string        `mapstructure:"type"`
	Concurrency int           `mapstructure:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PollConfig bounds the backoff between polls when no task is available.
type PollConfig struct {
	MinBackoff time.Duration `mapstructure:"min_backoff"`
	MaxBackoff time.Duration `mapstructure:"max_backoff"`
}

const (
	ExecutorCommand = "command"
	ExecutorNoop    = "noop"
)

// LoadWorker loads the worker configuration from the given path.
// If configPath is empty, it looks for worker.yaml in the config/ directory.
// Environment variables with GOBATCH_WORKER_ prefix override config file values.
func LoadWorker(configPath string) (*WorkerConfig, error) {
	v := viper.New()

	v.SetDefault("coordinator.addr", "localhost:9090")
	v.SetDefault("coordinator.grpc.keepalive_time", 30*time.Second)
	v.SetDefault("coordinator.grpc.keepalive_timeout", 10*time.Second)
	v.SetDefault("executor.type", ExecutorCommand)
	v.SetDefault("executor.concurrency", 4)
	v.SetDefault("executor.timeout", 10*time.Minute)
	v.SetDefault("poll.min_backoff", 100*time.Millisecond)
	v.SetDefault("poll.max_backoff", 5*time.Second)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	var cfg WorkerConfig
	if err := load(v, configPath, "worker", "GOBATCH_WORKER", &cfg); err != nil {
		return nil, err
	}

	if cfg.Executor.Concurrency < 1 {
		return nil, fmt.Errorf("executor concurrency must be positive, got %d", cfg.Executor.Concurrency)
	}
	switch cfg.Executor.Type {
	case ExecutorCommand, ExecutorNoop:
	default:
		return nil, fmt.Errorf("unsupported executor type: %s", cfg.Executor.Type)
	}
	if cfg.Poll.MinBackoff <= 0 || cfg.Poll.MaxBackoff < cfg.Poll.MinBackoff {
		return nil, fmt.Errorf("invalid poll backoff range [%s, %s]", cfg.Poll.MinBackoff, cfg.Poll.MaxBackoff)
	}

	return &cfg, nil
}
