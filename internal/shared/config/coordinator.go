package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// CoordinatorConfig contains all configuration for the coordinator service.
type CoordinatorConfig struct {
	REST     RESTConfig     `mapstructure:"rest"`
	GRPC     GRPCConfig     `mapstructure:"grpc"`
	Progress ProgressConfig `mapstructure:"progress"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// RESTConfig contains REST API server configuration.
type RESTConfig struct {
	Addr         string        `mapstructure:"addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// GRPCConfig contains configuration of the worker-facing gRPC server.
type GRPCConfig struct {
	Addr             string        `mapstructure:"addr"`
	EnableReflection bool          `mapstructure:"enable_reflection"`
	KeepaliveMinTime time.Duration `mapstructure:"keepalive_min_time"`
	KeepaliveTime    time.Duration `mapstructure:"keepalive_time"`
	KeepaliveTimeout time.Duration `mapstructure:"keepalive_timeout"`
	ShutdownTimeout  time.Duration `mapstructure:"shutdown_timeout"`
}

// ProgressConfig controls how finished tasks are drained and where they go.
type ProgressConfig struct {
	Schedule string `mapstructure:"schedule"`
	// FlushTimeout bounds the final flush on shutdown. It starts after the
	// gRPC server has stopped, so it never shares the shutdown budget.
	FlushTimeout time.Duration `mapstructure:"flush_timeout"`
	Sink         string        `mapstructure:"sink"`
	Redis        RedisConfig   `mapstructure:"redis"`
	NATS         NATSConfig    `mapstructure:"nats"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Key      string `mapstructure:"key"`
}

type NATSConfig struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

const (
	SinkLog   = "log"
	SinkRedis = "redis"
	SinkNATS  = "nats"
)

// LoadCoordinator loads the coordinator configuration from the given path.
// If configPath is empty, it looks for coordinator.yaml in the config/ directory.
// Environment variables with GOBATCH_COORDINATOR_ prefix override config file values.
func LoadCoordinator(configPath string) (*CoordinatorConfig, error) {
	v := viper.New()

	v.SetDefault("rest.addr", ":8080")
	v.SetDefault("rest.read_timeout", 15*time.Second)
	v.SetDefault("rest.write_timeout", 15*time.Second)
	v.SetDefault("rest.idle_timeout", 60*time.Second)
	v.SetDefault("grpc.addr", ":9090")
	v.SetDefault("grpc.enable_reflection", true)
	v.SetDefault("grpc.keepalive_min_time", 10*time.Second)
	v.SetDefault("grpc.keepalive_time", 30*time.Second)
	v.SetDefault("grpc.keepalive_timeout", 10*time.Second)
	v.SetDefault("grpc.shutdown_timeout", 10*time.Second)
	v.SetDefault("progress.schedule", "@every 5s")
	v.SetDefault("progress.flush_timeout", 30*time.Second)
	v.SetDefault("progress.sink", SinkLog)
	v.SetDefault("progress.redis.addr", "localhost:6379")
	v.SetDefault("progress.redis.db", 0)
	v.SetDefault("progress.redis.key", "gobatch:finished")
	v.SetDefault("progress.nats.url", "nats://127.0.0.1:4222")
	v.SetDefault("progress.nats.subject", "gobatch.finished")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	var cfg CoordinatorConfig
	if err := load(v, configPath, "coordinator", "GOBATCH_COORDINATOR", &cfg); err != nil {
		return nil, err
	}

	switch cfg.Progress.Sink {
	case SinkLog, SinkRedis, SinkNATS:
	default:
		return nil, fmt.Errorf("unsupported progress sink: %s", cfg.Progress.Sink)
	}

	return &cfg, nil
}
