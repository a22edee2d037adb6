package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/nemanja-m/gobatch/internal/coordinator/core"
	"github.com/nemanja-m/gobatch/internal/shared/logging"
)

// Reporter forwards finished tasks to whatever tracks job progress.
type Reporter interface {
	Report(ctx context.Context, tasks []core.Task) error
}

// TaskRecord is the JSON form of a finished task published by reporters.
type TaskRecord struct {
	TaskID  int64    `json:"task_id"`
	JobID   int64    `json:"job_id"`
	Command []string `json:"command"`
	Input   string   `json:"input,omitempty"`
	Output  string   `json:"output,omitempty"`
	Attempt int      `json:"attempt"`
	Outcome string   `json:"outcome"`
	Result  string   `json:"result,omitempty"`
}

func NewTaskRecord(task core.Task) TaskRecord {
	return TaskRecord{
		TaskID:  task.ID,
		JobID:   task.JobID,
		Command: task.Command,
		Input:   task.Input,
		Output:  task.Output,
		Attempt: task.Attempt,
		Outcome: string(task.Outcome),
		Result:  string(task.Result),
	}
}

type LogReporter struct {
	logger logging.Logger
}

func NewLogReporter(logger logging.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

func (r *LogReporter) Report(ctx context.Context, tasks []core.Task) error {
	for _, task := range tasks {
		r.logger.Info("Task finished",
			"task_id", task.ID,
			"job_id", task.JobID,
			"input", task.Input,
			"output", task.Output,
			"attempt", task.Attempt,
			"result_bytes", len(task.Result),
		)
	}
	return nil
}

// listPusher is the part of *redis.Client used by RedisReporter.
type listPusher interface {
	RPush(ctx context.Context, key string, values ...any) *redis.IntCmd
}

// RedisReporter appends finished tasks as JSON records to a Redis list.
type RedisReporter struct {
	client listPusher
	key    string
}

func NewRedisReporter(client listPusher, key string) *RedisReporter {
	return &RedisReporter{client: client, key: key}
}

func (r *RedisReporter) Report(ctx context.Context, tasks []core.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	values := make([]any, 0, len(tasks))
	for _, task := range tasks {
		data, err := json.Marshal(NewTaskRecord(task))
		if err != nil {
			return fmt.Errorf("marshal task %d: %w", task.ID, err)
		}
		values = append(values, data)
	}
	if err := r.client.RPush(ctx, r.key, values...).Err(); err != nil {
		return fmt.Errorf("redis rpush %s: %w", r.key, err)
	}
	return nil
}

// publisher is the part of *nats.Conn used by NATSReporter.
type publisher interface {
	Publish(subject string, data []byte) error
}

// NATSReporter publishes every finished task to "<subject>.<job_id>".
type NATSReporter struct {
	conn    publisher
	subject string
}

func NewNATSReporter(conn publisher, subject string) *NATSReporter {
	return &NATSReporter{conn: conn, subject: subject}
}

func (r *NATSReporter) Report(ctx context.Context, tasks []core.Task) error {
	for _, task := range tasks {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(NewTaskRecord(task))
		if err != nil {
			return fmt.Errorf("marshal task %d: %w", task.ID, err)
		}
		subject := fmt.Sprintf("%s.%d", r.subject, task.JobID)
		if err := r.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
	}
	return nil
}
