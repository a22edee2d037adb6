package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/nemanja-m/gobatch/internal/shared/wire"
	"github.com/nemanja-m/gobatch/internal/worker/core"
)

const maxStderrInError = 512

type commandExecutor struct {
	timeout time.Duration
}

// NewCommandExecutor runs the task's command line and returns its stdout.
// A non-positive timeout disables the per-task deadline.
func NewCommandExecutor(timeout time.Duration) core.TaskExecutor {
	return &commandExecutor{timeout: timeout}
}

func (e *commandExecutor) Execute(ctx context.Context, task wire.TaskAssignment) ([]byte, error) {
	if len(task.Command) == 0 {
		return nil, errors.New("empty command")
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, task.Command[0], task.Command[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("command %s: %w", task.Command[0], ctx.Err())
		}
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderrInError {
			msg = msg[:maxStderrInError]
		}
		if msg != "" {
			return nil, fmt.Errorf("command %s: %w: %s", task.Command[0], err, msg)
		}
		return nil, fmt.Errorf("command %s: %w", task.Command[0], err)
	}

	return stdout.Bytes(), nil
}

type noopExecutor struct{}

func NewNoopExecutor() core.TaskExecutor {
	return &noopExecutor{}
}

func (e *noopExecutor) Execute(ctx context.Context, task wire.TaskAssignment) ([]byte, error) {
	return nil, nil
}
