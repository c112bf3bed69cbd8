package infra

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/eliteGoblin/ultrafont/internal/domain"
)

// CommandResult captures one external command invocation.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner abstracts process execution for testability.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (CommandResult, error)
	Start(name string, args ...string) error
}

// ExecRunner executes commands via os/exec with a per-call timeout.
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner creates a runner; a zero timeout means no limit beyond ctx.
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes one command and captures stdout/stderr and exit code.
// A non-zero exit is reported as *exec.ExitError with ExitCode set.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (CommandResult, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, name, args...)
	hideWindow(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := CommandResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, err
	}

	return result, nil
}

// Start launches a command without waiting for it.
// The child is reaped in the background.
func (r *ExecRunner) Start(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	hideWindow(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	go func() { _ = cmd.Wait() }()
	return nil
}

// classifyRunError maps a runner error to a failure kind.
func classifyRunError(err error) domain.FailureKind {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return domain.KindTimeout
	case errors.Is(err, context.Canceled):
		return domain.KindCancelled
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return domain.KindExitStatus
	}
	return domain.KindSubprocess
}
