// Package process runs external scanner binaries.
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

var (
	// ErrTimeout is returned when the tool did not finish within its timeout.
	ErrTimeout = errors.New("process timed out")
	// ErrNotFound is returned when the tool binary is not installed.
	ErrNotFound = errors.New("executable not found")
)

// Result holds the execution result.
type Result struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Duration time.Duration
}

// Runner executes a command and captures its output.
// A non-zero exit is reported through Result.ExitCode with a nil error;
// errors are reserved for timeouts, missing binaries and start failures.
type Runner interface {
	Run(ctx context.Context, name string, args []string, timeout time.Duration) (Result, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct {
	// Dir is the working directory, empty for the current one.
	Dir string
}

// Run executes a command with context/timeout, capturing output and duration.
func (r ExecRunner) Run(ctx context.Context, name string, args []string, timeout time.Duration) (Result, error) {
	if _, err := exec.LookPath(name); err != nil {
		return Result{ExitCode: 127}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		Duration: time.Since(start),
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		res.ExitCode = 124
		return res, fmt.Errorf("%w: %s after %s", ErrTimeout, name, timeout)
	}
	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if errors.Is(err, exec.ErrNotFound) {
		res.ExitCode = 127
		return res, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	res.ExitCode = -1
	return res, fmt.Errorf("run %s: %w", name, err)
}
