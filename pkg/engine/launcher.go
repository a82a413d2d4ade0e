package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
)

// Invocation is one child process to start.
type Invocation struct {
	Name   string
	Args   []string
	Dir    string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Launcher starts a child process and waits for it.
type Launcher interface {
	// Launch returns the child's exit code. A *SpawnError is returned when the
	// process could not be started at all; a non-zero exit is not an error.
	Launch(ctx context.Context, inv Invocation) (int, error)
}

// SpawnError reports a child process that never started.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ExecLauncher launches processes on the local host.
type ExecLauncher struct{}

// Launch runs the invocation with os/exec.
func (ExecLauncher) Launch(ctx context.Context, inv Invocation) (int, error) {
	cmd := exec.CommandContext(ctx, inv.Name, inv.Args...) //nolint:gosec
	cmd.Dir = inv.Dir
	cmd.Stdin = inv.Stdin
	cmd.Stdout = inv.Stdout
	cmd.Stderr = inv.Stderr

	if err := cmd.Start(); err != nil {
		return -1, &SpawnError{Command: inv.Name, Err: err}
	}

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, fmt.Errorf("failed to wait for %s: %w", inv.Name, err)
}
