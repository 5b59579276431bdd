package jobs

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
)

// Request describes one external command execution.
type Request struct {
	Command string
	Args    []string
	// Dir is the working directory for the command. Toolkit scripts resolve
	// their own relative imports, so stages run them from the checkout root.
	Dir string
	// Env entries are appended to the parent environment.
	Env []string
}

// Result captures the outcome of a completed command.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Executor runs a single command to completion.
type Executor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

type osExecutor struct{}

// NewOSExecutor returns the production executor backed by os/exec.
func NewOSExecutor() Executor {
	return osExecutor{}
}

func (osExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	if req.Dir != "" {
		cmd.Dir = req.Dir
	}
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err == nil {
		return result, nil
	}

	// A fired context kills the child, which then reports a signal exit.
	// Surface the cancellation rather than a synthetic exit code.
	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitCode = -1
		return result, ctxErr
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}

	// Spawn failure: command missing or bad working directory.
	result.ExitCode = -1
	return result, err
}
