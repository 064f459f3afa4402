package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const waitDelay = 2 * time.Second

// ProcessError is returned when an external tool exits unsuccessfully
type ProcessError struct {
	Tool     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s failed: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Tool, stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// ProcessOutput holds the captured streams of a finished process
type ProcessOutput struct {
	Stdout []byte
	Stderr []byte
}

// Runner executes a binary and blocks until it exits
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*ProcessOutput, error)
}

// ExecRunner implements Runner with os/exec
type ExecRunner struct{}

// NewExecRunner creates a new process runner
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

// Run starts the process, captures stdout and stderr, and waits for it.
// A non-zero exit or a failure to start yields a *ProcessError.
func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (*ProcessOutput, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	// Children that inherit the pipes must not hold Wait open after a kill
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	out := &ProcessOutput{}
	err := cmd.Run()
	out.Stdout = stdout.Bytes()
	out.Stderr = stderr.Bytes()
	if err != nil {
		perr := &ProcessError{
			Tool:     filepath.Base(name),
			ExitCode: -1,
			Stderr:   string(out.Stderr),
			Err:      err,
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			perr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			perr.Err = ctxErr
		}
		return out, perr
	}

	return out, nil
}

// LookPath reports whether a tool resolves to an executable
func LookPath(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
