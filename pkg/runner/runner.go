// Package runner executes external command-line tools with context support
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/james-see/wavenotes/pkg/apperrors"
)

// Result holds command execution output
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes external commands
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (*Result, error)
}

// Exec runs commands on the host with os/exec
type Exec struct {
	Dir string // working directory, empty for the current one
}

// New creates an exec runner
func New() *Exec {
	return &Exec{}
}

// Run executes name with args and captures its output. A missing binary
// wraps apperrors.ErrToolNotInstalled; a non-zero exit returns the result
// together with the error.
func (r *Exec) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrToolNotInstalled, name)
	}

	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = r.Dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	result := &Result{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
	}

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return result, fmt.Errorf("command %s cancelled: %w", name, ctxErr)
		}
		return result, fmt.Errorf("command %s failed: %w", name, err)
	}

	return result, nil
}

// Available reports whether name resolves on PATH
func Available(name string) bool {
	_, err := exec.LookPath(name)
	return err == nil
}
