// Package apperrors defines the error values shared by the audio, transcribe
// and session packages
package apperrors

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCorruptedFile     = errors.New("file corrupted or unreadable")
	ErrToolNotInstalled  = errors.New("required tool not installed")
	ErrNoOutput          = errors.New("tool produced no output")
)

// ProcessError represents a failure in an external process
type ProcessError struct {
	Tool     string // "ffmpeg", "basic-pitch"
	Stage    string // "decode", "transcription"
	ExitCode int
	Stderr   string
	Cause    error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("%s failed at %s (exit %d): %s", e.Tool, e.Stage, e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("%s failed at %s (exit %d)", e.Tool, e.Stage, e.ExitCode)
}

func (e *ProcessError) Unwrap() error {
	return e.Cause
}

// NewProcessError creates a ProcessError
func NewProcessError(tool, stage string, exitCode int, stderr string, cause error) *ProcessError {
	return &ProcessError{
		Tool:     tool,
		Stage:    stage,
		ExitCode: exitCode,
		Stderr:   stderr,
		Cause:    cause,
	}
}
