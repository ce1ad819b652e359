// Package transcribe turns mono audio into raw note events. The pitch model
// itself is an external collaborator; this package only adapts it.
package transcribe

import (
	"context"
	"fmt"
	"strings"

	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/runner"
)

// Transcriber detects notes in mono audio samples in [-1, 1]
type Transcriber interface {
	Name() string
	Transcribe(ctx context.Context, samples []float64, sampleRate int, settings notes.Settings) ([]notes.NoteEvent, error)
}

// Names of the available transcribers
const (
	NameStub       = "stub"
	NameBasicPitch = "basic-pitch"
)

// Available returns the names accepted by New
func Available() []string {
	return []string{NameStub, NameBasicPitch}
}

// New returns the transcriber registered under name. workDir and r are only
// used by transcribers that shell out to external tools.
func New(name, workDir string, r runner.Runner) (Transcriber, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", NameStub:
		return &Stub{}, nil
	case NameBasicPitch, "basicpitch":
		return NewBasicPitch(workDir, r), nil
	default:
		return nil, fmt.Errorf("unknown transcriber %q (available: %s)", name, strings.Join(Available(), ", "))
	}
}
