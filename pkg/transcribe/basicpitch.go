package transcribe

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/james-see/wavenotes/pkg/apperrors"
	"github.com/james-see/wavenotes/pkg/converter"
	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/preview"
	"github.com/james-see/wavenotes/pkg/runner"
)

// BasicPitch runs the basic-pitch command line tool and reads back the MIDI
// file it produces
type BasicPitch struct {
	runner  runner.Runner
	workDir string
	binary  string
}

// NewBasicPitch creates a basic-pitch transcriber writing its intermediate
// files under workDir. An empty workDir uses a temporary directory per call.
func NewBasicPitch(workDir string, r runner.Runner) *BasicPitch {
	if r == nil {
		r = runner.New()
	}
	return &BasicPitch{runner: r, workDir: workDir, binary: "basic-pitch"}
}

// SetBinary overrides the basic-pitch executable path
func (b *BasicPitch) SetBinary(path string) {
	b.binary = path
}

func (b *BasicPitch) Name() string { return NameBasicPitch }

// Transcribe writes samples to <workDir>/basic_pitch/input.wav, runs
// `basic-pitch <outdir> <wav>` and parses the resulting .mid file
func (b *BasicPitch) Transcribe(ctx context.Context, samples []float64, sampleRate int, settings notes.Settings) ([]notes.NoteEvent, error) {
	root := b.workDir
	if root == "" {
		tmp, err := os.MkdirTemp("", "wavenotes-bp-")
		if err != nil {
			return nil, fmt.Errorf("failed to create work directory: %w", err)
		}
		defer os.RemoveAll(tmp)
		root = tmp
	}

	dir := filepath.Join(root, "basic_pitch")
	outDir := filepath.Join(dir, "out")
	// stale output from a previous run must not be picked up
	if err := os.RemoveAll(outDir); err != nil {
		return nil, fmt.Errorf("failed to clear output directory: %w", err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	wavPath := filepath.Join(dir, "input.wav")
	if err := preview.WriteWAV(wavPath, toPCM16(samples), sampleRate); err != nil {
		return nil, err
	}

	logger := log.WithFields(log.Fields{
		"tool":    b.binary,
		"samples": len(samples),
	})
	logger.Debug("running transcription")

	res, err := b.runner.Run(ctx, b.binary, outDir, wavPath)
	if err != nil {
		if errors.Is(err, apperrors.ErrToolNotInstalled) || ctx.Err() != nil {
			return nil, fmt.Errorf("transcription failed: %w", err)
		}
		exit, stderr := -1, ""
		if res != nil {
			exit, stderr = res.ExitCode, strings.TrimSpace(res.Stderr)
		}
		return nil, apperrors.NewProcessError(NameBasicPitch, "transcription", exit, stderr, err)
	}

	midiPath, err := findMIDI(outDir)
	if err != nil {
		return nil, apperrors.NewProcessError(NameBasicPitch, "transcription", res.ExitCode, strings.TrimSpace(res.Stderr), err)
	}

	ns, err := converter.NewMIDIConverter().ParseMIDIFile(midiPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcription: %w", err)
	}
	logger.WithField("notes", len(ns)).Debug("transcription complete")
	return ns, nil
}

func findMIDI(dir string) (string, error) {
	for _, pattern := range []string{"*.mid", "*.midi"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return "", err
		}
		if len(matches) > 0 {
			return matches[0], nil
		}
	}
	return "", fmt.Errorf("%w: no MIDI file in %s", apperrors.ErrNoOutput, dir)
}

func toPCM16(samples []float64) []int16 {
	pcm := make([]int16, len(samples))
	for i, s := range samples {
		pcm[i] = int16(max(-1, min(1, s)) * 32767)
	}
	return pcm
}
