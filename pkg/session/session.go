// Package session runs analyses of one input at a time inside an explicit
// working directory and keeps the raw transcription around so settings can
// be re-applied without transcribing again.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bep/debounce"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/james-see/wavenotes/pkg/audio"
	"github.com/james-see/wavenotes/pkg/converter"
	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/preview"
	"github.com/james-see/wavenotes/pkg/transcribe"
)

var (
	// ErrTaskInFlight is returned by Start while another task is running
	ErrTaskInFlight = errors.New("an analysis is already running in this session")
	// ErrNoAnalysis is returned when there are no raw notes to work from
	ErrNoAnalysis = errors.New("no analysis in this session")
	// ErrClosed is returned after Close
	ErrClosed = errors.New("session closed")
)

// Decoder converts an input recording into a mono WAV file
type Decoder interface {
	Decode(ctx context.Context, inputPath, outWav string, targetSR int) (string, error)
}

// Options configures a Session. Zero values select defaults.
type Options struct {
	Root            string                 // parent of the work directory, empty for the system temp dir
	Transcriber     transcribe.Transcriber // overrides TranscriberName
	TranscriberName string                 // built with the work directory, defaults to the stub
	Decoder         Decoder                // defaults to ffmpeg on PATH
	DecodeRate      int                    // defaults to 16000
	PreviewRate     int                    // defaults to 44100
	PreviewDelay    time.Duration          // debounce delay for preview renders, defaults to 250ms
	OnPreview       func(path string, err error)
}

// Analysis is the outcome of analysing one input
type Analysis struct {
	InputPath   string
	DecodedPath string
	SampleRate  int
	Raw         []notes.NoteEvent
	Notes       []notes.NoteEvent
	Settings    notes.Settings
}

// Session owns a working directory and the state of the current analysis
type Session struct {
	id   string
	dir  string
	opts Options

	mu       sync.Mutex
	task     *Task
	analysis *Analysis
	closed   bool

	previewMu sync.Mutex
	debounced func(func())
}

// New creates a session with its own working directory
func New(opts Options) (*Session, error) {
	if opts.Decoder == nil {
		opts.Decoder = audio.NewDecoder(nil, "")
	}
	if opts.DecodeRate <= 0 {
		opts.DecodeRate = audio.DefaultDecodeRate
	}
	if opts.PreviewRate <= 0 {
		opts.PreviewRate = preview.DefaultSampleRate
	}
	if opts.PreviewDelay <= 0 {
		opts.PreviewDelay = 250 * time.Millisecond
	}

	id := uuid.NewString()
	if opts.Root != "" {
		if err := os.MkdirAll(opts.Root, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(opts.Root, "wavenotes-"+id[:8]+"-")
	if err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}

	if opts.Transcriber == nil {
		tr, err := transcribe.New(opts.TranscriberName, dir, nil)
		if err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
		opts.Transcriber = tr
	}

	return &Session{
		id:        id,
		dir:       dir,
		opts:      opts,
		debounced: debounce.New(opts.PreviewDelay),
	}, nil
}

// ID returns the session's unique identifier
func (s *Session) ID() string { return s.id }

// Dir returns the session's working directory
func (s *Session) Dir() string { return s.dir }

// PreviewPath is where preview renders are written
func (s *Session) PreviewPath() string {
	return filepath.Join(s.dir, "preview", "preview.wav")
}

// Start validates input and analyses it in the background. Only one task may
// run per session at a time.
func (s *Session) Start(ctx context.Context, input string, settings notes.Settings, sink ProgressFunc) (*Task, error) {
	if _, err := audio.ValidateInput(input); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	if s.task != nil && s.task.running() {
		return nil, ErrTaskInFlight
	}

	ctx, cancel := context.WithCancel(ctx)
	task := newTask(cancel)
	s.task = task

	go func() {
		a, err := s.analyze(ctx, input, settings, func(pct int, msg string) {
			task.report(pct, msg)
			if sink != nil {
				sink(pct, msg)
			}
		})
		if err == nil {
			s.mu.Lock()
			s.analysis = a
			s.mu.Unlock()
		}
		task.finish(a, err)
	}()

	return task, nil
}

// Analyze runs Start and waits for the result
func (s *Session) Analyze(ctx context.Context, input string, settings notes.Settings, sink ProgressFunc) (*Analysis, error) {
	task, err := s.Start(ctx, input, settings, sink)
	if err != nil {
		return nil, err
	}
	return task.Wait()
}

func (s *Session) analyze(ctx context.Context, input string, settings notes.Settings, emit ProgressFunc) (*Analysis, error) {
	logger := log.WithFields(log.Fields{
		"session":     s.id,
		"input":       input,
		"transcriber": s.opts.Transcriber.Name(),
	})

	emit(ProgressDecoding, "Decoding audio")
	stem := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	decoded := filepath.Join(s.dir, "decoded", stem+"_decoded.wav")
	wavPath, err := s.opts.Decoder.Decode(ctx, input, decoded, s.opts.DecodeRate)
	if err != nil {
		return nil, err
	}

	emit(ProgressLoading, "Loading decoded audio")
	samples, sr, err := audio.LoadWAVMono(wavPath)
	if err != nil {
		return nil, err
	}

	emit(ProgressTranscribing, fmt.Sprintf("Transcribing (%s)", s.opts.Transcriber.Name()))
	raw, err := s.opts.Transcriber.Transcribe(ctx, samples, sr, settings)
	if err != nil {
		return nil, err
	}

	emit(ProgressTweaking, "Applying tweaks")
	cleaned := notes.Apply(raw, settings)
	logger.WithFields(log.Fields{
		"raw":     len(raw),
		"cleaned": len(cleaned),
	}).Debug("post-processing complete")

	emit(ProgressComplete, "Analysis complete")
	return &Analysis{
		InputPath:   input,
		DecodedPath: wavPath,
		SampleRate:  sr,
		Raw:         raw,
		Notes:       cleaned,
		Settings:    settings,
	}, nil
}

// Load replaces the session's raw notes, e.g. with notes read from a MIDI
// file, and applies settings to them
func (s *Session) Load(raw []notes.NoteEvent, settings notes.Settings) []notes.NoteEvent {
	cleaned := notes.Apply(raw, settings)

	s.mu.Lock()
	s.analysis = &Analysis{
		Raw:      notes.Clone(raw),
		Notes:    cleaned,
		Settings: settings,
	}
	s.mu.Unlock()

	return notes.Clone(cleaned)
}

// Current returns a copy of the latest analysis
func (s *Session) Current() (*Analysis, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.analysis == nil {
		return nil, false
	}
	a := *s.analysis
	a.Raw = notes.Clone(a.Raw)
	a.Notes = notes.Clone(a.Notes)
	return &a, true
}

// Reapply recomputes the cleaned notes from the raw transcription with new
// settings and schedules a debounced preview render
func (s *Session) Reapply(settings notes.Settings) ([]notes.NoteEvent, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	if s.analysis == nil {
		s.mu.Unlock()
		return nil, ErrNoAnalysis
	}
	cleaned := notes.Apply(s.analysis.Raw, settings)
	next := *s.analysis
	next.Notes = cleaned
	next.Settings = settings
	s.analysis = &next
	s.mu.Unlock()

	s.SchedulePreview()
	return notes.Clone(cleaned), nil
}

// SchedulePreview renders the preview after the debounce delay. Calls within
// the delay collapse into one render.
func (s *Session) SchedulePreview() {
	s.debounced(func() {
		path, err := s.RenderPreview()
		if err != nil && !errors.Is(err, ErrClosed) {
			log.WithField("session", s.id).WithError(err).Warn("preview render failed")
		}
		if s.opts.OnPreview != nil {
			s.opts.OnPreview(path, err)
		}
	})
}

// RenderPreview synthesizes the current notes to PreviewPath, replacing the
// previous file once the new one is complete
func (s *Session) RenderPreview() (string, error) {
	s.previewMu.Lock()
	defer s.previewMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", ErrClosed
	}
	var ns []notes.NoteEvent
	if s.analysis != nil {
		ns = notes.Clone(s.analysis.Notes)
	}
	s.mu.Unlock()

	path := s.PreviewPath()
	tmp := path + ".tmp"
	if err := preview.RenderFile(tmp, ns, s.opts.PreviewRate); err != nil {
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("failed to replace preview: %w", err)
	}
	return path, nil
}

// ExportMIDI writes the current notes to a single-track MIDI file
func (s *Session) ExportMIDI(path string, tempo float64) (*converter.ExportResult, error) {
	a, ok := s.Current()
	if !ok {
		return nil, ErrNoAnalysis
	}
	m := converter.NewMIDIConverter()
	m.SetTempo(tempo)
	return m.ExportMIDI(a.Notes, path)
}

// Close cancels any running task and removes the working directory
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	task := s.task
	s.mu.Unlock()

	if task != nil {
		task.Cancel()
		<-task.Done()
	}

	s.previewMu.Lock()
	defer s.previewMu.Unlock()
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("failed to remove session directory: %w", err)
	}
	return nil
}
