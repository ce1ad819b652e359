// Package converter translates cleaned note sequences to and from Standard
// MIDI Files and preview audio.
package converter

import (
	"github.com/james-see/wavenotes/pkg/notes"
)

const (
	// TicksPerBeat is the fixed MIDI resolution of every exported file
	TicksPerBeat = 480
	// DefaultTempo is used when a file carries no tempo event
	DefaultTempo = 120.0
)

// Track is a named group of notes exported as one MIDI track, e.g. a stem
type Track struct {
	Name  string
	Notes []notes.NoteEvent
}

// ExportResult describes the files written by an export
type ExportResult struct {
	Paths    []string // Files written, in track order
	Fallback bool     // Multi-track export fell back to one file per track
}

// Converter handles format conversions. Every conversion runs the
// post-processing pipeline with the configured settings.
type Converter struct {
	settings   notes.Settings
	tempo      float64
	sampleRate int
}

// New creates a new Converter with the given settings and export tempo
func New(settings notes.Settings, tempo float64) *Converter {
	return &Converter{
		settings:   settings,
		tempo:      tempo,
		sampleRate: 44100,
	}
}

// GetSettings returns the current pipeline settings
func (c *Converter) GetSettings() notes.Settings {
	return c.settings
}

// SetSettings sets the pipeline settings used by later conversions
func (c *Converter) SetSettings(settings notes.Settings) {
	c.settings = settings
}

// Tempo returns the export tempo in BPM
func (c *Converter) Tempo() float64 {
	return c.tempo
}

// SetTempo sets the export tempo in BPM
func (c *Converter) SetTempo(bpm float64) {
	c.tempo = bpm
}

// SetSampleRate sets the sample rate used for preview rendering
func (c *Converter) SetSampleRate(sr int) {
	c.sampleRate = sr
}
