package converter

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/preview"
)

// Format represents a file format
type Format string

const (
	FormatMIDI    Format = "midi"
	FormatWAV     Format = "wav"
	FormatJSON    Format = "json"
	FormatAudio   Format = "audio" // compressed audio that needs decoding first
	FormatUnknown Format = "unknown"
)

// DetectFormat detects the format of a file based on extension
func DetectFormat(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".mid", ".midi":
		return FormatMIDI
	case ".wav", ".wave":
		return FormatWAV
	case ".json":
		return FormatJSON
	case ".mp3", ".flac", ".ogg", ".m4a", ".aac", ".aif", ".aiff":
		return FormatAudio
	default:
		return FormatUnknown
	}
}

// DetectFormatFromContent detects format from file content
func DetectFormatFromContent(data []byte) Format {
	if len(data) < 4 {
		return FormatUnknown
	}

	switch {
	case string(data[:4]) == "MThd":
		return FormatMIDI
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WAVE":
		return FormatWAV
	case string(data[:3]) == "ID3", string(data[:4]) == "fLaC", string(data[:4]) == "OggS":
		return FormatAudio
	}

	trimmed := strings.TrimSpace(string(data[:min(len(data), 64)]))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return FormatJSON
	}
	return FormatUnknown
}

// NotesDocument is the JSON form of a cleaned note sequence
type NotesDocument struct {
	Tempo float64           `json:"tempo_bpm"`
	Notes []notes.NoteEvent `json:"notes"`
}

// Clean runs the post-processing pipeline with the converter's settings
func (c *Converter) Clean(raw []notes.NoteEvent) []notes.NoteEvent {
	return notes.Apply(raw, c.settings)
}

func (c *Converter) midiConverter() *MIDIConverter {
	m := NewMIDIConverter()
	m.SetTempo(c.tempo)
	return m
}

// ConvertFile converts a file from one format to another, cleaning the
// notes on the way
func (c *Converter) ConvertFile(inputPath, outputPath string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	inputFormat := DetectFormat(inputPath)
	if inputFormat == FormatUnknown {
		inputFormat = DetectFormatFromContent(data)
	}

	outputFormat := DetectFormat(outputPath)
	if outputFormat == FormatUnknown {
		return errors.New("cannot determine output format from filename")
	}

	var ns []notes.NoteEvent
	switch inputFormat {
	case FormatMIDI:
		ns, err = c.midiConverter().ParseMIDI(data)
	case FormatJSON:
		ns, err = DecodeNotes(data)
	default:
		return fmt.Errorf("unsupported conversion: %s to %s", inputFormat, outputFormat)
	}
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	cleaned := c.Clean(ns)

	switch outputFormat {
	case FormatMIDI:
		return c.midiConverter().WriteMIDIFile(cleaned, outputPath)
	case FormatWAV:
		return preview.RenderFile(outputPath, cleaned, c.sampleRate)
	case FormatJSON:
		out, err := c.encodeNotes(cleaned)
		if err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
		return writeFile(outputPath, out)
	default:
		return fmt.Errorf("unsupported conversion: %s to %s", inputFormat, outputFormat)
	}
}

// CleanMIDI parses MIDI data, cleans it and returns a single-track file
func (c *Converter) CleanMIDI(midiData []byte) ([]byte, error) {
	ns, err := c.midiConverter().ParseMIDI(midiData)
	if err != nil {
		return nil, err
	}
	return c.midiConverter().GenerateMIDI(c.Clean(ns))
}

// MIDIToJSON converts MIDI data to a cleaned JSON note document
func (c *Converter) MIDIToJSON(midiData []byte) ([]byte, error) {
	ns, err := c.midiConverter().ParseMIDI(midiData)
	if err != nil {
		return nil, err
	}
	return c.encodeNotes(c.Clean(ns))
}

// JSONToMIDI converts a JSON note document to a cleaned MIDI file
func (c *Converter) JSONToMIDI(jsonData []byte) ([]byte, error) {
	ns, err := DecodeNotes(jsonData)
	if err != nil {
		return nil, err
	}
	return c.midiConverter().GenerateMIDI(c.Clean(ns))
}

// MIDIToWAV renders a preview of MIDI data to a WAV file
func (c *Converter) MIDIToWAV(midiData []byte, wavPath string) error {
	ns, err := c.midiConverter().ParseMIDI(midiData)
	if err != nil {
		return err
	}
	return preview.RenderFile(wavPath, c.Clean(ns), c.sampleRate)
}

// WriteJSON writes already cleaned notes as a JSON note document
func (c *Converter) WriteJSON(ns []notes.NoteEvent, path string) error {
	out, err := c.encodeNotes(ns)
	if err != nil {
		return fmt.Errorf("failed to encode notes: %w", err)
	}
	return writeFile(path, out)
}

func (c *Converter) encodeNotes(ns []notes.NoteEvent) ([]byte, error) {
	if ns == nil {
		ns = []notes.NoteEvent{}
	}
	return json.MarshalIndent(NotesDocument{Tempo: c.tempo, Notes: ns}, "", "  ")
}

// DecodeNotes accepts either a NotesDocument or a bare array of notes
func DecodeNotes(data []byte) ([]notes.NoteEvent, error) {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		var ns []notes.NoteEvent
		if err := json.Unmarshal(data, &ns); err != nil {
			return nil, fmt.Errorf("failed to parse notes: %w", err)
		}
		return ns, nil
	}

	var doc NotesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse notes: %w", err)
	}
	return doc.Notes, nil
}

// GetSupportedConversions returns a list of supported conversion paths
func GetSupportedConversions() []string {
	return []string{
		"midi -> midi",
		"midi -> wav",
		"midi -> json",
		"json -> midi",
		"json -> wav",
		"json -> json",
	}
}
