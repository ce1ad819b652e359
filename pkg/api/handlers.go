package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/james-see/wavenotes/pkg/converter"
	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/preview"
)

// settingsFromRequest applies the optional "settings" form field (a JSON
// object with any subset of the settings keys) on top of the defaults
func settingsFromRequest(c *gin.Context) (notes.Settings, error) {
	s := notes.DefaultSettings()
	raw := c.PostForm("settings")
	if raw == "" {
		raw = c.Query("settings")
	}
	if raw == "" {
		return s, nil
	}

	var f notes.SettingsFile
	if err := json.Unmarshal([]byte(raw), &f); err != nil {
		return s, fmt.Errorf("failed to parse settings: %w", err)
	}
	if err := notes.ApplyFile(&s, &f); err != nil {
		return s, err
	}
	return s, nil
}

func tempoFromRequest(c *gin.Context, fallback float64) float64 {
	if v, err := strconv.ParseFloat(c.Query("tempo"), 64); err == nil && v > 0 {
		return v
	}
	return fallback
}

// uploadedNotes reads the "file" upload as MIDI or a JSON note document
func uploadedNotes(c *gin.Context) ([]notes.NoteEvent, string, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return nil, "", errors.New("no file uploaded")
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", errors.New("failed to read file")
	}

	format := converter.DetectFormat(header.Filename)
	if format == converter.FormatUnknown {
		format = converter.DetectFormatFromContent(data)
	}

	var ns []notes.NoteEvent
	switch format {
	case converter.FormatMIDI:
		ns, err = converter.NewMIDIConverter().ParseMIDI(data)
	case converter.FormatJSON:
		ns, err = converter.DecodeNotes(data)
	default:
		return nil, "", fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, "", err
	}
	return ns, header.Filename, nil
}

func outputName(filename, ext string) string {
	base := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if base == "" || base == "." {
		base = "converted"
	}
	return base + ext
}

// handleClean godoc
// @Summary Clean a note sequence
// @Description Upload a MIDI file or JSON note document, run the post-processing pipeline and receive a single-track MIDI file (or JSON with format=json)
// @Tags convert
// @Accept multipart/form-data
// @Produce application/octet-stream
// @Param file formData file true "MIDI or JSON file"
// @Param settings formData string false "Settings overrides as JSON"
// @Param format query string false "Response format: midi (default) or json"
// @Param tempo query number false "Export tempo in BPM (default: 120)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/clean [post]
func (s *Server) handleClean(c *gin.Context) {
	ns, filename, err := uploadedNotes(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings, err := settingsFromRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tempo := tempoFromRequest(c, s.cfg.Tempo)
	cleaned := notes.Apply(ns, settings)

	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, converter.NotesDocument{Tempo: tempo, Notes: nonNil(cleaned)})
		return
	}

	m := converter.NewMIDIConverter()
	m.SetTempo(tempo)
	result, err := m.GenerateMIDI(cleaned)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName(filename, "_clean.mid")))
	c.Data(http.StatusOK, "audio/midi", result)
}

// handlePreview godoc
// @Summary Render a preview
// @Description Upload a MIDI file or JSON note document and receive a sine-wave WAV preview of the cleaned notes
// @Tags convert
// @Accept multipart/form-data
// @Produce audio/wav
// @Param file formData file true "MIDI or JSON file"
// @Param settings formData string false "Settings overrides as JSON"
// @Param sample_rate query int false "Sample rate (default: 44100)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/preview [post]
func (s *Server) handlePreview(c *gin.Context) {
	ns, filename, err := uploadedNotes(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	settings, err := settingsFromRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sr, _ := strconv.Atoi(c.Query("sample_rate"))
	sendPreview(c, notes.Apply(ns, settings), sr, outputName(filename, "_preview.wav"))
}

func sendPreview(c *gin.Context, ns []notes.NoteEvent, sampleRate int, name string) {
	dir, err := os.MkdirTemp("", "wavenotes-preview-")
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "preview.wav")
	if err := preview.RenderFile(path, ns, sampleRate); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", name))
	c.Data(http.StatusOK, "audio/wav", data)
}

// NotesRequest is the body of /notes/midi
type NotesRequest struct {
	Tempo    float64             `json:"tempo_bpm"`
	Notes    []notes.NoteEvent   `json:"notes"`
	Settings *notes.SettingsFile `json:"settings,omitempty"`
}

// handleNotesToMIDI godoc
// @Summary Convert notes to MIDI
// @Description Post a JSON note document and receive a cleaned single-track MIDI file
// @Tags convert
// @Accept json
// @Produce audio/midi
// @Param request body NotesRequest true "Notes and optional settings"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/notes/midi [post]
func (s *Server) handleNotesToMIDI(c *gin.Context) {
	var req NotesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := notes.DefaultSettings()
	if err := notes.ApplyFile(&settings, req.Settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m := converter.NewMIDIConverter()
	m.SetTempo(s.cfg.Tempo)
	if req.Tempo > 0 {
		m.SetTempo(req.Tempo)
	}
	result, err := m.GenerateMIDI(notes.Apply(req.Notes, settings))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header("Content-Disposition", "attachment; filename=notes.mid")
	c.Data(http.StatusOK, "audio/midi", result)
}

func nonNil(ns []notes.NoteEvent) []notes.NoteEvent {
	if ns == nil {
		return []notes.NoteEvent{}
	}
	return ns
}
