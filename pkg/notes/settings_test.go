package notes

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettingsAreValid(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"negative min note", func(s *Settings) { s.MinNoteMS = -1 }},
		{"pitch window inverted", func(s *Settings) { s.PitchMin, s.PitchMax = 80, 40 }},
		{"pitch max above range", func(s *Settings) { s.PitchMax = 128 }},
		{"velocity zero", func(s *Settings) { s.Velocity = 0 }},
		{"bpm zero", func(s *Settings) { s.QuantizeBPM = 0 }},
		{"strength above 100", func(s *Settings) { s.QuantizeStrength = 101 }},
		{"negative polyphony", func(s *Settings) { s.MaxPolyphony = -2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestGridDenominator(t *testing.T) {
	tests := []struct {
		grid string
		want int
	}{
		{"1/16", 16},
		{"1/8", 8},
		{"1/ 4", 4},
		{"1/3", 3},
		{"16", 16},
		{"", 16},
		{"1/eighth", 16},
		{"1/8T", 16},
		{"1/0", 1},
		{"1/-4", 1},
		{"1/32/2", 32},
	}

	for _, tt := range tests {
		t.Run(tt.grid, func(t *testing.T) {
			if got := GridDenominator(tt.grid); got != tt.want {
				t.Errorf("GridDenominator(%q) = %d, want %d", tt.grid, got, tt.want)
			}
		})
	}
}

func TestGridSeconds(t *testing.T) {
	assert.InDelta(t, 0.125, GridSeconds(120, "1/16"), 1e-12)
	assert.InDelta(t, 0.25, GridSeconds(60, "1/16"), 1e-12)
	assert.InDelta(t, 2.0, GridSeconds(120, "1/1"), 1e-12)
	assert.InDelta(t, 15.0, GridSeconds(0, "1/16"), 1e-12)
}

func TestLoadSettingsJSONAppliesOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	content := `{
  "min_note_ms": 40,
  "max_polyphony": 4,
  "quantize": true,
  "quantize_grid": "1/8"
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := LoadSettingsJSON(path)
	require.NoError(t, err)

	want := DefaultSettings()
	want.MinNoteMS = 40
	want.MaxPolyphony = 4
	want.Quantize = true
	want.QuantizeGrid = "1/8"
	assert.Equal(t, want, s)
}

func TestLoadSettingsJSONRejectsInvalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"velocity": 0}`), 0o644))

	_, err := LoadSettingsJSON(path)
	assert.ErrorContains(t, err, "velocity")
}

func TestLoadSettingsJSONMissingFile(t *testing.T) {
	_, err := LoadSettingsJSON(filepath.Join(t.TempDir(), "nope.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
