package notes

import (
	"encoding/json"
	"fmt"
	"os"
)

// SettingsFile is the JSON schema for a settings file. Every field is
// optional; missing fields keep their default.
type SettingsFile struct {
	MinNoteMS        *int    `json:"min_note_ms"`
	MinVelocity      *int    `json:"min_velocity"`
	MergeGapMS       *int    `json:"merge_gap_ms"`
	PitchMin         *int    `json:"pitch_min"`
	PitchMax         *int    `json:"pitch_max"`
	MaxPolyphony     *int    `json:"max_polyphony"`
	Velocity         *int    `json:"velocity"`
	Quantize         *bool   `json:"quantize"`
	QuantizeBPM      *int    `json:"quantize_bpm"`
	QuantizeGrid     *string `json:"quantize_grid"`
	QuantizeStrength *int    `json:"quantize_strength"`
}

// LoadSettingsJSON loads a settings file and applies it on top of the defaults
func LoadSettingsJSON(path string) (Settings, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	var f SettingsFile
	if err := json.Unmarshal(b, &f); err != nil {
		return Settings{}, fmt.Errorf("failed to parse settings file: %w", err)
	}

	s := DefaultSettings()
	if err := ApplyFile(&s, &f); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// ApplyFile applies a parsed settings file onto dst and validates the result
func ApplyFile(dst *Settings, f *SettingsFile) error {
	if dst == nil {
		return fmt.Errorf("nil destination settings")
	}
	if f == nil {
		return nil
	}

	setInt(&dst.MinNoteMS, f.MinNoteMS)
	setInt(&dst.MinVelocity, f.MinVelocity)
	setInt(&dst.MergeGapMS, f.MergeGapMS)
	setInt(&dst.PitchMin, f.PitchMin)
	setInt(&dst.PitchMax, f.PitchMax)
	setInt(&dst.MaxPolyphony, f.MaxPolyphony)
	setInt(&dst.Velocity, f.Velocity)
	setInt(&dst.QuantizeBPM, f.QuantizeBPM)
	setInt(&dst.QuantizeStrength, f.QuantizeStrength)
	if f.Quantize != nil {
		dst.Quantize = *f.Quantize
	}
	if f.QuantizeGrid != nil {
		dst.QuantizeGrid = *f.QuantizeGrid
	}

	if err := dst.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}
