package notes

import (
	"errors"
	"fmt"
)

// Settings controls every post-processing stage. A Settings value is
// immutable for the duration of one pipeline run.
type Settings struct {
	MinNoteMS        int    `json:"min_note_ms"`
	MinVelocity      int    `json:"min_velocity"`
	MergeGapMS       int    `json:"merge_gap_ms"`
	PitchMin         int    `json:"pitch_min"`
	PitchMax         int    `json:"pitch_max"`
	MaxPolyphony     int    `json:"max_polyphony"`
	Velocity         int    `json:"velocity"` // Output velocity override
	Quantize         bool   `json:"quantize"`
	QuantizeBPM      int    `json:"quantize_bpm"`
	QuantizeGrid     string `json:"quantize_grid"` // e.g. "1/16"
	QuantizeStrength int    `json:"quantize_strength"` // 0-100
}

// DefaultSettings returns the settings used when nothing is configured
func DefaultSettings() Settings {
	return Settings{
		MinNoteMS:        80,
		MinVelocity:      10,
		MergeGapMS:       30,
		PitchMin:         21,
		PitchMax:         108,
		MaxPolyphony:     10,
		Velocity:         DefaultVelocity,
		Quantize:         false,
		QuantizeBPM:      120,
		QuantizeGrid:     "1/16",
		QuantizeStrength: 60,
	}
}

// Validate checks that s is within the ranges the configuration surfaces
// accept. Apply never calls it: the pipeline is total over any Settings.
func (s Settings) Validate() error {
	var errs []error
	if s.MinNoteMS < 0 {
		errs = append(errs, fmt.Errorf("min_note_ms must be >= 0, got %d", s.MinNoteMS))
	}
	if s.MinVelocity < 0 || s.MinVelocity > 127 {
		errs = append(errs, fmt.Errorf("min_velocity must be in 0-127, got %d", s.MinVelocity))
	}
	if s.MergeGapMS < 0 {
		errs = append(errs, fmt.Errorf("merge_gap_ms must be >= 0, got %d", s.MergeGapMS))
	}
	if s.PitchMin < 0 || s.PitchMin > 127 {
		errs = append(errs, fmt.Errorf("pitch_min must be in 0-127, got %d", s.PitchMin))
	}
	if s.PitchMax < 0 || s.PitchMax > 127 {
		errs = append(errs, fmt.Errorf("pitch_max must be in 0-127, got %d", s.PitchMax))
	}
	if s.PitchMin > s.PitchMax {
		errs = append(errs, fmt.Errorf("pitch_min (%d) must not exceed pitch_max (%d)", s.PitchMin, s.PitchMax))
	}
	if s.MaxPolyphony < 0 {
		errs = append(errs, fmt.Errorf("max_polyphony must be >= 0, got %d", s.MaxPolyphony))
	}
	if s.Velocity < 1 || s.Velocity > 127 {
		errs = append(errs, fmt.Errorf("velocity must be in 1-127, got %d", s.Velocity))
	}
	if s.QuantizeBPM < 1 {
		errs = append(errs, fmt.Errorf("quantize_bpm must be >= 1, got %d", s.QuantizeBPM))
	}
	if s.QuantizeStrength < 0 || s.QuantizeStrength > 100 {
		errs = append(errs, fmt.Errorf("quantize_strength must be in 0-100, got %d", s.QuantizeStrength))
	}
	return errors.Join(errs...)
}
