package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/james-see/wavenotes/pkg/converter"
	"github.com/james-see/wavenotes/pkg/notes"
)

// settingsFlags binds the post-processing settings to command line flags
type settingsFlags struct {
	config string
	tempo  float64
	values notes.Settings
}

var cliSettings settingsFlags

func (f *settingsFlags) register(fs *pflag.FlagSet) {
	d := notes.DefaultSettings()
	f.values = d

	fs.StringVar(&f.config, "config", "", "JSON settings file; flags override its values")
	fs.Float64Var(&f.tempo, "tempo", converter.DefaultTempo, "Export tempo in BPM")
	fs.IntVar(&f.values.MinNoteMS, "min-note-ms", d.MinNoteMS, "Drop notes shorter than this many milliseconds")
	fs.IntVar(&f.values.MinVelocity, "min-velocity", d.MinVelocity, "Drop notes quieter than this velocity")
	fs.IntVar(&f.values.MergeGapMS, "merge-gap-ms", d.MergeGapMS, "Merge same-pitch notes separated by at most this gap (0 disables)")
	fs.IntVar(&f.values.PitchMin, "pitch-min", d.PitchMin, "Lowest MIDI pitch kept")
	fs.IntVar(&f.values.PitchMax, "pitch-max", d.PitchMax, "Highest MIDI pitch kept")
	fs.IntVar(&f.values.MaxPolyphony, "max-polyphony", d.MaxPolyphony, "Maximum simultaneous notes (0 disables)")
	fs.IntVar(&f.values.Velocity, "velocity", d.Velocity, "Velocity given to every output note")
	fs.BoolVar(&f.values.Quantize, "quantize", d.Quantize, "Snap notes to a grid")
	fs.IntVar(&f.values.QuantizeBPM, "quantize-bpm", d.QuantizeBPM, "Tempo of the quantize grid")
	fs.StringVar(&f.values.QuantizeGrid, "quantize-grid", d.QuantizeGrid, "Quantize grid as a note fraction, e.g. 1/16")
	fs.IntVar(&f.values.QuantizeStrength, "quantize-strength", d.QuantizeStrength, "Quantize strength in percent")
}

// resolve layers the defaults, the --config file and the flags that were
// set explicitly, then validates the result
func (f *settingsFlags) resolve(fs *pflag.FlagSet) (notes.Settings, float64, error) {
	s := notes.DefaultSettings()
	if f.config != "" {
		loaded, err := notes.LoadSettingsJSON(f.config)
		if err != nil {
			return s, 0, err
		}
		s = loaded
	}

	v := f.values
	overrides := map[string]func(){
		"min-note-ms":       func() { s.MinNoteMS = v.MinNoteMS },
		"min-velocity":      func() { s.MinVelocity = v.MinVelocity },
		"merge-gap-ms":      func() { s.MergeGapMS = v.MergeGapMS },
		"pitch-min":         func() { s.PitchMin = v.PitchMin },
		"pitch-max":         func() { s.PitchMax = v.PitchMax },
		"max-polyphony":     func() { s.MaxPolyphony = v.MaxPolyphony },
		"velocity":          func() { s.Velocity = v.Velocity },
		"quantize":          func() { s.Quantize = v.Quantize },
		"quantize-bpm":      func() { s.QuantizeBPM = v.QuantizeBPM },
		"quantize-grid":     func() { s.QuantizeGrid = v.QuantizeGrid },
		"quantize-strength": func() { s.QuantizeStrength = v.QuantizeStrength },
	}
	for name, apply := range overrides {
		if fs.Changed(name) {
			apply()
		}
	}

	if err := s.Validate(); err != nil {
		return s, 0, fmt.Errorf("invalid settings: %w", err)
	}
	if f.tempo <= 0 {
		return s, 0, fmt.Errorf("tempo must be positive, got %v", f.tempo)
	}
	return s, f.tempo, nil
}

func resolveSettings(cmd *cobra.Command) (notes.Settings, float64, error) {
	return cliSettings.resolve(cmd.Flags())
}
