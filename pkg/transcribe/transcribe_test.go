package transcribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/wavenotes/pkg/apperrors"
	"github.com/james-see/wavenotes/pkg/converter"
	"github.com/james-see/wavenotes/pkg/notes"
	"github.com/james-see/wavenotes/pkg/runner"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		wantErr  bool
	}{
		{"", NameStub, false},
		{"stub", NameStub, false},
		{"Basic-Pitch", NameBasicPitch, false},
		{"basicpitch", NameBasicPitch, false},
		{"onnx", "", true},
	}

	for _, tt := range tests {
		tr, err := New(tt.name, t.TempDir(), nil)
		if tt.wantErr {
			assert.Error(t, err, "New(%q)", tt.name)
			continue
		}
		require.NoError(t, err, "New(%q)", tt.name)
		assert.Equal(t, tt.expected, tr.Name())
	}
}

func TestStubArpeggio(t *testing.T) {
	settings := notes.DefaultSettings()
	settings.Velocity = 77

	tests := []struct {
		name     string
		seconds  float64
		expected float64 // total span
	}{
		{"short clip clamps to 2s", 0.5, 2},
		{"mid clip", 4, 4},
		{"long clip clamps to 8s", 30, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sr := 1000
			samples := make([]float64, int(tt.seconds*float64(sr)))

			got, err := (&Stub{}).Transcribe(context.Background(), samples, sr, settings)
			require.NoError(t, err)
			require.Len(t, got, 4)

			step := tt.expected / 4
			for i, n := range got {
				assert.Equal(t, arpeggio[i], n.Pitch)
				assert.Equal(t, 77, n.Velocity)
				assert.InDelta(t, float64(i)*step, n.Start, 1e-9)
				assert.InDelta(t, step*0.9, n.Duration(), 1e-9)
			}
		})
	}
}

func TestStubZeroSampleRate(t *testing.T) {
	got, err := (&Stub{}).Transcribe(context.Background(), nil, 0, notes.DefaultSettings())
	require.NoError(t, err)
	assert.InDelta(t, 0.45, got[0].End, 1e-9)
}

// scriptedRunner plays the part of basic-pitch by writing a MIDI file into
// the requested output directory
type scriptedRunner struct {
	midi []byte
	err  error
	args []string
}

func (r *scriptedRunner) Run(ctx context.Context, name string, args ...string) (*runner.Result, error) {
	r.args = args
	if r.err != nil {
		return &runner.Result{ExitCode: 1, Stderr: "model failed"}, r.err
	}
	if r.midi != nil {
		if err := os.WriteFile(filepath.Join(args[0], "input_basic_pitch.mid"), r.midi, 0644); err != nil {
			return nil, err
		}
	}
	return &runner.Result{}, nil
}

func TestBasicPitchParsesOutput(t *testing.T) {
	want := []notes.NoteEvent{notes.New(0, 0.5, 60, 80), notes.New(0.5, 1, 62, 70)}
	data, err := converter.NewMIDIConverter().GenerateMIDI(want)
	require.NoError(t, err)

	work := t.TempDir()
	r := &scriptedRunner{midi: data}
	got, err := NewBasicPitch(work, r).Transcribe(context.Background(), make([]float64, 1000), 16000, notes.DefaultSettings())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 60, got[0].Pitch)
	assert.Equal(t, 62, got[1].Pitch)

	require.Len(t, r.args, 2)
	assert.Equal(t, filepath.Join(work, "basic_pitch", "out"), r.args[0])
	assert.FileExists(t, r.args[1])
}

func TestBasicPitchFailures(t *testing.T) {
	t.Run("process error", func(t *testing.T) {
		r := &scriptedRunner{err: errors.New("exit status 1")}
		_, err := NewBasicPitch(t.TempDir(), r).Transcribe(context.Background(), nil, 16000, notes.DefaultSettings())

		var pe *apperrors.ProcessError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "model failed", pe.Stderr)
	})

	t.Run("tool missing", func(t *testing.T) {
		r := &scriptedRunner{err: apperrors.ErrToolNotInstalled}
		_, err := NewBasicPitch(t.TempDir(), r).Transcribe(context.Background(), nil, 16000, notes.DefaultSettings())
		assert.ErrorIs(t, err, apperrors.ErrToolNotInstalled)
	})

	t.Run("no midi produced", func(t *testing.T) {
		_, err := NewBasicPitch(t.TempDir(), &scriptedRunner{}).Transcribe(context.Background(), nil, 16000, notes.DefaultSettings())
		assert.ErrorIs(t, err, apperrors.ErrNoOutput)
	})
}

func TestToPCM16(t *testing.T) {
	assert.Equal(t, []int16{0, 32767, -32767, 32767, -32767}, toPCM16([]float64{0, 1, -1, 2, -2}))
}
