// Package preview renders cleaned notes to a simple sine-wave audition track
package preview

import (
	"math"

	"github.com/james-see/wavenotes/pkg/notes"
)

const (
	// DefaultSampleRate is used when a non-positive rate is requested
	DefaultSampleRate = 44100

	attackSeconds  = 0.01
	releaseSeconds = 0.03
	minLength      = 0.1
	headroom       = 0.95
)

// MIDIToHz returns the equal-tempered frequency of a MIDI pitch (A4 = 440 Hz)
func MIDIToHz(pitch int) float64 {
	return 440.0 * math.Pow(2, float64(pitch-69)/12.0)
}

// Render synthesizes notes to 16-bit PCM samples. The buffer covers the span
// of the notes (at least 0.1 s), is peak-normalized to 95% of full scale and
// is always silent when there are no notes.
func Render(ns []notes.NoteEvent, sampleRate int) []int16 {
	sr := sampleRate
	if sr <= 0 {
		sr = DefaultSampleRate
	}

	start, end, ok := notes.Span(ns)
	if !ok {
		return make([]int16, int(minLength*float64(sr)))
	}

	length := max(minLength, end-start)
	buf := make([]float64, int(length*float64(sr)))

	attack := int(attackSeconds * float64(sr))
	release := int(releaseSeconds * float64(sr))

	for _, n := range ns {
		st := int(max(0, n.Start-start) * float64(sr))
		en := min(int(max(0, n.End-start)*float64(sr)), len(buf))
		if en <= st {
			continue
		}

		hz := MIDIToHz(n.Pitch)
		amp := min(1, max(0.05, float64(n.Velocity)/127.0)) * 0.25

		for i := st; i < en; i++ {
			t := float64(i-st) / float64(sr)
			env := 1.0
			if i-st < attack {
				env = float64(i-st) / float64(max(1, attack))
			}
			if en-i < release {
				env = min(env, float64(en-i)/float64(max(1, release)))
			}
			buf[i] += math.Sin(2*math.Pi*hz*t) * amp * env
		}
	}

	peak := 1e-9
	for _, x := range buf {
		peak = max(peak, math.Abs(x))
	}
	norm := headroom / peak

	pcm := make([]int16, len(buf))
	for i, x := range buf {
		v := max(-32767, min(32767, x*norm*32767))
		pcm[i] = int16(v)
	}
	return pcm
}
