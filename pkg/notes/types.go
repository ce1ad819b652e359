// Package notes provides the note event model and the post-processing
// pipeline applied to raw transcriptions before display or export.
package notes

import (
	"fmt"
	"sort"
)

// DefaultVelocity is the velocity given to notes created without one
const DefaultVelocity = 96

// NoteEvent is a single pitched sound. Values are never mutated in place;
// every pipeline stage returns a new slice.
type NoteEvent struct {
	Start    float64 `json:"start_sec"`  // Onset in seconds (>= 0)
	End      float64 `json:"end_sec"`    // Release in seconds (> Start once cleaned)
	Pitch    int     `json:"midi_pitch"` // MIDI note number (0-127)
	Velocity int     `json:"velocity"`   // MIDI velocity (1-127)
	Channel  int     `json:"channel"`    // MIDI channel (0-15)
}

// New creates a note on channel 0
func New(start, end float64, pitch, velocity int) NoteEvent {
	return NoteEvent{Start: start, End: end, Pitch: pitch, Velocity: velocity}
}

// Duration returns the note length in seconds
func (n NoteEvent) Duration() float64 {
	return n.End - n.Start
}

// WithVelocity returns a copy of n with a different velocity
func (n NoteEvent) WithVelocity(velocity int) NoteEvent {
	n.Velocity = velocity
	return n
}

// Name returns the scientific pitch name of the note, e.g. "C4" for 60
func (n NoteEvent) Name() string {
	return PitchName(n.Pitch)
}

func (n NoteEvent) String() string {
	return fmt.Sprintf("%s [%.3f-%.3f] vel=%d", n.Name(), n.Start, n.End, n.Velocity)
}

var pitchClasses = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchName converts a MIDI note number to its scientific pitch name
func PitchName(pitch int) string {
	octave := pitch/12 - 1
	class := pitch % 12
	if class < 0 {
		class += 12
		octave--
	}
	return fmt.Sprintf("%s%d", pitchClasses[class], octave)
}

// SortCanonical orders notes by start time, then pitch. The sort is stable.
func SortCanonical(ns []NoteEvent) {
	sort.SliceStable(ns, func(i, j int) bool {
		return canonicalLess(ns[i], ns[j])
	})
}

// IsSorted reports whether ns is in canonical order
func IsSorted(ns []NoteEvent) bool {
	return sort.SliceIsSorted(ns, func(i, j int) bool {
		return canonicalLess(ns[i], ns[j])
	})
}

func canonicalLess(a, b NoteEvent) bool {
	if a.Start != b.Start {
		return a.Start < b.Start
	}
	return a.Pitch < b.Pitch
}

// Clone returns a copy of ns that shares no storage with it
func Clone(ns []NoteEvent) []NoteEvent {
	out := make([]NoteEvent, len(ns))
	copy(out, ns)
	return out
}

// Span returns the earliest start and the latest end across ns.
// ok is false for an empty slice.
func Span(ns []NoteEvent) (start, end float64, ok bool) {
	if len(ns) == 0 {
		return 0, 0, false
	}
	start, end = ns[0].Start, ns[0].End
	for _, n := range ns[1:] {
		start = min(start, n.Start)
		end = max(end, n.End)
	}
	return start, end, true
}
