package notes

import (
	"math"
	"sort"
)

// Apply runs the full post-processing pipeline over raw notes:
// filter, merge, polyphony cap, quantize (when enabled) and velocity
// normalization. The result is sorted by (Start, Pitch) and is a pure
// function of its inputs, so re-applying with the same settings is stable.
func Apply(raw []NoteEvent, s Settings) []NoteEvent {
	out := Filter(raw, s)
	out = MergeGaps(out, float64(s.MergeGapMS)/1000.0)
	out = CapPolyphony(out, s.MaxPolyphony)
	if s.Quantize {
		out = QuantizeNotes(out, s)
	}
	return NormalizeVelocity(out, s.Velocity)
}

// Filter drops notes outside the pitch window, empty or inverted notes,
// notes shorter than MinNoteMS and notes quieter than MinVelocity.
// Order is preserved.
func Filter(ns []NoteEvent, s Settings) []NoteEvent {
	minDur := max(0, float64(s.MinNoteMS)/1000.0)

	out := make([]NoteEvent, 0, len(ns))
	for _, n := range ns {
		if n.Pitch < s.PitchMin || n.Pitch > s.PitchMax {
			continue
		}
		if n.Pitch < 0 || n.Pitch > 127 {
			continue
		}
		if n.End <= n.Start {
			continue
		}
		if n.End-n.Start < minDur {
			continue
		}
		if n.Velocity < s.MinVelocity {
			continue
		}
		out = append(out, n)
	}
	return out
}

// MergeGaps joins consecutive same-pitch notes separated by at most gap
// seconds. The merged note spans both and keeps the louder velocity.
// A non-positive gap only sorts.
func MergeGaps(ns []NoteEvent, gap float64) []NoteEvent {
	if gap <= 0 {
		out := Clone(ns)
		SortCanonical(out)
		return out
	}

	sorted := Clone(ns)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Pitch != b.Pitch {
			return a.Pitch < b.Pitch
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.End < b.End
	})

	out := make([]NoteEvent, 0, len(sorted))
	for i := 0; i < len(sorted); {
		cur := sorted[i]
		j := i + 1
		for j < len(sorted) && sorted[j].Pitch == cur.Pitch {
			next := sorted[j]
			if next.Start > cur.End+gap {
				break
			}
			cur.End = max(cur.End, next.End)
			cur.Velocity = max(cur.Velocity, next.Velocity)
			j++
		}
		out = append(out, cur)
		i = j
	}

	SortCanonical(out)
	return out
}

// CapPolyphony limits the number of simultaneously sounding notes to
// maxPolyphony. Notes are visited by onset, loudest first; whenever the
// active set overflows, the quietest active note is dropped (first match
// on ties). This is a greedy heuristic, not an optimal assignment.
// A non-positive limit only sorts.
func CapPolyphony(ns []NoteEvent, maxPolyphony int) []NoteEvent {
	if maxPolyphony <= 0 {
		out := Clone(ns)
		SortCanonical(out)
		return out
	}

	sorted := Clone(ns)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.Velocity > b.Velocity
	})

	dropped := make([]bool, len(sorted))
	var active []int
	for i, n := range sorted {
		live := active[:0]
		for _, a := range active {
			if sorted[a].End > n.Start {
				live = append(live, a)
			}
		}
		active = append(live, i)

		if len(active) > maxPolyphony {
			worst := 0
			for k := 1; k < len(active); k++ {
				if sorted[active[k]].Velocity < sorted[active[worst]].Velocity {
					worst = k
				}
			}
			dropped[active[worst]] = true
			active = append(active[:worst], active[worst+1:]...)
		}
	}

	out := make([]NoteEvent, 0, len(sorted))
	for i, n := range sorted {
		if !dropped[i] {
			out = append(out, n)
		}
	}
	SortCanonical(out)
	return out
}

// QuantizeNotes pulls both endpoints of every note toward the nearest grid
// line by QuantizeStrength percent. Inverted results are swapped and notes
// that collapse below the minimum duration are extended to it.
func QuantizeNotes(ns []NoteEvent, s Settings) []NoteEvent {
	grid := GridSeconds(s.QuantizeBPM, s.QuantizeGrid)
	strength := clamp(float64(s.QuantizeStrength)/100.0, 0, 1)
	if strength <= 0 {
		return Clone(ns)
	}

	minDur := max(0.001, float64(s.MinNoteMS)/1000.0)
	out := make([]NoteEvent, 0, len(ns))
	for _, n := range ns {
		start := quantizeTime(n.Start, grid, strength)
		end := quantizeTime(n.End, grid, strength)
		if end < start {
			start, end = end, start
		}
		start = max(0, start)
		if end-start < minDur {
			end = start + minDur
		}
		n.Start, n.End = start, end
		out = append(out, n)
	}
	return out
}

// quantizeTime rounds half to even so grid midpoints resolve the same way
// tick conversion does.
func quantizeTime(t, grid, strength float64) float64 {
	if grid <= 0 {
		return t
	}
	target := math.RoundToEven(t/grid) * grid
	return t + (target-t)*strength
}

// NormalizeVelocity replaces every velocity with velocity clamped to 1-127
// and returns the notes in canonical order.
func NormalizeVelocity(ns []NoteEvent, velocity int) []NoteEvent {
	v := clamp(velocity, 1, 127)
	out := make([]NoteEvent, len(ns))
	for i, n := range ns {
		out[i] = n.WithVelocity(v)
	}
	SortCanonical(out)
	return out
}
