package converter

import "math"

// SecondsToTicks converts a time in seconds to MIDI ticks at a fixed tempo.
// Halves round to even.
func SecondsToTicks(sec, bpm float64, ticksPerBeat int) int64 {
	beats := sec / (60.0 / clampTempo(bpm))
	return int64(math.RoundToEven(beats * float64(ticksPerBeat)))
}

// TicksToSeconds converts MIDI ticks back to seconds at a fixed tempo
func TicksToSeconds(ticks int64, bpm float64, ticksPerBeat int) float64 {
	if ticksPerBeat <= 0 {
		return 0
	}
	return float64(ticks) / float64(ticksPerBeat) * (60.0 / clampTempo(bpm))
}

// TempoMicroseconds returns the set_tempo value (microseconds per quarter
// note) for bpm
func TempoMicroseconds(bpm float64) uint32 {
	return uint32(math.Round(60000000.0 / clampTempo(bpm)))
}

// BPMFromMicroseconds is the inverse of TempoMicroseconds
func BPMFromMicroseconds(us uint32) float64 {
	if us == 0 {
		return DefaultTempo
	}
	return 60000000.0 / float64(us)
}

func clampTempo(bpm float64) float64 {
	if bpm < 1 || math.IsNaN(bpm) {
		return 1
	}
	return bpm
}
