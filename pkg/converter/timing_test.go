package converter

import (
	"math"
	"testing"
)

func TestSecondsToTicks(t *testing.T) {
	tests := []struct {
		sec      float64
		bpm      float64
		expected int64
	}{
		{0, 120, 0},
		{0.5, 120, 480},
		{1, 120, 960},
		{1, 60, 480},
		{0.25, 120, 240},
		{1, 0, 8},   // tempo floored at 1 BPM
		{1, -10, 8}, // tempo floored at 1 BPM
	}

	for _, tt := range tests {
		result := SecondsToTicks(tt.sec, tt.bpm, TicksPerBeat)
		if result != tt.expected {
			t.Errorf("SecondsToTicks(%v, %v) = %d, want %d", tt.sec, tt.bpm, result, tt.expected)
		}
	}
}

func TestSecondsToTicksRoundsHalfToEven(t *testing.T) {
	// at 60 BPM and 2 ticks per beat every quarter second is half a tick
	tests := []struct {
		sec      float64
		expected int64
	}{
		{0.25, 0},
		{0.75, 2},
		{1.25, 2},
		{1.75, 4},
	}

	for _, tt := range tests {
		if got := SecondsToTicks(tt.sec, 60, 2); got != tt.expected {
			t.Errorf("SecondsToTicks(%v, 60, 2) = %d, want %d", tt.sec, got, tt.expected)
		}
	}
}

func TestTicksToSecondsInverse(t *testing.T) {
	for _, bpm := range []float64{60, 90, 120, 174} {
		for _, sec := range []float64{0, 0.1, 0.75, 2.5, 10} {
			ticks := SecondsToTicks(sec, bpm, TicksPerBeat)
			back := TicksToSeconds(ticks, bpm, TicksPerBeat)
			tick := 60.0 / bpm / TicksPerBeat
			if math.Abs(back-sec) > tick/2+1e-12 {
				t.Errorf("TicksToSeconds(SecondsToTicks(%v)) at %v BPM = %v", sec, bpm, back)
			}
		}
	}
}

func TestTempoMicroseconds(t *testing.T) {
	tests := []struct {
		bpm      float64
		expected uint32
	}{
		{120, 500000},
		{60, 1000000},
		{90, 666667},
		{0, 60000000},
	}

	for _, tt := range tests {
		if got := TempoMicroseconds(tt.bpm); got != tt.expected {
			t.Errorf("TempoMicroseconds(%v) = %d, want %d", tt.bpm, got, tt.expected)
		}
	}

	if got := BPMFromMicroseconds(500000); got != 120 {
		t.Errorf("BPMFromMicroseconds(500000) = %v, want 120", got)
	}
	if got := BPMFromMicroseconds(0); got != DefaultTempo {
		t.Errorf("BPMFromMicroseconds(0) = %v, want %v", got, DefaultTempo)
	}
}
