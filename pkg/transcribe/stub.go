package transcribe

import (
	"context"

	"github.com/james-see/wavenotes/pkg/notes"
)

var arpeggio = []int{60, 64, 67, 72}

// Stub produces a C major arpeggio spread over the clip (clamped to 2-8
// seconds) so the whole pipeline can run without a pitch model
type Stub struct{}

func (s *Stub) Name() string { return NameStub }

// Transcribe ignores the audio content. Each note fills 90% of its step and
// carries settings.Velocity.
func (s *Stub) Transcribe(ctx context.Context, samples []float64, sampleRate int, settings notes.Settings) ([]notes.NoteEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dur := 2.0
	if sampleRate > 0 {
		dur = min(8.0, max(2.0, float64(len(samples))/float64(sampleRate)))
	}
	step := dur / float64(len(arpeggio))

	out := make([]notes.NoteEvent, 0, len(arpeggio))
	t := 0.0
	for _, p := range arpeggio {
		out = append(out, notes.New(t, t+step*0.9, p, settings.Velocity))
		t += step
	}
	return out, nil
}
