package converter

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/james-see/wavenotes/pkg/notes"
)

// ErrSerializerUnavailable is returned when the SMF backend cannot build or
// encode a file. It is never retried.
var ErrSerializerUnavailable = errors.New("midi serializer unavailable")

// MIDIConverter handles MIDI file parsing and generation
type MIDIConverter struct {
	ticksPerQuarter uint16
	tempo           float64

	// resolution and first tempo of the last parsed file; generation never
	// reads them
	parsedResolution uint16
	parsedTempo      float64

	// encodeMulti builds format 1 files; swapped in tests to force the
	// per-track fallback
	encodeMulti func(tracks []Track) ([]byte, error)
}

// NewMIDIConverter creates a new MIDI converter at 480 ticks per quarter
// note and 120 BPM
func NewMIDIConverter() *MIDIConverter {
	m := &MIDIConverter{
		ticksPerQuarter:  TicksPerBeat,
		tempo:            DefaultTempo,
		parsedResolution: TicksPerBeat,
		parsedTempo:      DefaultTempo,
	}
	m.encodeMulti = m.GenerateMultiTrackMIDI
	return m
}

// Tempo returns the tempo used for generation
func (m *MIDIConverter) Tempo() float64 {
	return m.tempo
}

// ParsedTempo returns the first tempo of the last parsed file
func (m *MIDIConverter) ParsedTempo() float64 {
	return m.parsedTempo
}

// ParsedResolution returns the ticks per quarter note of the last parsed file
func (m *MIDIConverter) ParsedResolution() uint16 {
	return m.parsedResolution
}

// SetTempo sets the tempo in BPM written into generated files
func (m *MIDIConverter) SetTempo(bpm float64) {
	m.tempo = bpm
}

// ParseMIDIFile reads a MIDI file and extracts its notes
func (m *MIDIConverter) ParseMIDIFile(filename string) ([]notes.NoteEvent, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIDI file: %w", err)
	}
	return m.ParseMIDI(data)
}

// ParseMIDI parses MIDI data into notes from every track, in canonical order
func (m *MIDIConverter) ParseMIDI(data []byte) ([]notes.NoteEvent, error) {
	tracks, err := m.ParseMIDITracks(data)
	if err != nil {
		return nil, err
	}

	var out []notes.NoteEvent
	for _, t := range tracks {
		out = append(out, t.Notes...)
	}
	notes.SortCanonical(out)
	return out, nil
}

type tempoChange struct {
	tick int64
	bpm  float64
}

// tempoMap converts absolute ticks to seconds across tempo changes.
// The first entry is always at tick 0.
type tempoMap []tempoChange

func (tm tempoMap) seconds(tick int64, ticksPerBeat int) float64 {
	var sec float64
	for i, tc := range tm {
		if tc.tick >= tick {
			break
		}
		end := tick
		if i+1 < len(tm) && tm[i+1].tick < tick {
			end = tm[i+1].tick
		}
		sec += TicksToSeconds(end-tc.tick, tc.bpm, ticksPerBeat)
	}
	return sec
}

type noteKey struct {
	channel uint8
	key     uint8
}

type openNote struct {
	tick     int64
	velocity uint8
}

// ParseMIDITracks parses MIDI data into one Track per MIDI track that
// carries notes. Tracks are named after their track_name meta event.
func (m *MIDIConverter) ParseMIDITracks(data []byte) (tracks []Track, err error) {
	// smf may panic on truncated input
	defer func() {
		if r := recover(); r != nil {
			tracks = nil
			err = fmt.Errorf("failed to parse MIDI: %v", r)
		}
	}()

	s, err := smf.ReadFrom(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MIDI: %w", err)
	}

	mt, ok := s.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, errors.New("failed to parse MIDI: SMPTE time format is not supported")
	}
	tpq := int(mt.Resolution())
	tm := m.readTempoMap(s)
	m.parsedResolution = mt.Resolution()
	m.parsedTempo = tm[0].bpm

	for i, track := range s.Tracks {
		name := fmt.Sprintf("Track %d", i+1)
		open := make(map[noteKey][]openNote)
		var found []notes.NoteEvent
		var tick int64

		closeNote := func(k noteKey, on openNote, endTick int64) {
			found = append(found, notes.NoteEvent{
				Start:    tm.seconds(on.tick, tpq),
				End:      tm.seconds(endTick, tpq),
				Pitch:    int(k.key),
				Velocity: int(on.velocity),
				Channel:  int(k.channel),
			})
		}

		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message

			if text, ok := metaText(msg, 0x03); ok && text != "" {
				name = text
				continue
			}

			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				k := noteKey{channel: ch, key: key}
				open[k] = append(open[k], openNote{tick: tick, velocity: vel})
			case msg.GetNoteEnd(&ch, &key):
				k := noteKey{channel: ch, key: key}
				pending := open[k]
				if len(pending) == 0 {
					continue
				}
				closeNote(k, pending[0], tick)
				open[k] = pending[1:]
			}
		}

		// notes left sounding end with their track
		for k, pending := range open {
			for _, on := range pending {
				closeNote(k, on, tick)
			}
		}

		if len(found) == 0 {
			continue
		}
		notes.SortCanonical(found)
		tracks = append(tracks, Track{Name: name, Notes: found})
	}

	return tracks, nil
}

func (m *MIDIConverter) readTempoMap(s *smf.SMF) tempoMap {
	var tm tempoMap
	for _, track := range s.Tracks {
		var tick int64
		for _, ev := range track {
			tick += int64(ev.Delta)
			msg := ev.Message
			// Tempo meta message (FF 51 03 tt tt tt)
			if len(msg) >= 6 && msg[0] == 0xFF && msg[1] == 0x51 && msg[2] == 0x03 {
				us := uint32(msg[3])<<16 | uint32(msg[4])<<8 | uint32(msg[5])
				if us > 0 {
					tm = append(tm, tempoChange{tick: tick, bpm: BPMFromMicroseconds(us)})
				}
			}
		}
	}

	sort.SliceStable(tm, func(i, j int) bool { return tm[i].tick < tm[j].tick })
	if len(tm) == 0 || tm[0].tick > 0 {
		tm = append(tempoMap{{tick: 0, bpm: DefaultTempo}}, tm...)
	}
	return tm
}

// metaText extracts the text of a meta event of the given type
// (FF type len text)
func metaText(msg smf.Message, typ byte) (string, bool) {
	if len(msg) < 3 || msg[0] != 0xFF || msg[1] != typ {
		return "", false
	}
	var length, i int
	for i = 2; i < len(msg); i++ {
		length = length<<7 | int(msg[i]&0x7F)
		if msg[i]&0x80 == 0 {
			i++
			break
		}
	}
	if i+length > len(msg) {
		return "", false
	}
	return string(msg[i : i+length]), true
}

func tempoMessage(bpm float64) smf.Message {
	us := TempoMicroseconds(bpm)
	return smf.Message([]byte{
		0xFF, 0x51, 0x03,
		byte(us >> 16),
		byte(us >> 8),
		byte(us),
	})
}

type timedEvent struct {
	tick     int64
	on       bool
	channel  uint8
	key      uint8
	velocity uint8
}

// timedEvents turns notes into note-on/note-off pairs ordered by tick, with
// note-offs ahead of note-ons on the same tick so a repeated pitch is
// released before it is struck again. A note always lasts at least one tick.
func (m *MIDIConverter) timedEvents(ns []notes.NoteEvent) []timedEvent {
	tpq := int(m.ticksPerQuarter)
	events := make([]timedEvent, 0, 2*len(ns))
	for _, n := range ns {
		start := max(0, n.Start)
		end := max(start, n.End)
		key := uint8(min(max(n.Pitch, 0), 127))
		ch := uint8(min(max(n.Channel, 0), 15))
		vel := uint8(min(max(n.Velocity, 1), 127))

		onTick := SecondsToTicks(start, m.tempo, tpq)
		offTick := max(onTick+1, SecondsToTicks(end, m.tempo, tpq))
		events = append(events,
			timedEvent{tick: onTick, on: true, channel: ch, key: key, velocity: vel},
			timedEvent{tick: offTick, on: false, channel: ch, key: key},
		)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].tick != events[j].tick {
			return events[i].tick < events[j].tick
		}
		return !events[i].on && events[j].on
	})
	return events
}

func (m *MIDIConverter) addNotes(track *smf.Track, ns []notes.NoteEvent) {
	var last int64
	for _, ev := range m.timedEvents(ns) {
		delta := max(0, ev.tick-last)
		last = max(last, ev.tick)

		if ev.on {
			track.Add(uint32(delta), midi.NoteOn(ev.channel, ev.key, ev.velocity))
		} else {
			track.Add(uint32(delta), midi.NoteOff(ev.channel, ev.key))
		}
	}
}

// GenerateMIDI creates a single-track (format 0) MIDI file from notes:
// one tempo event at tick 0, the note stream and end of track.
func (m *MIDIConverter) GenerateMIDI(ns []notes.NoteEvent) ([]byte, error) {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(m.ticksPerQuarter)

	var track smf.Track
	track.Add(0, tempoMessage(m.tempo))
	m.addNotes(&track, ns)
	track.Close(0)

	if err := s.Add(track); err != nil {
		return nil, fmt.Errorf("failed to add track: %w: %w", ErrSerializerUnavailable, err)
	}
	return encodeSMF(s)
}

// GenerateMultiTrackMIDI creates a format 1 MIDI file: a tempo track
// followed by one named track per group, in the given order
func (m *MIDIConverter) GenerateMultiTrackMIDI(tracks []Track) ([]byte, error) {
	s := smf.NewSMF1()
	s.TimeFormat = smf.MetricTicks(m.ticksPerQuarter)

	var tempoTrack smf.Track
	tempoTrack.Add(0, tempoMessage(m.tempo))
	tempoTrack.Close(0)
	if err := s.Add(tempoTrack); err != nil {
		return nil, fmt.Errorf("failed to add tempo track: %w: %w", ErrSerializerUnavailable, err)
	}

	for _, t := range tracks {
		var track smf.Track
		track.Add(0, smf.MetaTrackSequenceName(t.Name))
		m.addNotes(&track, t.Notes)
		track.Close(0)
		if err := s.Add(track); err != nil {
			return nil, fmt.Errorf("failed to add track %q: %w: %w", t.Name, ErrSerializerUnavailable, err)
		}
	}

	return encodeSMF(s)
}

func encodeSMF(s *smf.SMF) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write MIDI: %w: %w", ErrSerializerUnavailable, err)
	}
	return buf.Bytes(), nil
}

// WriteMIDIFile writes notes to a single-track MIDI file, creating parent
// directories as needed
func (m *MIDIConverter) WriteMIDIFile(ns []notes.NoteEvent, filename string) error {
	data, err := m.GenerateMIDI(ns)
	if err != nil {
		return err
	}
	return writeFile(filename, data)
}

func writeFile(filename string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return nil
}
