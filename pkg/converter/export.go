package converter

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/james-see/wavenotes/pkg/notes"
)

// ExportMIDI writes cleaned notes to a single-track MIDI file
func (m *MIDIConverter) ExportMIDI(ns []notes.NoteEvent, path string) (*ExportResult, error) {
	if err := m.WriteMIDIFile(ns, path); err != nil {
		return nil, err
	}
	return &ExportResult{Paths: []string{path}}, nil
}

// ExportMultiTrack writes one format 1 file with a track per group. When the
// serializer cannot build the multi-track file, each group is written to its
// own single-track <group>.mid next to path and the result is marked as a
// fallback.
func (m *MIDIConverter) ExportMultiTrack(tracks []Track, path string) (*ExportResult, error) {
	data, err := m.encodeMulti(tracks)
	if err == nil {
		if err := writeFile(path, data); err != nil {
			return nil, err
		}
		return &ExportResult{Paths: []string{path}}, nil
	}
	if !errors.Is(err, ErrSerializerUnavailable) {
		return nil, err
	}

	log.WithFields(log.Fields{
		"path":   path,
		"tracks": len(tracks),
	}).WithError(err).Warn("multi-track export unavailable, writing one file per track")

	dir := filepath.Dir(path)
	result := &ExportResult{Fallback: true}
	used := make(map[string]bool, len(tracks))
	for i, t := range tracks {
		name := uniqueName(trackFileName(t.Name, i), i, used)
		trackPath := filepath.Join(dir, name+".mid")
		if err := m.WriteMIDIFile(t.Notes, trackPath); err != nil {
			return result, fmt.Errorf("failed to export track %q: %w", t.Name, err)
		}
		result.Paths = append(result.Paths, trackPath)
	}
	return result, nil
}

// ExportMerged writes every group into one single-track file
func (m *MIDIConverter) ExportMerged(tracks []Track, path string) (*ExportResult, error) {
	var merged []notes.NoteEvent
	for _, t := range tracks {
		merged = append(merged, t.Notes...)
	}
	notes.SortCanonical(merged)
	return m.ExportMIDI(merged, path)
}

func trackFileName(name string, index int) string {
	name = strings.TrimSpace(name)
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." {
		return fmt.Sprintf("track_%d", index+1)
	}
	return name
}

// uniqueName suffixes name with the track number until it is unused.
// Names are compared case-insensitively for case-folding filesystems.
func uniqueName(name string, index int, used map[string]bool) string {
	candidate := name
	for n := index + 1; used[strings.ToLower(candidate)]; n++ {
		candidate = fmt.Sprintf("%s_%d", name, n)
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
