// Package audio validates input recordings, decodes them to mono WAV with
// FFmpeg and loads decoded audio as float samples
package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/james-see/wavenotes/pkg/apperrors"
)

// Format represents an audio file format
type Format string

const (
	FormatWAV     Format = "wav"
	FormatMP3     Format = "mp3"
	FormatFLAC    Format = "flac"
	FormatOGG     Format = "ogg"
	FormatM4A     Format = "m4a"
	FormatUnknown Format = "unknown"
)

// ValidateInput checks that path is an existing audio file FFmpeg can decode
func ValidateInput(path string) (Format, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return FormatUnknown, fmt.Errorf("%w: %s", apperrors.ErrFileNotFound, path)
	}
	if err != nil {
		return FormatUnknown, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		return FormatUnknown, fmt.Errorf("%w: %s is a directory", apperrors.ErrUnsupportedFormat, path)
	}

	format, err := detectFormat(path)
	if err != nil {
		return FormatUnknown, err
	}
	if format == FormatUnknown {
		return FormatUnknown, fmt.Errorf("%w: %s", apperrors.ErrUnsupportedFormat, filepath.Base(path))
	}
	return format, nil
}

// detectFormat checks magic bytes, then the extension
func detectFormat(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, fmt.Errorf("%w: %v", apperrors.ErrCorruptedFile, err)
	}
	defer f.Close()

	header := make([]byte, 12)
	n, err := f.Read(header)
	if err != nil || n < 4 {
		return FormatUnknown, fmt.Errorf("%w: could not read file header", apperrors.ErrCorruptedFile)
	}
	header = header[:n]

	switch {
	case string(header[:4]) == "RIFF" && n >= 12 && string(header[8:12]) == "WAVE":
		return FormatWAV, nil
	case string(header[:3]) == "ID3", header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return FormatMP3, nil
	case string(header[:4]) == "fLaC":
		return FormatFLAC, nil
	case string(header[:4]) == "OggS":
		return FormatOGG, nil
	case n >= 8 && string(header[4:8]) == "ftyp":
		return FormatM4A, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return FormatWAV, nil
	case ".mp3":
		return FormatMP3, nil
	case ".flac":
		return FormatFLAC, nil
	case ".ogg":
		return FormatOGG, nil
	case ".m4a", ".aac":
		return FormatM4A, nil
	}
	return FormatUnknown, nil
}
