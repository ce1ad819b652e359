package audio

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"github.com/james-see/wavenotes/pkg/apperrors"
)

// LoadWAVMono reads a PCM WAV file into samples in [-1, 1], averaging all
// channels, and returns them with the file's sample rate
func LoadWAVMono(path string) ([]float64, int, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", apperrors.ErrFileNotFound, path)
		}
		return nil, 0, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("%w: %s is not a valid WAV file", apperrors.ErrCorruptedFile, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read PCM data: %w", err)
	}

	channels := max(1, int(dec.NumChans))
	depth := int(dec.BitDepth)
	if depth <= 0 {
		depth = 16
	}
	scale := float64(int64(1) << (depth - 1))

	frames := len(buf.Data) / channels
	samples := make([]float64, frames)
	for i := range frames {
		var sum float64
		for c := range channels {
			sum += float64(buf.Data[i*channels+c])
		}
		v := sum / float64(channels) / scale
		samples[i] = max(-1, min(1, v))
	}

	return samples, int(dec.SampleRate), nil
}
