package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/james-see/wavenotes/pkg/apperrors"
	"github.com/james-see/wavenotes/pkg/runner"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func TestValidateInput(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		data     []byte
		expected Format
		err      error
	}{
		{"wav magic", "a.bin", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), FormatWAV, nil},
		{"mp3 id3", "a.bin", []byte("ID3\x04\x00\x00\x00\x00"), FormatMP3, nil},
		{"mp3 frame sync", "a.bin", []byte{0xFF, 0xFB, 0x90, 0x00}, FormatMP3, nil},
		{"flac", "a.bin", []byte("fLaC\x00\x00\x00\x22"), FormatFLAC, nil},
		{"ogg", "a.bin", []byte("OggS\x00\x02\x00\x00"), FormatOGG, nil},
		{"m4a", "a.bin", []byte("\x00\x00\x00\x20ftypM4A "), FormatM4A, nil},
		{"extension fallback", "a.mp3", []byte("junkjunkjunk"), FormatMP3, nil},
		{"unsupported", "a.txt", []byte("hello world!"), FormatUnknown, apperrors.ErrUnsupportedFormat},
		{"too short", "a.wav", []byte("RI"), FormatUnknown, apperrors.ErrCorruptedFile},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.data)
			got, err := ValidateInput(path)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestValidateInputMissing(t *testing.T) {
	_, err := ValidateInput(filepath.Join(t.TempDir(), "nope.wav"))
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)

	_, err = ValidateInput(t.TempDir())
	assert.ErrorIs(t, err, apperrors.ErrUnsupportedFormat)
}

// fakeRunner records the command and optionally writes the output file
type fakeRunner struct {
	name   string
	args   []string
	create bool
	res    *runner.Result
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (*runner.Result, error) {
	f.name = name
	f.args = args
	if f.create {
		if err := os.WriteFile(args[len(args)-1], []byte("RIFF"), 0644); err != nil {
			return nil, err
		}
	}
	if f.res == nil {
		f.res = &runner.Result{}
	}
	return f.res, f.err
}

func TestDecodeBuildsFFmpegCommand(t *testing.T) {
	in := writeFile(t, "in.mp3", []byte("ID3\x04"))
	out := filepath.Join(t.TempDir(), "work", "decoded.wav")

	fr := &fakeRunner{create: true}
	got, err := NewDecoder(fr, "").Decode(context.Background(), in, out, 22050)
	require.NoError(t, err)
	assert.Equal(t, out, got)
	assert.Equal(t, "ffmpeg", fr.name)
	assert.Equal(t, []string{"-y", "-i", in, "-ac", "1", "-ar", "22050", "-vn", out}, fr.args)
}

func TestDecodeDefaultRate(t *testing.T) {
	in := writeFile(t, "in.mp3", []byte("ID3\x04"))
	fr := &fakeRunner{create: true}

	_, err := NewDecoder(fr, "/opt/ffmpeg").Decode(context.Background(), in, filepath.Join(t.TempDir(), "o.wav"), 0)
	require.NoError(t, err)
	assert.Equal(t, "/opt/ffmpeg", fr.name)
	assert.Contains(t, fr.args, "16000")
}

func TestDecodeFailures(t *testing.T) {
	in := writeFile(t, "in.mp3", []byte("ID3\x04"))
	out := filepath.Join(t.TempDir(), "o.wav")

	t.Run("missing input", func(t *testing.T) {
		_, err := NewDecoder(&fakeRunner{}, "").Decode(context.Background(), "/nope/x.mp3", out, 0)
		assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
	})

	t.Run("non-zero exit carries stderr", func(t *testing.T) {
		fr := &fakeRunner{
			res: &runner.Result{ExitCode: 1, Stderr: "Invalid data found when processing input\n"},
			err: errors.New("exit status 1"),
		}
		_, err := NewDecoder(fr, "").Decode(context.Background(), in, out, 0)

		var pe *apperrors.ProcessError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, 1, pe.ExitCode)
		assert.Equal(t, "Invalid data found when processing input", pe.Stderr)
	})

	t.Run("no output file", func(t *testing.T) {
		_, err := NewDecoder(&fakeRunner{}, "").Decode(context.Background(), in, out, 0)
		assert.ErrorIs(t, err, apperrors.ErrNoOutput)
	})

	t.Run("tool missing", func(t *testing.T) {
		fr := &fakeRunner{err: apperrors.ErrToolNotInstalled}
		_, err := NewDecoder(fr, "").Decode(context.Background(), in, out, 0)
		assert.ErrorIs(t, err, apperrors.ErrToolNotInstalled)
	})
}

func TestLoadWAVMonoAveragesChannels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, 8000, 16, 2, 1)
	buf := &goaudio.IntBuffer{
		// frames: (L, R)
		Data:           []int{16384, 0, -32768, -32768, 32767, 32767, 100, -100},
		Format:         &goaudio.Format{SampleRate: 8000, NumChannels: 2},
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())

	samples, sr, err := LoadWAVMono(path)
	require.NoError(t, err)
	assert.Equal(t, 8000, sr)
	require.Len(t, samples, 4)
	assert.InDelta(t, 0.25, samples[0], 1e-6)
	assert.InDelta(t, -1.0, samples[1], 1e-6)
	assert.InDelta(t, 32767.0/32768.0, samples[2], 1e-6)
	assert.InDelta(t, 0, samples[3], 1e-6)
}

func TestLoadWAVMonoInvalid(t *testing.T) {
	_, _, err := LoadWAVMono(writeFile(t, "bad.wav", []byte("definitely not a wav file")))
	assert.ErrorIs(t, err, apperrors.ErrCorruptedFile)

	_, _, err = LoadWAVMono(filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, apperrors.ErrFileNotFound)
}
