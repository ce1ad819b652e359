package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/james-see/wavenotes/pkg/apperrors"
	"github.com/james-see/wavenotes/pkg/runner"
)

// DefaultDecodeRate is the sample rate decoded audio is resampled to
const DefaultDecodeRate = 16000

// Decoder converts any FFmpeg-readable input into a mono PCM WAV file
type Decoder struct {
	runner runner.Runner
	ffmpeg string
}

// NewDecoder creates a decoder running ffmpeg through r. An empty ffmpegPath
// resolves "ffmpeg" on PATH.
func NewDecoder(r runner.Runner, ffmpegPath string) *Decoder {
	if r == nil {
		r = runner.New()
	}
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Decoder{runner: r, ffmpeg: ffmpegPath}
}

// Decode writes a mono WAV at targetSR to outWav and returns its path.
// A missing input, a failed ffmpeg run or a missing output file are errors
// carrying ffmpeg's diagnostic output.
func (d *Decoder) Decode(ctx context.Context, inputPath, outWav string, targetSR int) (string, error) {
	if targetSR <= 0 {
		targetSR = DefaultDecodeRate
	}
	if _, err := os.Stat(inputPath); err != nil {
		return "", fmt.Errorf("%w: %s", apperrors.ErrFileNotFound, inputPath)
	}
	if err := os.MkdirAll(filepath.Dir(outWav), 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	args := []string{
		"-y",
		"-i", inputPath,
		"-ac", "1",
		"-ar", strconv.Itoa(targetSR),
		"-vn",
		outWav,
	}

	log.WithFields(log.Fields{
		"input":       inputPath,
		"sample_rate": targetSR,
	}).Debug("decoding audio")

	res, err := d.runner.Run(ctx, d.ffmpeg, args...)
	if err != nil {
		if errors.Is(err, apperrors.ErrToolNotInstalled) || ctx.Err() != nil {
			return "", fmt.Errorf("failed to decode %s: %w", filepath.Base(inputPath), err)
		}
		exit := -1
		var diag string
		if res != nil {
			exit = res.ExitCode
			diag = diagnostic(res)
		}
		return "", apperrors.NewProcessError("ffmpeg", "decode", exit, diag, err)
	}

	if _, err := os.Stat(outWav); err != nil {
		return "", apperrors.NewProcessError("ffmpeg", "decode", res.ExitCode, diagnostic(res), apperrors.ErrNoOutput)
	}
	return outWav, nil
}

func diagnostic(res *runner.Result) string {
	if s := strings.TrimSpace(res.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(res.Stdout)
}
