package audio

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"voxeval/pkg/logger"

	"go.uber.org/zap"
)

// EvaluationSampleRate is the rate recordings are resampled to before
// scoring.
const EvaluationSampleRate = 16000

// FFmpegAvailable reports whether ffmpeg is on the PATH.
func FFmpegAvailable() bool {
	_, err := exec.LookPath("ffmpeg")
	return err == nil
}

// Transcoder converts arbitrary input audio into mono 16-bit PCM WAV.
type Transcoder struct {
	Binary     string
	SampleRate int
}

func NewTranscoder() *Transcoder {
	return &Transcoder{Binary: "ffmpeg", SampleRate: EvaluationSampleRate}
}

// ToWAV writes a mono PCM WAV version of input to output.
func (t *Transcoder) ToWAV(ctx context.Context, input, output string) error {
	bin := t.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	if _, err := exec.LookPath(bin); err != nil {
		return fmt.Errorf("ffmpeg not found: %w", err)
	}

	rate := t.SampleRate
	if rate <= 0 {
		rate = EvaluationSampleRate
	}

	logger.Debug("Transcoding audio",
		zap.String("input", filepath.Base(input)),
		zap.String("output", filepath.Base(output)),
		zap.Int("sample_rate", rate),
	)

	cmd := exec.CommandContext(ctx,
		bin, "-hide_banner", "-loglevel", "error",
		"-i", input,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(rate),
		"-c:a", "pcm_s16le",
		"-y",
		output,
	)

	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg transcode failed: %w\n%s", err, string(out))
	}
	return nil
}
