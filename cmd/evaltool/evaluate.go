package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"voxeval/internal/audio"
	"voxeval/internal/pipeline"
	"voxeval/internal/speechkit"
	"voxeval/internal/transcript"
	"voxeval/pkg/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	formatTranscript = "transcript"
	formatSpeechKit  = "speechkit"
)

var (
	audioPath      string
	transcriptPath string
	speakerName    string
	outDir         string
	inputFormat    string
	language       string
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Score one recording against its transcript",
	Long: `Score one recording. The transcript is either the time-aligned transcript
JSON used by the service or a raw SpeechKit recognition result. Audio that is
not WAV is converted with ffmpeg first; without audio the pronunciation score
is 0.`,
	Args: cobra.NoArgs,
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&audioPath, "audio", "a", "", "recording to evaluate (any format ffmpeg reads)")
	evaluateCmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "transcript JSON")
	evaluateCmd.Flags().StringVarP(&speakerName, "name", "n", "Speaker", "speaker name shown in the report")
	evaluateCmd.Flags().StringVarP(&outDir, "out", "o", ".", "directory for the PDF report")
	evaluateCmd.Flags().StringVar(&inputFormat, "format", formatTranscript, "transcript format: transcript or speechkit")
	evaluateCmd.Flags().StringVar(&language, "language", speechkit.DefaultLocale, "language of a speechkit transcript")
	_ = evaluateCmd.MarkFlagRequired("transcript")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tr, err := loadTranscript(transcriptPath, inputFormat, language)
	if err != nil {
		return err
	}

	p, _, err := pipeline.NewFromConfig(ctx, cfg)
	if err != nil {
		return err
	}

	in := pipeline.Input{Name: speakerName, Transcript: tr}

	if audioPath != "" {
		scope, err := audio.NewScope(cfg.Worker.TempDir)
		if err != nil {
			return err
		}
		defer scope.Close()

		track, err := loadAudio(ctx, audioPath, scope, audio.NewTranscoder())
		if err != nil {
			return err
		}
		in.Audio = track
	}

	res, err := p.Evaluate(ctx, in)
	if err != nil {
		if errors.Is(err, pipeline.ErrNoSpeech) {
			return fmt.Errorf("the transcript contains no speech")
		}
		return err
	}

	if res.Report != nil {
		path, err := writeReport(outDir, res.Report.Filename, res.Report.Data)
		if err != nil {
			return err
		}
		logger.Info("Report written", zap.String("path", path))
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(res.Response())
}

// loadTranscript reads a transcript file in the given format.
func loadTranscript(path, format, language string) (*transcript.Transcript, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	switch strings.ToLower(format) {
	case "", formatTranscript:
		var tr transcript.Transcript
		if err := json.Unmarshal(data, &tr); err != nil {
			return nil, fmt.Errorf("failed to parse transcript: %w", err)
		}
		return &tr, nil
	case formatSpeechKit:
		var result speechkit.RecognitionResult
		if err := json.Unmarshal(data, &result); err != nil {
			return nil, fmt.Errorf("failed to parse recognition result: %w", err)
		}
		return result.ToTranscript(language)
	default:
		return nil, fmt.Errorf("unknown transcript format %q", format)
	}
}

type transcoder interface {
	ToWAV(ctx context.Context, input, output string) error
}

// loadAudio decodes path, converting it into the scope first unless it is
// already WAV.
func loadAudio(ctx context.Context, path string, scope *audio.Scope, tc transcoder) (*audio.Track, error) {
	if strings.EqualFold(filepath.Ext(path), ".wav") {
		return audio.Open(path)
	}

	wav := scope.Path("input.wav")
	if err := tc.ToWAV(ctx, path, wav); err != nil {
		return nil, err
	}
	return audio.Open(wav)
}

func writeReport(dir, filename string, data []byte) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output dir: %w", err)
	}
	path := filepath.Join(dir, filepath.Base(filename))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
