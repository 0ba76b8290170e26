package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"voxeval/internal/scoring"
	"voxeval/internal/transcript"
)

var unsafeClipChars = regexp.MustCompile(`[^\p{L}\p{N}_-]+`)

func clipName(i int, word string) string {
	safe := unsafeClipChars.ReplaceAllString(strings.ToLower(word), "")
	if safe == "" {
		safe = "word"
	}
	return fmt.Sprintf("%04d_%s.wav", i, safe)
}

// extractClips writes one WAV clip per word into the scope. Any failure
// aborts extraction; the caller treats the clip set as empty.
func extractClips(ctx context.Context, dir ScratchDir, src Audio, words []transcript.Word) ([]scoring.WordClip, error) {
	if src == nil {
		return nil, &ResourceError{Op: "extract clips", Err: fmt.Errorf("no audio")}
	}
	if dir == nil {
		return nil, &ResourceError{Op: "extract clips", Err: fmt.Errorf("no scratch scope")}
	}

	clips := make([]scoring.WordClip, 0, len(words))
	for i, w := range words {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := dir.Path(clipName(i, w.Text))
		if err := src.WriteClip(path, w.Start, w.End); err != nil {
			return nil, &ResourceError{Op: fmt.Sprintf("extract clip %d (%q)", i, w.Text), Err: err}
		}

		clips = append(clips, scoring.WordClip{
			Word:       w.Text,
			Path:       path,
			Start:      w.Start,
			End:        w.End,
			Confidence: w.Confidence,
		})
	}
	return clips, nil
}
