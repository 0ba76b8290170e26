package speechkit

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"voxeval/internal/transcript"
)

// FullText joins the best alternative of every chunk.
func (r *RecognitionResult) FullText() string {
	var parts []string
	for _, chunk := range r.Chunks {
		if len(chunk.Alternatives) == 0 {
			continue
		}
		if text := strings.TrimSpace(chunk.Alternatives[0].Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// ToTranscript converts the recognition result into a time-aligned
// transcript. Each chunk becomes one segment built from its best
// alternative; chunks without word timings are skipped. Only the first
// audio channel is used.
func (r *RecognitionResult) ToTranscript(language string) (*transcript.Transcript, error) {
	tr := &transcript.Transcript{Language: language}

	for i, chunk := range r.Chunks {
		if chunk.ChannelTag != "" && chunk.ChannelTag != "1" {
			continue
		}
		if len(chunk.Alternatives) == 0 {
			continue
		}
		alt := chunk.Alternatives[0]
		if len(alt.Words) == 0 {
			continue
		}

		seg := transcript.Segment{Text: strings.TrimSpace(alt.Text)}
		for _, w := range alt.Words {
			start, err := seconds(w.StartTime)
			if err != nil {
				return nil, fmt.Errorf("chunk %d word %q: %w", i, w.Word, err)
			}
			end, err := seconds(w.EndTime)
			if err != nil {
				return nil, fmt.Errorf("chunk %d word %q: %w", i, w.Word, err)
			}
			if end < start {
				end = start
			}
			seg.Words = append(seg.Words, transcript.Word{
				Text:       w.Word,
				Start:      start,
				End:        end,
				Confidence: w.Confidence,
			})
		}
		seg.Start = seg.Words[0].Start
		seg.End = seg.Words[len(seg.Words)-1].End

		tr.Segments = append(tr.Segments, seg)
	}

	sort.SliceStable(tr.Segments, func(a, b int) bool {
		return tr.Segments[a].Start < tr.Segments[b].Start
	})
	return tr, nil
}

func seconds(d string) (float64, error) {
	if d == "" {
		return 0, nil
	}
	parsed, err := time.ParseDuration(d)
	if err != nil {
		return 0, fmt.Errorf("invalid timing %q: %w", d, err)
	}
	return parsed.Seconds(), nil
}
