package transcript

import (
	"strings"
)

// Word is a single recognised token with its time alignment in seconds.
type Word struct {
	Text       string  `json:"word"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// Segment is an ordered run of words as produced by the recognizer.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words"`
}

// Transcript is the time-aligned recognition result of one recording.
// Segments are ordered by time and do not overlap.
type Transcript struct {
	Language string    `json:"language,omitempty"`
	Segments []Segment `json:"segments"`
}

// Words returns every word of the transcript in order, with whitespace
// trimmed from the token text.
func (t *Transcript) Words() []Word {
	if t == nil {
		return nil
	}

	var words []Word
	for _, seg := range t.Segments {
		for _, w := range seg.Words {
			w.Text = strings.TrimSpace(w.Text)
			words = append(words, w)
		}
	}
	return words
}

// FullText joins all word texts with single spaces.
func (t *Transcript) FullText() string {
	words := t.Words()
	parts := make([]string, 0, len(words))
	for _, w := range words {
		parts = append(parts, w.Text)
	}
	return strings.Join(parts, " ")
}

// Duration is the end time of the last segment, or 0 for an empty transcript.
func (t *Transcript) Duration() float64 {
	if t == nil || len(t.Segments) == 0 {
		return 0
	}
	return t.Segments[len(t.Segments)-1].End
}

// Lines returns the text of each segment, falling back to the joined words
// when the recognizer left the segment text empty.
func (t *Transcript) Lines() []string {
	if t == nil {
		return nil
	}

	lines := make([]string, 0, len(t.Segments))
	for _, seg := range t.Segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			parts := make([]string, 0, len(seg.Words))
			for _, w := range seg.Words {
				parts = append(parts, strings.TrimSpace(w.Text))
			}
			text = strings.Join(parts, " ")
		}
		lines = append(lines, text)
	}
	return lines
}

// IsEmpty reports whether the transcript carries no recognised words.
func (t *Transcript) IsEmpty() bool {
	return len(t.Words()) == 0
}
