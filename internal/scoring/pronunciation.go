package scoring

import "strings"

// WordClip is the audio excerpt of one recognised word. Path points into the
// evaluation's scratch scope and is only valid until the evaluation ends.
type WordClip struct {
	Word       string  `json:"word"`
	Path       string  `json:"-"`
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

// PronunciationScore is the mean recogniser confidence scaled to 0-100.
func PronunciationScore(clips []WordClip) float64 {
	if len(clips) == 0 {
		return 0
	}

	sum := 0.0
	for _, c := range clips {
		sum += c.Confidence
	}
	return round2(sum / float64(len(clips)) * 100)
}

// MispronouncedWords returns clips below threshold, de-duplicated
// case-insensitively by word. The first occurrence wins and order is kept.
func MispronouncedWords(clips []WordClip, threshold float64) []WordClip {
	seen := make(map[string]struct{})
	var out []WordClip
	for _, c := range clips {
		if c.Confidence >= threshold {
			continue
		}
		key := strings.ToLower(c.Word)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}
