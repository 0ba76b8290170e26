package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"voxeval/pkg/logger"

	"go.uber.org/zap"
)

const (
	SummarySkipped = "AI summary skipped: text generation is not configured."
	SummaryFailed  = "No summary available due to API error."
)

var numberedPoint = regexp.MustCompile(`(?m)^\s*\d+\.\s*`)

// Feedback turns a TextGenerator into the qualitative parts of an
// evaluation: rewritten lines, a short summary and filler judgements.
type Feedback struct {
	gen TextGenerator
}

func NewFeedback(gen TextGenerator) *Feedback {
	if gen == nil {
		gen = Unavailable{}
	}
	return &Feedback{gen: gen}
}

// ImproveLines asks for a more fluent version of every line. The result is
// always aligned with lines; any line the generator did not return stays
// unchanged. On failure the originals are returned with the error.
func (f *Feedback) ImproveLines(ctx context.Context, lines []string) ([]string, error) {
	out := make([]string, len(lines))
	copy(out, lines)
	if len(lines) == 0 {
		return out, nil
	}

	var b strings.Builder
	b.WriteString("Rewrite each of the following spoken sentences so it sounds fluent and natural in English while keeping its meaning. ")
	b.WriteString("Do not add commentary. Return exactly one rewritten sentence per line, numbered, in the same order:\n\n")
	for i, line := range lines {
		fmt.Fprintf(&b, "%d. %s\n", i+1, strings.TrimSpace(line))
	}

	resp, err := f.gen.Generate(ctx, b.String())
	if err != nil {
		return out, fmt.Errorf("failed to improve lines: %w", err)
	}

	i := 0
	for _, raw := range strings.Split(resp, "\n") {
		if i == len(out) {
			break
		}
		line := strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(raw), "1234567890. "))
		if line == "" {
			continue
		}
		out[i] = line
		i++
	}
	return out, nil
}

// SummaryInput is what the summary prompt is built from. Filler is the
// filler rubric value (100 minus percent), like every other score.
type SummaryInput struct {
	Transcript    string
	Overall       float64
	Grammar       float64
	Vocabulary    float64
	Fluency       float64
	Pronunciation float64
	Filler        float64
}

// Summary returns three short feedback points. It never returns an empty
// slice: failures produce a single explanatory point alongside the error.
func (f *Feedback) Summary(ctx context.Context, in SummaryInput) ([]string, error) {
	prompt := fmt.Sprintf(`Write a concise 3-point summary for a spoken English assessment report.
Overall: %.2f%%. Grammar: %.2f%%, Vocabulary: %.2f%%, Fluency: %.2f%%, Pronunciation: %.2f%%, Filler words: %.2f%%.
Transcript:
"%s"

Point out the main strengths and the most useful improvements, based on the scores and the transcript.
Format the answer as a numbered list (1. ... 2. ... 3. ...), one short actionable point per item.`,
		in.Overall, in.Grammar, in.Vocabulary, in.Fluency, in.Pronunciation, in.Filler, in.Transcript)

	resp, err := f.gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return []string{SummarySkipped}, err
		}
		return []string{SummaryFailed}, fmt.Errorf("failed to generate summary: %w", err)
	}

	points := splitPoints(resp)
	if len(points) == 0 {
		return []string{SummaryFailed}, fmt.Errorf("summary response had no points")
	}
	return points, nil
}

func splitPoints(text string) []string {
	var points []string
	for _, p := range numberedPoint.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	return points
}

// IsFiller asks whether phrase is used as a conversational filler in
// sentence. Only an exact "yes" counts.
func (f *Feedback) IsFiller(ctx context.Context, sentence, phrase string) (bool, error) {
	prompt := fmt.Sprintf(`Sentence: "%s"
Is the phrase "%s" used here as a conversational filler, adding no meaning?
For example, in "It was, like, cold" the word "like" is a filler, but in "I like cold weather" it is not.
Answer with only Yes or No.`, sentence, phrase)

	resp, err := f.gen.Generate(ctx, prompt)
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return false, nil
		}
		logger.Warn("Filler check failed", zap.String("phrase", phrase), zap.Error(err))
		return false, err
	}

	answer := strings.ToLower(strings.Trim(strings.TrimSpace(resp), ".!\"'"))
	return answer == "yes", nil
}

// Hints returns up to five short talking points for a speaking topic.
func (f *Feedback) Hints(ctx context.Context, topic string) ([]string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, fmt.Errorf("topic is empty")
	}

	prompt := fmt.Sprintf(`Give 5 concise hints a speaker could cover when talking about "%s".
Answer only with the hints as a numbered list, no other text.

Example:
1. What are AVs? (self-driving cars)
2. AI decisions (navigation, sensors)
3. Benefits (safety, traffic)
4. Challenges (laws, accidents)
5. Future use (public roads)`, topic)

	resp, err := f.gen.Generate(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate hints: %w", err)
	}

	var hints []string
	for _, line := range strings.Split(resp, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] < '0' || line[0] > '9' {
			continue
		}
		if _, rest, ok := strings.Cut(line, "."); ok {
			line = rest
		}
		if h := strings.TrimSpace(line); h != "" {
			hints = append(hints, h)
		}
		if len(hints) == 5 {
			break
		}
	}
	return hints, nil
}
