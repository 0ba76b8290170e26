package scoring

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// VocalizedKey is the breakdown entry for energy-detected fillers.
const VocalizedKey = "vocalized"

// FillerClassifier decides whether an occurrence of phrase in sentence is
// used as a filler rather than for its meaning.
type FillerClassifier interface {
	IsFiller(ctx context.Context, sentence, phrase string) (bool, error)
}

// NeverFiller is a classifier that answers no to everything.
type NeverFiller struct{}

func (NeverFiller) IsFiller(context.Context, string, string) (bool, error) {
	return false, nil
}

// FillerReport is the outcome of filler analysis.
type FillerReport struct {
	Breakdown map[string]int `json:"breakdown"`
	Total     int            `json:"total"`
	Percent   float64        `json:"percent"`
	Warnings  []string       `json:"warnings,omitempty"`
}

type fillerPhrase struct {
	phrase string
	re     *regexp.Regexp
}

// FillerAnalyzer counts contextual filler phrases with the help of a
// classifier and adds the vocalized fillers found in the audio.
type FillerAnalyzer struct {
	tagger     Tagger
	classifier FillerClassifier
	phrases    []fillerPhrase
}

func NewFillerAnalyzer(rules *Rules, tagger Tagger, classifier FillerClassifier) *FillerAnalyzer {
	if tagger == nil {
		tagger = NewProseTagger()
	}
	if classifier == nil {
		classifier = NeverFiller{}
	}

	a := &FillerAnalyzer{tagger: tagger, classifier: classifier}
	for _, p := range rules.Fillers.Phrases {
		a.phrases = append(a.phrases, fillerPhrase{phrase: p, re: phraseRegexp(p)})
	}
	return a
}

// phraseRegexp matches p as a whole word or phrase, ignoring case and
// tolerating any run of whitespace between its words.
func phraseRegexp(p string) *regexp.Regexp {
	parts := strings.Fields(p)
	for i := range parts {
		parts[i] = regexp.QuoteMeta(parts[i])
	}
	return regexp.MustCompile(`(?i)\b` + strings.Join(parts, `\s+`) + `\b`)
}

// Analyze scans text sentence by sentence. Each sentence containing a
// candidate phrase is sent to the classifier once per phrase. Classifier
// errors count as no and are reported as warnings.
func (a *FillerAnalyzer) Analyze(ctx context.Context, text string, wordCount, vocalized int) FillerReport {
	report := FillerReport{Breakdown: map[string]int{}}

	var sentences []string
	if strings.TrimSpace(text) != "" {
		var err error
		sentences, err = a.tagger.Sentences(text)
		if err != nil {
			report.Warnings = append(report.Warnings, fmt.Sprintf("sentence split fell back to punctuation: %v", err))
			sentences = splitSentences(text)
		}
	}

	hits := 0
	failures := 0
	var lastErr error
	for _, p := range a.phrases {
		for _, s := range sentences {
			if !p.re.MatchString(s) {
				continue
			}
			ok, err := a.classifier.IsFiller(ctx, s, p.phrase)
			if err != nil {
				failures++
				lastErr = err
				continue
			}
			if ok {
				report.Breakdown[p.phrase]++
				hits++
			}
		}
	}
	if failures > 0 {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("filler classifier failed %d time(s), treated as not filler: %v", failures, lastErr))
	}

	if vocalized > 0 {
		report.Breakdown[VocalizedKey] = vocalized
	}

	report.Total = hits + max(0, vocalized)
	report.Percent = round2(100 * float64(report.Total) / float64(max(1, wordCount)))
	return report
}
