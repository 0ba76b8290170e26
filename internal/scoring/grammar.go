package scoring

import (
	"fmt"
	"regexp"
	"strings"
)

const grammarErrorPenalty = 20.0

type compiledPattern struct {
	name     string
	category string
	re       *regexp.Regexp
	notAfter map[string]struct{}
}

// count returns the matches in sentence that do not directly follow one of
// the pattern's excluded words.
func (p compiledPattern) count(sentence string) int {
	n := 0
	for _, m := range p.re.FindAllStringIndex(sentence, -1) {
		if len(p.notAfter) > 0 {
			if prev := words(sentence[:m[0]]); len(prev) > 0 {
				if _, ok := p.notAfter[prev[len(prev)-1]]; ok {
					continue
				}
			}
		}
		n++
	}
	return n
}

// GrammarScorer counts heuristic grammar errors and converts the per
// sentence error rate into a 0-100 score.
type GrammarScorer struct {
	tagger           Tagger
	patterns         []compiledPattern
	repeated         bool
	repeatExceptions map[string]struct{}
	verbTags         map[string]struct{}
	nominalTags      map[string]struct{}
	minTokens        int
}

// GrammarReport is the per-category breakdown behind a grammar score.
type GrammarReport struct {
	Errors     int            `json:"errors"`
	Sentences  int            `json:"sentences"`
	Score      float64        `json:"score"`
	Categories map[string]int `json:"categories,omitempty"`
}

func NewGrammarScorer(rules *Rules, tagger Tagger) (*GrammarScorer, error) {
	if tagger == nil {
		tagger = NewProseTagger()
	}

	g := &GrammarScorer{
		tagger:           tagger,
		repeated:         rules.Grammar.RepeatedWords,
		repeatExceptions: toSet(rules.Grammar.RepeatExceptions, true),
		verbTags:         toSet(rules.Grammar.VerbTags, false),
		nominalTags:      toSet(rules.Grammar.NominalTags, false),
		minTokens:        rules.Grammar.MinStructuralTokens,
	}
	for _, p := range rules.Grammar.Patterns {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("failed to compile grammar pattern %q: %w", p.Name, err)
		}
		g.patterns = append(g.patterns, compiledPattern{
			name:     p.Name,
			category: p.Category,
			re:       re,
			notAfter: toSet(p.NotAfter, true),
		})
	}
	return g, nil
}

// Score returns the error count and score for text. Blank text scores
// (0, 100). A non-nil error means part of the analysis was skipped (the
// tagger failed); the returned numbers are still usable.
func (g *GrammarScorer) Score(text string) (int, float64, error) {
	r, err := g.Analyze(text)
	return r.Errors, r.Score, err
}

// Analyze is Score with the per-category breakdown.
func (g *GrammarScorer) Analyze(text string) (GrammarReport, error) {
	report := GrammarReport{Score: 100, Categories: map[string]int{}}
	if strings.TrimSpace(text) == "" {
		return report, nil
	}

	sentences, tagErr := g.tagger.TagSentences(text)
	tagged := tagErr == nil
	if !tagged {
		sentences = nil
		for _, s := range splitSentences(text) {
			sentences = append(sentences, TaggedSentence{Text: s})
		}
	}

	for _, sentence := range sentences {
		for _, p := range g.patterns {
			if n := p.count(sentence.Text); n > 0 {
				report.Categories[p.category] += n
				report.Errors += n
			}
		}

		if g.repeated {
			if n := g.repeatedWords(sentence.Text); n > 0 {
				report.Categories["repeated_word"] += n
				report.Errors += n
			}
		}

		if !tagged {
			continue
		}
		if n := g.structuralErrors(sentence.Tokens); n > 0 {
			report.Categories["structure"] += n
			report.Errors += n
		}
	}

	report.Sentences = len(sentences)
	rate := float64(report.Errors) / float64(max(1, report.Sentences))
	report.Score = round2(max(0, 100-rate*grammarErrorPenalty))

	if tagErr != nil {
		return report, fmt.Errorf("grammar analysis incomplete: %w", tagErr)
	}
	return report, nil
}

func (g *GrammarScorer) repeatedWords(sentence string) int {
	toks := words(sentence)
	count := 0
	for i := 1; i < len(toks); i++ {
		if toks[i] != toks[i-1] {
			continue
		}
		if _, ok := g.repeatExceptions[toks[i]]; ok {
			continue
		}
		count++
	}
	return count
}

// structuralErrors flags sentences longer than minTokens word tokens that
// carry no verb, and separately no noun or pronoun.
func (g *GrammarScorer) structuralErrors(toks []Token) int {
	wordCount := 0
	hasVerb, hasNominal := false, false
	for _, t := range toks {
		if !isWordToken(t.Text) {
			continue
		}
		wordCount++
		if _, ok := g.verbTags[t.Tag]; ok {
			hasVerb = true
		}
		if _, ok := g.nominalTags[t.Tag]; ok {
			hasNominal = true
		}
	}

	if wordCount <= g.minTokens {
		return 0
	}

	errs := 0
	if !hasVerb {
		errs++
	}
	if !hasNominal {
		errs++
	}
	return errs
}
