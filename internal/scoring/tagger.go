package scoring

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
	"unicode"

	"github.com/jdkato/prose/v2"
)

// Token is a word with its part-of-speech tag (Penn Treebank tag set).
type Token struct {
	Text string
	Tag  string
}

// TaggedSentence is one sentence of a text with its tagged tokens.
type TaggedSentence struct {
	Text   string
	Tokens []Token
}

// Tagger splits text into sentences and tags their tokens.
type Tagger interface {
	Sentences(text string) ([]string, error)
	TagSentences(text string) ([]TaggedSentence, error)
}

// ProseTagger is the default Tagger backed by the prose model. The model
// is loaded on first use and only read afterwards, so one ProseTagger is
// safe for concurrent use.
type ProseTagger struct {
	once  sync.Once
	model *prose.Model
}

func NewProseTagger() *ProseTagger {
	return &ProseTagger{}
}

func (p *ProseTagger) loadModel() *prose.Model {
	p.once.Do(func() {
		p.model = prose.ModelFromData("voxeval-tagger")
	})
	return p.model
}

func (p *ProseTagger) Sentences(text string) ([]string, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to segment text: %w", err)
	}

	var out []string
	for _, s := range doc.Sentences() {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// TagSentences segments and tags text in a single pass over the model.
func (p *ProseTagger) TagSentences(text string) ([]TaggedSentence, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	doc, err := prose.NewDocument(text,
		prose.UsingModel(p.loadModel()),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to tag text: %w", err)
	}

	var sentences []string
	for _, s := range doc.Sentences() {
		if t := strings.TrimSpace(s.Text); t != "" {
			sentences = append(sentences, t)
		}
	}

	toks := doc.Tokens()
	tokens := make([]Token, 0, len(toks))
	for _, t := range toks {
		tokens = append(tokens, Token{Text: t.Text, Tag: t.Tag})
	}
	return alignTokens(sentences, tokens), nil
}

// alignTokens hands tokens to sentences in order, giving each sentence
// tokens until they cover as many non-space characters as its text.
// Leftover tokens go to the last sentence.
func alignTokens(sentences []string, tokens []Token) []TaggedSentence {
	out := make([]TaggedSentence, 0, len(sentences))
	next := 0
	for _, s := range sentences {
		want := nonSpaceLen(s)
		got := 0
		ts := TaggedSentence{Text: s}
		for next < len(tokens) && got < want {
			ts.Tokens = append(ts.Tokens, tokens[next])
			got += nonSpaceLen(tokens[next].Text)
			next++
		}
		out = append(out, ts)
	}
	if len(out) > 0 && next < len(tokens) {
		last := &out[len(out)-1]
		last.Tokens = append(last.Tokens, tokens[next:]...)
	}
	return out
}

func nonSpaceLen(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

var sentenceEnd = regexp.MustCompile(`[^.!?]+[.!?]*`)

// splitSentences is the punctuation-only fallback used when the tagger
// cannot segment the text.
func splitSentences(text string) []string {
	var out []string
	for _, m := range sentenceEnd.FindAllString(text, -1) {
		if t := strings.TrimSpace(m); t != "" {
			out = append(out, t)
		}
	}
	return out
}

var wordToken = regexp.MustCompile(`[\p{L}\p{N}]+(?:'[\p{L}]+)?`)

// words lower-cases text and returns its word tokens, punctuation dropped.
func words(text string) []string {
	return wordToken.FindAllString(strings.ToLower(text), -1)
}

func isWordToken(s string) bool {
	return wordToken.MatchString(s)
}
