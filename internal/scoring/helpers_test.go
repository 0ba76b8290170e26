package scoring

import (
	"errors"
	"strings"
)

// fakeTagger splits on punctuation and tags word tokens from a fixed table,
// defaulting to NN.
type fakeTagger struct {
	tags        map[string]string
	sentenceErr error
	tagErr      error
}

func newFakeTagger(tags map[string]string) *fakeTagger {
	return &fakeTagger{tags: tags}
}

func (f *fakeTagger) Sentences(text string) ([]string, error) {
	if f.sentenceErr != nil {
		return nil, f.sentenceErr
	}
	return splitSentences(text), nil
}

func (f *fakeTagger) TagSentences(text string) ([]TaggedSentence, error) {
	if f.tagErr != nil {
		return nil, f.tagErr
	}

	sentences, err := f.Sentences(text)
	if err != nil {
		return nil, err
	}

	out := make([]TaggedSentence, 0, len(sentences))
	for _, s := range sentences {
		ts := TaggedSentence{Text: s}
		for _, w := range wordToken.FindAllString(s, -1) {
			tag, ok := f.tags[strings.ToLower(w)]
			if !ok {
				tag = "NN"
			}
			ts.Tokens = append(ts.Tokens, Token{Text: w, Tag: tag})
		}
		out = append(out, ts)
	}
	return out, nil
}

type fakeEnergy struct {
	levels map[float64]float64
	err    error
}

func (f *fakeEnergy) RMS(start, _ float64) (float64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.levels[start], nil
}

var errTagger = errors.New("tagger unavailable")
