package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func sample() *Transcript {
	return &Transcript{
		Segments: []Segment{
			{Start: 0, End: 1.2, Text: " Hello there", Words: []Word{
				{Text: " Hello", Start: 0, End: 0.5, Confidence: 0.9},
				{Text: "there ", Start: 0.6, End: 1.2, Confidence: 0.8},
			}},
			{Start: 2.0, End: 3.5, Words: []Word{
				{Text: "friend", Start: 2.0, End: 3.5, Confidence: 0.7},
			}},
		},
	}
}

func TestTranscript_Words(t *testing.T) {
	words := sample().Words()

	assert.Len(t, words, 3)
	assert.Equal(t, "Hello", words[0].Text)
	assert.Equal(t, "there", words[1].Text)
}

func TestTranscript_FullText(t *testing.T) {
	assert.Equal(t, "Hello there friend", sample().FullText())
}

func TestTranscript_Duration(t *testing.T) {
	assert.Equal(t, 3.5, sample().Duration())
	assert.Equal(t, 0.0, (&Transcript{}).Duration())

	var nilTranscript *Transcript
	assert.Equal(t, 0.0, nilTranscript.Duration())
}

func TestTranscript_Lines(t *testing.T) {
	lines := sample().Lines()

	assert.Equal(t, []string{"Hello there", "friend"}, lines)
}

func TestTranscript_IsEmpty(t *testing.T) {
	assert.False(t, sample().IsEmpty())
	assert.True(t, (&Transcript{Segments: []Segment{{Start: 0, End: 1}}}).IsEmpty())
}
