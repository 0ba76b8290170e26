package llm

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFeedback_ImproveLines(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "1. i go to school yesterday") && strings.Contains(p, "2. he like apples")
	})).Return("1. I went to school yesterday.\n\n2. He likes apples.\n", nil)

	f := NewFeedback(gen)

	out, err := f.ImproveLines(context.Background(), []string{"i go to school yesterday", "he like apples"})

	require.NoError(t, err)
	assert.Equal(t, []string{"I went to school yesterday.", "He likes apples."}, out)
}

func TestFeedback_ImproveLines_ShortResponseKeepsOriginals(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("1. First fixed.", nil)

	out, err := NewFeedback(gen).ImproveLines(context.Background(), []string{"first", "second"})

	require.NoError(t, err)
	assert.Equal(t, []string{"First fixed.", "second"}, out)
}

func TestFeedback_ImproveLines_Unavailable(t *testing.T) {
	lines := []string{"one", "two"}

	out, err := NewFeedback(nil).ImproveLines(context.Background(), lines)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, lines, out)
}

func TestFeedback_ImproveLines_Empty(t *testing.T) {
	gen := new(MockGenerator)

	out, err := NewFeedback(gen).ImproveLines(context.Background(), nil)

	assert.NoError(t, err)
	assert.Empty(t, out)
	gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestFeedback_Summary(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Overall: 72.50%") && strings.Contains(p, "hello world")
	})).Return("1. Clear structure.\n2. Work on articles.\n3. Slow down slightly.", nil)

	points, err := NewFeedback(gen).Summary(context.Background(), SummaryInput{Transcript: "hello world", Overall: 72.5})

	require.NoError(t, err)
	assert.Equal(t, []string{"Clear structure.", "Work on articles.", "Slow down slightly."}, points)
}

func TestFeedback_Summary_Fallbacks(t *testing.T) {
	t.Run("unavailable", func(t *testing.T) {
		points, err := NewFeedback(Unavailable{}).Summary(context.Background(), SummaryInput{})
		assert.ErrorIs(t, err, ErrUnavailable)
		assert.Equal(t, []string{SummarySkipped}, points)
	})

	t.Run("api error", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("quota"))

		points, err := NewFeedback(gen).Summary(context.Background(), SummaryInput{})
		assert.Error(t, err)
		assert.Equal(t, []string{SummaryFailed}, points)
	})

	t.Run("blank response", func(t *testing.T) {
		gen := new(MockGenerator)
		gen.On("Generate", mock.Anything, mock.Anything).Return("  \n ", nil)

		points, err := NewFeedback(gen).Summary(context.Background(), SummaryInput{})
		assert.Error(t, err)
		assert.Equal(t, []string{SummaryFailed}, points)
	})
}

func TestFeedback_IsFiller(t *testing.T) {
	tests := []struct {
		answer string
		want   bool
	}{
		{"Yes", true},
		{" yes.\n", true},
		{"No", false},
		{"Yes, it is a filler", false},
	}

	for _, tt := range tests {
		t.Run(tt.answer, func(t *testing.T) {
			gen := new(MockGenerator)
			gen.On("Generate", mock.Anything, mock.Anything).Return(tt.answer, nil)

			got, err := NewFeedback(gen).IsFiller(context.Background(), "It was, like, cold.", "like")

			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFeedback_IsFiller_Errors(t *testing.T) {
	ok, err := NewFeedback(nil).IsFiller(context.Background(), "s", "like")
	assert.NoError(t, err)
	assert.False(t, ok)

	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("boom"))
	ok, err = NewFeedback(gen).IsFiller(context.Background(), "s", "like")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestFeedback_Hints(t *testing.T) {
	gen := new(MockGenerator)
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, `"remote work"`)
	})).Return("Here you go\n1. Flexibility (hours)\n2. Isolation\n3. Tools\n4. Costs\n5. Hiring\n6. Extra", nil)

	hints, err := NewFeedback(gen).Hints(context.Background(), " remote work ")

	require.NoError(t, err)
	assert.Equal(t, []string{"Flexibility (hours)", "Isolation", "Tools", "Costs", "Hiring"}, hints)

	_, err = NewFeedback(gen).Hints(context.Background(), "  ")
	assert.Error(t, err)
}
