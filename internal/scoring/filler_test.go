package scoring

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) IsFiller(ctx context.Context, sentence, phrase string) (bool, error) {
	args := m.Called(ctx, sentence, phrase)
	return args.Bool(0), args.Error(1)
}

func TestFillerAnalyzer_Analyze(t *testing.T) {
	ctx := context.Background()
	first := "I like pizza."
	second := "So, you know, it was like fine."

	classifier := new(MockClassifier)
	classifier.On("IsFiller", ctx, first, "like").Return(false, nil)
	classifier.On("IsFiller", ctx, second, "like").Return(true, nil)
	classifier.On("IsFiller", ctx, second, "so").Return(true, nil)
	classifier.On("IsFiller", ctx, second, "you know").Return(true, nil)

	a := NewFillerAnalyzer(MustDefaultRules(), newFakeTagger(nil), classifier)

	report := a.Analyze(ctx, first+" "+second, 10, 2)

	assert.Equal(t, map[string]int{"like": 1, "so": 1, "you know": 1, VocalizedKey: 2}, report.Breakdown)
	assert.Equal(t, 5, report.Total)
	assert.Equal(t, 50.0, report.Percent)
	assert.Empty(t, report.Warnings)
	classifier.AssertExpectations(t)
	classifier.AssertNumberOfCalls(t, "IsFiller", 4)
}

func TestFillerAnalyzer_WholeWordOnly(t *testing.T) {
	classifier := new(MockClassifier)
	a := NewFillerAnalyzer(MustDefaultRules(), newFakeTagger(nil), classifier)

	report := a.Analyze(context.Background(), "Something likely happened. Soon it was alright.", 7, 0)

	classifier.AssertNotCalled(t, "IsFiller", mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, report.Breakdown)
	assert.Equal(t, 0.0, report.Percent)
}

func TestFillerAnalyzer_CountsOncePerSentence(t *testing.T) {
	classifier := new(MockClassifier)
	classifier.On("IsFiller", mock.Anything, "Like, like, like whatever.", "like").Return(true, nil)
	a := NewFillerAnalyzer(MustDefaultRules(), newFakeTagger(nil), classifier)

	report := a.Analyze(context.Background(), "Like, like, like whatever.", 4, 0)

	assert.Equal(t, 1, report.Breakdown["like"])
	assert.Equal(t, 25.0, report.Percent)
}

func TestFillerAnalyzer_ClassifierErrorCountsAsNo(t *testing.T) {
	classifier := new(MockClassifier)
	classifier.On("IsFiller", mock.Anything, mock.Anything, mock.Anything).Return(true, errors.New("quota exceeded"))
	a := NewFillerAnalyzer(MustDefaultRules(), newFakeTagger(nil), classifier)

	report := a.Analyze(context.Background(), "It was basically done.", 4, 1)

	assert.Equal(t, map[string]int{VocalizedKey: 1}, report.Breakdown)
	assert.Equal(t, 1, report.Total)
	assert.Equal(t, 25.0, report.Percent)
	assert.Len(t, report.Warnings, 1)
	assert.Contains(t, report.Warnings[0], "quota exceeded")
}

func TestFillerAnalyzer_EmptyText(t *testing.T) {
	a := NewFillerAnalyzer(MustDefaultRules(), newFakeTagger(nil), nil)

	report := a.Analyze(context.Background(), "", 0, 3)

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 300.0, report.Percent)
	assert.Equal(t, 0.0, FillerScore(report.Percent))
}

func TestFillerAnalyzer_SentenceFallback(t *testing.T) {
	tagger := newFakeTagger(nil)
	tagger.sentenceErr = errTagger
	a := NewFillerAnalyzer(MustDefaultRules(), tagger, NeverFiller{})

	report := a.Analyze(context.Background(), "Actually it works.", 3, 0)

	assert.Len(t, report.Warnings, 1)
	assert.Equal(t, 0, report.Total)
}
