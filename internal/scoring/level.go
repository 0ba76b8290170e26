package scoring

import "math"

// Level is a CEFR proficiency band.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
	LevelC1 Level = "C1"
	LevelC2 Level = "C2"
)

// LevelFor clamps score to [0, 100] and bands its integer part, so 39.99
// is still A2.
func LevelFor(score float64) Level {
	if math.IsNaN(score) {
		score = 0
	}
	s := int(clamp(score, 0, 100))

	switch {
	case s < 20:
		return LevelA1
	case s < 40:
		return LevelA2
	case s < 55:
		return LevelB1
	case s < 70:
		return LevelB2
	case s < 85:
		return LevelC1
	default:
		return LevelC2
	}
}

// Rubric names, in report order.
const (
	NameOverall       = "overall"
	NameGrammar       = "grammar"
	NameVocabulary    = "vocabulary"
	NameFluency       = "fluency"
	NamePronunciation = "pronunciation"
	NameFiller        = "filler_words"
)

// SubScore is one rubric value with its level.
type SubScore struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
	Level Level   `json:"level"`
}

func NewSubScore(name string, score float64) SubScore {
	return SubScore{Name: name, Score: score, Level: LevelFor(score)}
}

// Scores is the full score bag of one evaluation.
type Scores struct {
	Overall       SubScore `json:"overall"`
	Grammar       SubScore `json:"grammar"`
	Vocabulary    SubScore `json:"vocabulary"`
	Fluency       SubScore `json:"fluency"`
	Pronunciation SubScore `json:"pronunciation"`
	Filler        SubScore `json:"filler_words"`
}

// NewScores builds the bag from the raw rubric values. The filler entry
// holds FillerScore(fillerPercent), not the raw percent.
func NewScores(w FusionWeights, grammar, vocabulary, fluency, pronunciation, fillerPercent float64) Scores {
	return Scores{
		Overall:       NewSubScore(NameOverall, w.Overall(grammar, vocabulary, fluency, pronunciation, fillerPercent)),
		Grammar:       NewSubScore(NameGrammar, grammar),
		Vocabulary:    NewSubScore(NameVocabulary, vocabulary),
		Fluency:       NewSubScore(NameFluency, fluency),
		Pronunciation: NewSubScore(NamePronunciation, pronunciation),
		Filler:        NewSubScore(NameFiller, round2(FillerScore(fillerPercent))),
	}
}

// List returns the rubric values in report order, overall first.
func (s Scores) List() []SubScore {
	return []SubScore{s.Overall, s.Grammar, s.Vocabulary, s.Fluency, s.Pronunciation, s.Filler}
}
