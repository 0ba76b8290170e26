package scoring

// VocabularyScorer measures lexical diversity (type-token ratio) with a
// bonus for advanced vocabulary.
type VocabularyScorer struct {
	advanced map[string]struct{}
	maxBonus int
}

func NewVocabularyScorer(rules *Rules) *VocabularyScorer {
	return &VocabularyScorer{
		advanced: toSet(rules.Vocabulary.AdvancedWords, true),
		maxBonus: rules.Vocabulary.MaxBonus,
	}
}

// Score returns min(100, TTR*100 + bonus). Only word tokens count toward the
// ratio; punctuation is ignored. Text without word tokens scores 0.
func (v *VocabularyScorer) Score(text string) float64 {
	toks := words(text)
	if len(toks) == 0 {
		return 0
	}

	distinct := make(map[string]struct{}, len(toks))
	advanced := make(map[string]struct{})
	for _, t := range toks {
		distinct[t] = struct{}{}
		if _, ok := v.advanced[t]; ok {
			advanced[t] = struct{}{}
		}
	}

	ttr := round2(float64(len(distinct)) / float64(len(toks)) * 100)
	bonus := min(v.maxBonus, len(advanced))
	return min(100, ttr+float64(bonus))
}
