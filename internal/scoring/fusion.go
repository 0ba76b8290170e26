package scoring

// FillerScore converts a filler percentage into a 0-100 rubric value. This
// is the only place the percent is inverted; the overall score, the filler
// level and every report use it.
func FillerScore(fillerPercent float64) float64 {
	return max(0, 100-fillerPercent)
}

// OverallScore is the equal-weight mean of the five rubric values.
func OverallScore(grammar, vocabulary, fluency, pronunciation, fillerPercent float64) float64 {
	return EqualWeights().Overall(grammar, vocabulary, fluency, pronunciation, fillerPercent)
}

// Overall is the weighted mean of the five rubric values, filler converted
// with FillerScore. Zero total weight yields 0.
func (w FusionWeights) Overall(grammar, vocabulary, fluency, pronunciation, fillerPercent float64) float64 {
	total := w.Grammar + w.Vocabulary + w.Fluency + w.Pronunciation + w.Filler
	if total <= 0 {
		return 0
	}

	sum := w.Grammar*grammar +
		w.Vocabulary*vocabulary +
		w.Fluency*fluency +
		w.Pronunciation*pronunciation +
		w.Filler*FillerScore(fillerPercent)
	return round2(sum / total)
}

// FluencyScore scores rate and pauses with the default policy.
func FluencyScore(wpm float64, pauses []Pause, totalSeconds float64) float64 {
	return DefaultFluencyPolicy().Score(wpm, pauses, totalSeconds)
}

// Score combines RateScore and PauseScore with the policy weights.
func (p FluencyPolicy) Score(wpm float64, pauses []Pause, totalSeconds float64) float64 {
	v := p.RateWeight*p.RateScore(wpm) + p.PauseWeight*p.PauseScore(pauses, totalSeconds)
	return round2(100 * v)
}

// RateScore is 1 inside the ideal band, wpm/min below it and max/wpm above.
func (p FluencyPolicy) RateScore(wpm float64) float64 {
	switch {
	case wpm < p.IdealMinWPM:
		if p.IdealMinWPM <= 0 || wpm <= 0 {
			return 0
		}
		return wpm / p.IdealMinWPM
	case wpm > p.IdealMaxWPM:
		return p.IdealMaxWPM / wpm
	default:
		return 1
	}
}

// PauseScore penalises pauses longer than LongPause relative to the number
// of PauseWindow-second windows in the recording. It is 0 for an empty
// recording and never negative.
func (p FluencyPolicy) PauseScore(pauses []Pause, totalSeconds float64) float64 {
	if totalSeconds <= 0 || p.PauseWindow <= 0 {
		return 0
	}

	long := 0
	for _, ps := range pauses {
		if ps.Duration > p.LongPause {
			long++
		}
	}
	return max(0, 1-float64(long)/(totalSeconds/p.PauseWindow))
}
