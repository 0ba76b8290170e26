package scoring

import "math"

// Config gathers every tunable threshold used by the scoring components.
// Components read only the fields they need and never mutate the value.
type Config struct {
	// FluencyPauseThreshold is the minimum silence (seconds) counted as a
	// pause by the fluency detector.
	FluencyPauseThreshold float64
	// FillerGapThreshold is the minimum gap (seconds) inspected for vocalized
	// fillers by the energy-based detector.
	FillerGapThreshold float64
	// EnergyThreshold is the RMS level, in integer sample units, above which a
	// gap is treated as vocalized.
	EnergyThreshold float64
	// MispronunciationThreshold flags words recognised below this confidence.
	MispronunciationThreshold float64
	// RateWindow is the window size (seconds) of the rate-over-time series.
	RateWindow float64

	Fluency FluencyPolicy
	Fusion  FusionWeights
}

// FluencyPolicy holds the fluency score parameters.
type FluencyPolicy struct {
	IdealMinWPM float64
	IdealMaxWPM float64
	LongPause   float64
	PauseWindow float64
	RateWeight  float64
	PauseWeight float64
}

// FusionWeights weights the five rubric values in the overall score.
// Equal weights make the overall score a plain mean.
type FusionWeights struct {
	Grammar       float64
	Vocabulary    float64
	Fluency       float64
	Pronunciation float64
	Filler        float64
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		FluencyPauseThreshold:     0.6,
		FillerGapThreshold:        0.3,
		EnergyThreshold:           250,
		MispronunciationThreshold: 0.7,
		RateWindow:                2.0,
		Fluency:                   DefaultFluencyPolicy(),
		Fusion:                    EqualWeights(),
	}
}

// DefaultFluencyPolicy returns the 110-160 wpm band with a 60/40 split
// between rate and pauses.
func DefaultFluencyPolicy() FluencyPolicy {
	return FluencyPolicy{
		IdealMinWPM: 110,
		IdealMaxWPM: 160,
		LongPause:   1.0,
		PauseWindow: 10,
		RateWeight:  0.6,
		PauseWeight: 0.4,
	}
}

// EqualWeights gives every rubric value the same weight.
func EqualWeights() FusionWeights {
	return FusionWeights{Grammar: 1, Vocabulary: 1, Fluency: 1, Pronunciation: 1, Filler: 1}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
