package scoring

import (
	"fmt"
	"voxeval/internal/transcript"
)

// Pause is a gap between two consecutive segments.
type Pause struct {
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Duration float64 `json:"duration"`
}

// EnergySource exposes the RMS level of a time range of the recording, in
// integer sample units.
type EnergySource interface {
	RMS(start, end float64) (float64, error)
}

// DetectPauses returns the gaps between consecutive segments that are
// strictly longer than threshold, in input order.
func DetectPauses(segments []transcript.Segment, threshold float64) []Pause {
	var pauses []Pause
	for i := 1; i < len(segments); i++ {
		start := segments[i-1].End
		end := segments[i].Start
		if gap := end - start; gap > threshold {
			pauses = append(pauses, Pause{Start: start, End: end, Duration: gap})
		}
	}
	return pauses
}

// AnalyzeGaps splits the gaps longer than threshold into silent pauses and
// vocalized fillers by the audio energy inside each gap. A nil energy source
// reads as silence.
func AnalyzeGaps(segments []transcript.Segment, energy EnergySource, threshold, energyThreshold float64) ([]Pause, int, error) {
	if len(segments) < 2 {
		return nil, 0, nil
	}

	var silent []Pause
	vocalized := 0
	for _, gap := range DetectPauses(segments, threshold) {
		rms := 0.0
		if energy != nil {
			var err error
			rms, err = energy.RMS(gap.Start, gap.End)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to measure gap energy at %.2fs: %w", gap.Start, err)
			}
		}

		if rms > energyThreshold {
			vocalized++
			continue
		}
		silent = append(silent, gap)
	}
	return silent, vocalized, nil
}
