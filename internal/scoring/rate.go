package scoring

import "voxeval/internal/transcript"

// RatePoint is the speaking rate of one window, placed at the window midpoint.
type RatePoint struct {
	Time float64 `json:"time"`
	WPM  float64 `json:"wpm"`
}

// AverageRate returns words per minute rounded to two decimals. A zero
// duration yields 0.
func AverageRate(wordCount int, totalSeconds float64) float64 {
	if totalSeconds == 0 {
		return 0
	}
	return round2(float64(wordCount) / (totalSeconds / 60.0))
}

// RateOverTime partitions [0, totalSeconds) into fixed windows and reports
// the rate of words starting inside each one. The result always has at
// least one point: a non-positive duration or window yields {0, 0}.
func RateOverTime(segments []transcript.Segment, totalSeconds, window float64) []RatePoint {
	if totalSeconds <= 0 || window <= 0 {
		return []RatePoint{{Time: 0, WPM: 0}}
	}

	var points []RatePoint
	for i := 0; ; i++ {
		ws := float64(i) * window
		if ws >= totalSeconds {
			break
		}
		we := ws + window

		count := 0
		for _, seg := range segments {
			for _, w := range seg.Words {
				if w.Start >= ws && w.Start < we {
					count++
				}
			}
		}

		points = append(points, RatePoint{
			Time: ws + window/2,
			WPM:  float64(count) / window * 60,
		})
	}
	return points
}
