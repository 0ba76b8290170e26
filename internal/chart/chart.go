package chart

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"voxeval/internal/scoring"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const (
	SlowWPM = 100.0
	FastWPM = 160.0

	dataURIPrefix = "data:image/png;base64,"
)

// Bar is one labelled value of the score profile.
type Bar struct {
	Label string
	Value float64
}

// Renderer draws the evaluation charts and returns them as embeddable PNG
// data URIs.
type Renderer interface {
	Profile(bars []Bar) (string, error)
	FluencyCurve(points []scoring.RatePoint) (string, error)
}

// Noop renders nothing.
type Noop struct{}

func (Noop) Profile([]Bar) (string, error)                    { return "", nil }
func (Noop) FluencyCurve([]scoring.RatePoint) (string, error) { return "", nil }

// PNG renders charts with go-chart.
type PNG struct {
	Width  int
	Height int
}

func NewPNG() *PNG {
	return &PNG{Width: 800, Height: 480}
}

// Profile draws the rubric values as bars on a fixed 0-100 axis.
func (r *PNG) Profile(bars []Bar) (string, error) {
	if len(bars) == 0 {
		return "", fmt.Errorf("no values to plot")
	}

	values := make([]gochart.Value, 0, len(bars))
	for _, b := range bars {
		values = append(values, gochart.Value{
			Label: b.Label,
			Value: clamp(b.Value, 0, 100),
			Style: gochart.Style{FillColor: barColor(b.Value), StrokeColor: barColor(b.Value)},
		})
	}

	graph := gochart.BarChart{
		Title:      "Score Profile",
		Width:      r.Width,
		Height:     r.Height,
		BarWidth:   max(20, r.Width/(2*len(bars)+1)),
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: 100},
		},
		Bars: values,
	}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return "", fmt.Errorf("failed to render profile chart: %w", err)
	}
	return encode(buf.Bytes()), nil
}

// FluencyCurve plots words per minute over time with the slow and fast
// reference lines. A single point is widened into a flat segment.
func (r *PNG) FluencyCurve(points []scoring.RatePoint) (string, error) {
	if len(points) == 0 {
		points = []scoring.RatePoint{{Time: 0, WPM: 0}}
	}

	xs := make([]float64, 0, len(points)+1)
	ys := make([]float64, 0, len(points)+1)
	maxY := 0.0
	for _, p := range points {
		xs = append(xs, p.Time)
		ys = append(ys, p.WPM)
		maxY = max(maxY, p.WPM)
	}
	if len(xs) == 1 {
		xs = append(xs, xs[0]+1)
		ys = append(ys, ys[0])
	}

	minX, maxX := xs[0], xs[len(xs)-1]
	if maxX <= minX {
		maxX = minX + 1
	}
	topY := max(maxY+20, FastWPM+20)

	graph := gochart.Chart{
		Title:      "Speaking Rate",
		Width:      r.Width,
		Height:     r.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		XAxis: gochart.XAxis{
			Name:  "Time (s)",
			Range: &gochart.ContinuousRange{Min: minX, Max: maxX},
		},
		YAxis: gochart.YAxis{
			Name:  "WPM",
			Range: &gochart.ContinuousRange{Min: 0, Max: topY},
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    "Rate",
				XValues: xs,
				YValues: ys,
				Style:   gochart.Style{StrokeColor: gochart.ColorBlue, StrokeWidth: 2},
			},
			referenceLine("Slow", minX, maxX, SlowWPM, gochart.ColorOrange),
			referenceLine("Fast", minX, maxX, FastWPM, gochart.ColorRed),
		},
	}
	graph.Elements = []gochart.Renderable{gochart.Legend(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return "", fmt.Errorf("failed to render fluency chart: %w", err)
	}
	return encode(buf.Bytes()), nil
}

func referenceLine(name string, x0, x1, y float64, color drawing.Color) gochart.ContinuousSeries {
	return gochart.ContinuousSeries{
		Name:    name,
		XValues: []float64{x0, x1},
		YValues: []float64{y, y},
		Style: gochart.Style{
			StrokeColor:     color,
			StrokeWidth:     1,
			StrokeDashArray: []float64{5, 5},
		},
	}
}

func barColor(v float64) drawing.Color {
	switch {
	case v >= 70:
		return gochart.ColorGreen
	case v >= 50:
		return gochart.ColorOrange
	default:
		return gochart.ColorRed
	}
}

func encode(png []byte) string {
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png)
}

// Decode extracts the PNG bytes from a data URI produced by this package.
func Decode(uri string) ([]byte, error) {
	if len(uri) <= len(dataURIPrefix) || uri[:len(dataURIPrefix)] != dataURIPrefix {
		return nil, fmt.Errorf("not a png data uri")
	}
	return base64.StdEncoding.DecodeString(uri[len(dataURIPrefix):])
}

func clamp(v, lo, hi float64) float64 {
	return min(max(v, lo), hi)
}
