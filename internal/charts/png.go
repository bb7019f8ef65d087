package charts

import (
	"bytes"
	"fmt"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// PNGRenderer draws line charts with go-chart.
type PNGRenderer struct {
	Width  int
	Height int
}

func (p PNGRenderer) Render(s Series) ([]byte, error) {
	if len(s.Values) != len(s.Labels) {
		return nil, fmt.Errorf("series has %d values and %d labels", len(s.Values), len(s.Labels))
	}

	xs := make([]float64, len(s.Values))
	ticks := make([]chart.Tick, len(s.Values))
	for i := range s.Values {
		xs[i] = float64(i)
		ticks[i] = chart.Tick{Value: float64(i), Label: s.Labels[i]}
	}

	color := drawing.ColorFromHex(s.Dimension.Color)
	graph := chart.Chart{
		Title:  s.Dimension.Title + " Over Time",
		Width:  p.Width,
		Height: p.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Time",
			Ticks: ticks,
			TickStyle: chart.Style{
				TextRotationDegrees: 45,
			},
		},
		YAxis: chart.YAxis{
			Name:  s.Dimension.YLabel,
			Range: yRange(s),
			GridMajorStyle: chart.Style{
				StrokeColor: drawing.ColorFromHex("dddddd"),
				StrokeWidth: 1,
			},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    s.Dimension.Title,
				XValues: xs,
				YValues: s.Values,
				Style: chart.Style{
					StrokeColor: color,
					StrokeWidth: 2,
					DotColor:    color,
					DotWidth:    4,
				},
			},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render %s: %w", s.Dimension.Title, err)
	}
	return buf.Bytes(), nil
}

// yRange pins percentages to [0, 100] and pads a flat auto range, which
// go-chart refuses to draw.
func yRange(s Series) chart.Range {
	if s.Dimension.Percent {
		return &chart.ContinuousRange{Min: 0, Max: 100}
	}

	lo, hi := s.Values[0], s.Values[0]
	for _, v := range s.Values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if hi == lo {
		pad := 1.0
		if lo != 0 {
			pad = lo * 0.1
			if pad < 0 {
				pad = -pad
			}
		}
		return &chart.ContinuousRange{Min: lo - pad, Max: hi + pad}
	}
	return &chart.ContinuousRange{Min: lo, Max: hi}
}
