// Package charts turns an ordered run of snapshots into per-dimension line
// charts, base64 encoded for inline embedding.
package charts

import (
	"encoding/base64"
	"fmt"

	"github.com/and161185/health-dashboard/internal/errs"
	"github.com/and161185/health-dashboard/model"
	"go.uber.org/zap"
)

// Dimension describes one charted metric.
type Dimension struct {
	Title  string
	YLabel string
	Color  string // hex, no leading '#'
	// Percent pins the y axis to [0, 100]; otherwise it follows the data.
	Percent bool
	Value   func(s model.Snapshot) *float64
}

// Dimensions in display order.
var Dimensions = []Dimension{
	{Title: "CPU Usage", YLabel: "CPU Usage (%)", Color: "667eea", Percent: true,
		Value: func(s model.Snapshot) *float64 { return s.CPUPercent }},
	{Title: "RAM Usage", YLabel: "RAM Usage (%)", Color: "764ba2", Percent: true,
		Value: func(s model.Snapshot) *float64 { return s.RAMPercent() }},
	{Title: "GPU Usage", YLabel: "GPU Usage (%)", Color: "22c55e", Percent: true,
		Value: func(s model.Snapshot) *float64 { return s.GPUPercent }},
	{Title: "Network Latency", YLabel: "Ping (ms)", Color: "f59e0b",
		Value: func(s model.Snapshot) *float64 { return s.PingMS }},
}

// Series is the data for one chart.
type Series struct {
	Dimension Dimension
	Labels    []string
	Values    []float64
}

// Renderer draws a series as an image.
type Renderer interface {
	Render(s Series) ([]byte, error)
}

// Chart is a rendered image with its title.
type Chart struct {
	Title string
	Image string
}

type Builder struct {
	renderer Renderer
	logger   *zap.SugaredLogger
}

// NewBuilder returns a builder drawing PNGs when renderer is nil.
func NewBuilder(renderer Renderer, logger *zap.SugaredLogger) *Builder {
	if renderer == nil {
		renderer = PNGRenderer{Width: 800, Height: 400}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Builder{renderer: renderer, logger: logger}
}

// Build renders every dimension that has at least two values among snaps,
// which must be oldest first. The result maps chart title to base64 image
// and is never nil.
func (b *Builder) Build(snaps []model.Snapshot) (charts map[string]string) {
	charts = make(map[string]string)

	defer func() {
		if r := recover(); r != nil {
			b.logger.Errorf("chart generation failed: %v", r)
			charts = make(map[string]string)
		}
	}()

	for _, dim := range Dimensions {
		series := Collect(dim, snaps)
		if len(series.Values) < 2 {
			continue
		}

		img, err := b.render(series)
		if err != nil {
			b.logger.Error(&errs.RenderError{Dimension: dim.Title, Err: err})
			continue
		}
		charts[dim.Title] = base64.StdEncoding.EncodeToString(img)
	}

	b.logger.Debugf("generated %d charts from %d snapshots", len(charts), len(snaps))
	return charts
}

// render draws one series; a renderer panic is reported as an error so the
// other dimensions still render.
func (b *Builder) render(series Series) (img []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return b.renderer.Render(series)
}

// Collect picks the snapshots that carry a value for dim.
func Collect(dim Dimension, snaps []model.Snapshot) Series {
	series := Series{Dimension: dim}
	for _, s := range snaps {
		v := dim.Value(s)
		if v == nil {
			continue
		}
		series.Labels = append(series.Labels, TimeLabel(s.Timestamp))
		series.Values = append(series.Values, *v)
	}
	return series
}

// TimeLabel is the last eight characters of a timestamp, the clock part of
// an ISO-8601 value without fractions.
func TimeLabel(ts string) string {
	r := []rune(ts)
	if len(r) <= 8 {
		return ts
	}
	return string(r[len(r)-8:])
}

// InOrder lists charts in display order.
func InOrder(charts map[string]string) []Chart {
	out := make([]Chart, 0, len(charts))
	for _, dim := range Dimensions {
		if img, ok := charts[dim.Title]; ok {
			out = append(out, Chart{Title: dim.Title, Image: img})
		}
	}
	return out
}
