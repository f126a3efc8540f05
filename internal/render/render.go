// Package render draws chart datasets as PNG images for chat surfaces.
package render

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/vicanso/go-charts/v2"

	"portfolioDashboard/internal/chart"
)

var ErrNoData = errors.New("no data")

type Options struct {
	Width    int
	Height   int
	Location *time.Location // for intraday labels
}

func DefaultOptions() Options {
	return Options{Width: 900, Height: 500, Location: Eastern()}
}

// PNG renders ds. Absent values are drawn as gaps. go-charts has at most two y axes, so traces
// on any further axis are skipped; it has no area fill or stacking either, so a forecast band
// shows as its two bound lines and stacked bars are drawn side by side.
func PNG(ds chart.RenderDataset, opt Options) ([]byte, error) {
	if ds.Empty() {
		return nil, ErrNoData
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	if opt.Width == 0 || opt.Height == 0 {
		opt = DefaultOptions()
	}

	axes := ds.Axes
	if len(axes) > 2 {
		axes = axes[:2]
	}
	axisIndex := make(map[string]int, len(axes))
	yAxes := make([]charts.YAxisOption, len(axes))
	for i, ax := range axes {
		axisIndex[ax.ID] = i
		lo, hi := axisRange(ds, ax)
		yAxes[i] = charts.YAxisOption{Min: &lo, Max: &hi, DivideCount: 5}
		if ax.Position == chart.PositionRight {
			yAxes[i].Position = charts.PositionRight
		}
	}

	var (
		values  [][]float64
		names   []string
		kinds   []string
		indexes []int
		hasBars bool
	)
	for _, tr := range ds.Traces {
		idx, ok := axisIndex[tr.AxisID]
		if !ok {
			continue
		}
		names = append(names, tr.Label)
		indexes = append(indexes, idx)
		if tr.Kind == chart.KindBar {
			values = append(values, floats(tr.Values, 0))
			kinds = append(kinds, charts.ChartTypeBar)
			hasBars = true
		} else {
			values = append(values, floats(tr.Values, charts.GetNullValue()))
			kinds = append(kinds, charts.ChartTypeLine)
		}
	}
	seriesList := charts.NewSeriesListDataFromValues(values, charts.ChartTypeLine)
	for i := range seriesList {
		seriesList[i].Name = names[i]
		seriesList[i].Type = kinds[i]
		seriesList[i].AxisIndex = indexes[i]
	}

	labels := Labels(ds.Timeline, ds.XAxis, opt.Location)
	xAxis := charts.XAxisOption{Data: labels, SplitNumber: splitNumber(len(labels))}
	if !hasBars {
		xAxis.BoundaryGap = charts.FalseFlag()
	}

	title := ds.Title
	if title == "" {
		title = strings.ToUpper(string(ds.View))
	}
	painter, err := charts.Render(charts.ChartOption{SeriesList: seriesList},
		charts.TitleTextOptionFunc(title, Subtitle(ds)),
		charts.XAxisOptionFunc(xAxis),
		charts.YAxisOptionFunc(yAxes...),
		charts.LegendOptionFunc(charts.LegendOption{Data: names}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(opt.Width),
		charts.HeightOptionFunc(opt.Height),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	buf, err := painter.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to generate chart bytes: %w", err)
	}
	return buf, nil
}

// floats fills absent values with gap: the null marker for lines, zero for bars.
func floats(vals []chart.Value, gap float64) []float64 {
	out := make([]float64, len(vals))
	for i, v := range vals {
		out[i] = v.Or(gap)
	}
	return out
}

// axisRange is the drawn range of an axis: fixed bounds win, otherwise the data range with
// 5% padding. Non-negative data never gets a negative axis.
func axisRange(ds chart.RenderDataset, ax chart.Axis) (float64, float64) {
	if ax.Min != nil && ax.Max != nil {
		return *ax.Min, *ax.Max
	}
	// bars are drawn side by side, so size the axis for single bars
	flat := ds
	flat.Traces = make([]chart.Trace, len(ds.Traces))
	for i, tr := range ds.Traces {
		tr.Stack = ""
		flat.Traces[i] = tr
	}
	mn, mx, ok := flat.Bounds(ax.ID)
	if !ok {
		mn, mx = 0, 1
	}
	pad := (mx - mn) * 0.05
	if pad < math.Abs(mx)*0.002 {
		pad = math.Abs(mx) * 0.002
	}
	if pad == 0 {
		pad = 1
	}
	lo, hi := mn-pad, mx+pad
	if mn >= 0 && (lo < 0 || ax.BeginAtZero) {
		lo = 0
	}
	if ax.Min != nil {
		lo = *ax.Min
	}
	if ax.Max != nil {
		hi = *ax.Max
	}
	return lo, hi
}

func splitNumber(n int) int {
	if n <= 30 {
		return max(n/3, 3)
	}
	return 6
}

// Subtitle summarises the dataset stats, e.g. "CAGR: 12.30% | Sharpe: 1.10".
// Ratios sent as fractions are shown as percentages.
func Subtitle(ds chart.RenderDataset) string {
	fields := []struct {
		key, label string
		pct        bool
	}{
		{"total_return", "Return", true},
		{"cagr", "CAGR", true},
		{"sharpe", "Sharpe", false},
		{"sortino", "Sortino", false},
		{"ann_vol", "Vol", true},
		{"max_drawdown", "MaxDD", true},
	}
	var parts []string
	for _, f := range fields {
		v, ok := ds.Stats[f.key]
		if !ok {
			continue
		}
		if f.pct {
			parts = append(parts, fmt.Sprintf("%s: %.2f%%", f.label, v*100))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %.2f", f.label, v))
		}
	}
	return strings.Join(parts, " | ")
}

// Renderer renders datasets through an optional image cache.
type Renderer struct {
	cache Cache
	opt   Options
}

func NewRenderer(cache Cache, opt Options) *Renderer {
	return &Renderer{cache: cache, opt: opt}
}

// Render returns the PNG for ds, serving it from the cache under key when possible.
// An empty key bypasses the cache.
func (r *Renderer) Render(ctx context.Context, key string, ds chart.RenderDataset) ([]byte, error) {
	if r.cache != nil && key != "" {
		if img, ok := r.cache.Get(ctx, key); ok {
			return img, nil
		}
	}
	img, err := PNG(ds, r.opt)
	if err != nil {
		return nil, err
	}
	if r.cache != nil && key != "" {
		r.cache.Set(ctx, key, img)
	}
	return img, nil
}
