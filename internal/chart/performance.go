package chart

// Performance trace labels.
const (
	LabelPortfolio = "Portfolio %"
	LabelBenchmark = "Benchmark %"
)

// PerformanceInput holds a portfolio value series and an optional benchmark. A nil Benchmark
// means none was requested; an empty one still gets a (blank) trace.
type PerformanceInput struct {
	Title     string
	Portfolio *Series
	Benchmark *Series
	Metrics   map[string]float64
}

// BuildPerformanceView normalizes both series to percent change from their first value and
// overlays them on one percentage axis.
func BuildPerformanceView(in PerformanceInput) RenderDataset {
	ds := RenderDataset{
		View:  ViewPerformance,
		Title: in.Title,
		XAxis: XAxis{Type: "time"},
		Axes:  []Axis{{ID: AxisPrimary, Position: PositionLeft, Unit: "%"}},
	}
	series := []*Series{Normalize(in.Portfolio)}
	labels := []string{LabelPortfolio}
	if in.Benchmark != nil {
		series = append(series, Normalize(in.Benchmark))
		labels = append(labels, LabelBenchmark)
	}
	aligned := Align(series...)
	ds.Timeline = aligned.Timestamps
	for i, label := range labels {
		ds.Traces = append(ds.Traces, Trace{
			Label:       label,
			Kind:        KindLine,
			Values:      aligned.Values[i],
			StrokeWidth: 1.5,
			AxisID:      AxisPrimary,
		})
	}
	if len(in.Metrics) > 0 {
		ds.Stats = make(map[string]float64, len(in.Metrics))
		for k, v := range in.Metrics {
			ds.Stats[k] = v
		}
	}
	return ds
}
