package chart

import (
	"fmt"
	"time"
)

// Forecast trace labels.
const (
	LabelForecastLower = "Forecast Lower"
	LabelForecastUpper = "Forecast Upper"
	LabelForecastMid   = "Forecast Mid"
)

// ForecastPoint is one future period. Either bound may be missing.
type ForecastPoint struct {
	Time     time.Time
	Estimate Value
	Lower    Value
	Upper    Value
}

// ForecastResult is an ordered forecast horizon.
type ForecastResult struct {
	Points []ForecastPoint
}

// Len returns the number of forecast periods.
func (f ForecastResult) Len() int { return len(f.Points) }

// CompositionError reports a forecast timestamp that does not come strictly after the
// history (or after the previous forecast period).
type CompositionError struct {
	Timestamp time.Time
	After     time.Time
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("forecast timestamp %s is not after %s",
		e.Timestamp.Format(time.RFC3339), e.After.Format(time.RFC3339))
}

func (f ForecastResult) validate(last time.Time, hasHistory bool) error {
	prev, ok := last, hasHistory
	for _, p := range f.Points {
		if ok && !p.Time.After(prev) {
			return &CompositionError{Timestamp: p.Time, After: prev}
		}
		prev, ok = p.Time, true
	}
	return nil
}

// ComposeForecast appends the forecast horizon to ds. Existing traces are padded with absent
// values over the horizon; the three forecast traces are absent over the history. The band
// is emitted as lower (no stroke), upper (no stroke, filled down to lower) and finally the
// dashed midpoint on top. ds is not modified. An empty forecast returns ds unchanged.
func ComposeForecast(ds RenderDataset, fc ForecastResult) (RenderDataset, error) {
	var last time.Time
	if n := len(ds.Timeline); n > 0 {
		last = ds.Timeline[n-1]
	}
	if err := fc.validate(last, len(ds.Timeline) > 0); err != nil {
		return RenderDataset{}, err
	}
	if fc.Len() == 0 {
		return ds, nil
	}

	hist, horizon := len(ds.Timeline), fc.Len()
	out := ds
	out.Timeline = make([]time.Time, 0, hist+horizon)
	out.Timeline = append(out.Timeline, ds.Timeline...)
	for _, p := range fc.Points {
		out.Timeline = append(out.Timeline, p.Time)
	}

	out.Traces = make([]Trace, 0, len(ds.Traces)+3)
	for _, tr := range ds.Traces {
		tr.Values = padValues(tr.Values, 0, horizon)
		out.Traces = append(out.Traces, tr)
	}

	lower := make([]Value, horizon)
	upper := make([]Value, horizon)
	mid := make([]Value, horizon)
	for i, p := range fc.Points {
		lower[i], upper[i], mid[i] = p.Lower, p.Upper, p.Estimate
	}
	axis := AxisPrimary
	if len(ds.Axes) > 0 {
		axis = ds.Axes[0].ID
	} else {
		out.Axes = []Axis{{ID: AxisPrimary, Position: PositionLeft}}
	}
	out.Traces = append(out.Traces,
		Trace{Label: LabelForecastLower, Kind: KindLine, Role: RoleLowerBound,
			Values: padValues(lower, hist, 0), AxisID: axis},
		Trace{Label: LabelForecastUpper, Kind: KindLine, Role: RoleUpperFillsToLower,
			Values: padValues(upper, hist, 0), Fill: FillPrevious, AxisID: axis},
		Trace{Label: LabelForecastMid, Kind: KindLine, Role: RoleMidpoint,
			Values: padValues(mid, hist, 0), StrokeWidth: 1, Dash: []float64{4, 3}, AxisID: axis},
	)
	return out, nil
}
