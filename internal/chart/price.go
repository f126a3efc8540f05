package chart

import "time"

// LabelClose is the label of the close price trace.
const LabelClose = "Close"

// Candle is one price bar. Only Close is charted; the rest rides along for tooltips.
type Candle struct {
	Time   time.Time `json:"ts"`
	Open   Value     `json:"open"`
	High   Value     `json:"high"`
	Low    Value     `json:"low"`
	Close  Value     `json:"close"`
	Volume Value     `json:"volume"`
}

// PriceInput is everything the price view can draw. Indicators and Forecast are optional.
type PriceInput struct {
	Title      string
	Candles    []Candle
	Indicators IndicatorSet
	Forecast   *ForecastResult
}

// CloseSeries extracts the close prices as a series.
func CloseSeries(candles []Candle) (*Series, error) {
	pts := make([]Point, len(candles))
	for i, c := range candles {
		pts[i] = Point{Time: c.Time, Value: c.Close}
	}
	return NewSeries(LabelClose, pts)
}

// BuildPriceView aligns close prices with the recognised indicators and, when a forecast is
// given, extends the chart with the forecast band. Candles that are out of order yield an empty
// dataset. The only error is a *CompositionError from the forecast; no dataset is returned
// with it.
func BuildPriceView(in PriceInput) (RenderDataset, error) {
	ds := RenderDataset{
		View:  ViewPrice,
		Title: in.Title,
		XAxis: XAxis{Type: "time", Unit: "day"},
		Axes:  []Axis{{ID: AxisPrimary, Position: PositionLeft}},
	}
	closes, err := CloseSeries(in.Candles)
	if err != nil {
		return ds, nil
	}

	series := []*Series{closes}
	traces := []Trace{{Label: LabelClose, Kind: KindLine, StrokeWidth: 1.8, AxisID: AxisPrimary}}
	for _, st := range in.Indicators.Styles() {
		series = append(series, in.Indicators[st.Key])
		traces = append(traces, Trace{Label: st.Label, Kind: KindLine, StrokeWidth: 1.5, Dash: st.Dash, AxisID: AxisPrimary})
	}

	aligned := Align(series...)
	ds.Timeline = aligned.Timestamps
	for i := range traces {
		traces[i].Values = aligned.Values[i]
	}
	ds.Traces = traces

	if in.Forecast == nil {
		return ds, nil
	}
	return ComposeForecast(ds, *in.Forecast)
}
