// Package payload decodes the dashboard API responses into chart inputs.
//
// Decoding is lenient about shape and strict about time: missing numbers become absent
// values, while rows whose timestamp cannot be read are dropped and counted in the Report.
package payload

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"portfolioDashboard/internal/chart"
)

// Report counts what a decode kept and dropped.
type Report struct {
	Rows    int
	Dropped int
}

func (r *Report) add(o Report) {
	r.Rows += o.Rows
	r.Dropped += o.Dropped
}

// ID is an identifier the API sends either as a number or as a string.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if string(b) == "null" {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	*id = ID(b)
	return nil
}

// Instrument is a tradable security as listed by the API.
type Instrument struct {
	ID         ID     `json:"id"`
	Symbol     string `json:"symbol"`
	Exchange   string `json:"exchange"`
	AssetClass string `json:"asset_class"`
	Currency   string `json:"currency"`
	Sector     string `json:"sector"`
	Industry   string `json:"industry"`
}

// Name is the symbol, qualified by exchange when known.
func (i Instrument) Name() string {
	if i.Exchange == "" {
		return i.Symbol
	}
	return i.Symbol + " (" + i.Exchange + ")"
}

type candleRow struct {
	TS     json.RawMessage `json:"ts"`
	Open   chart.Value     `json:"open"`
	O      chart.Value     `json:"o"`
	High   chart.Value     `json:"high"`
	H      chart.Value     `json:"h"`
	Low    chart.Value     `json:"low"`
	L      chart.Value     `json:"l"`
	Close  chart.Value     `json:"close"`
	C      chart.Value     `json:"c"`
	Volume chart.Value     `json:"volume"`
	V      chart.Value     `json:"v"`
}

func either(long, short chart.Value) chart.Value {
	if long.Present() {
		return long
	}
	return short
}

// DecodeCandles reads {"candles":[{ts, o|open, h|high, l|low, c|close, v|volume}]}.
func DecodeCandles(r io.Reader) ([]chart.Candle, Report, error) {
	var body struct {
		Candles []candleRow `json:"candles"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, Report{}, fmt.Errorf("decode candles: %w", err)
	}
	var rep Report
	out := make([]chart.Candle, 0, len(body.Candles))
	for _, row := range body.Candles {
		rep.Rows++
		ts, err := parseStamp(row.TS)
		if err != nil {
			rep.Dropped++
			continue
		}
		out = append(out, chart.Candle{
			Time:   ts,
			Open:   either(row.Open, row.O),
			High:   either(row.High, row.H),
			Low:    either(row.Low, row.L),
			Close:  either(row.Close, row.C),
			Volume: either(row.Volume, row.V),
		})
	}
	return out, rep, nil
}

type pointRow struct {
	TS    json.RawMessage `json:"ts"`
	V     chart.Value     `json:"v"`
	Value chart.Value     `json:"value"`
}

func toSeries(label string, rows []pointRow) (*chart.Series, Report, error) {
	var rep Report
	pts := make([]chart.Point, 0, len(rows))
	for _, row := range rows {
		rep.Rows++
		ts, err := parseStamp(row.TS)
		if err != nil {
			rep.Dropped++
			continue
		}
		pts = append(pts, chart.Point{Time: ts, Value: either(row.Value, row.V)})
	}
	s, err := chart.NewSeries(label, pts)
	return s, rep, err
}

// DecodeIndicators reads {"indicators":{"sma_20":[{ts, v}], ...}}. Every key is kept; the
// price view decides which ones it can draw. An indicator whose points are out of order is
// dropped whole and reported.
func DecodeIndicators(r io.Reader) (chart.IndicatorSet, Report, error) {
	var body struct {
		Indicators map[string][]pointRow `json:"indicators"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, Report{}, fmt.Errorf("decode indicators: %w", err)
	}
	var rep Report
	set := make(chart.IndicatorSet, len(body.Indicators))
	for key, rows := range body.Indicators {
		s, r, err := toSeries(key, rows)
		rep.add(r)
		if err != nil {
			rep.Dropped += r.Rows - r.Dropped
			continue
		}
		set[key] = s
	}
	return set, rep, nil
}

// Forecast is a finished (or pending) forecast run.
type Forecast struct {
	RunID        ID                   `json:"run_id"`
	InstrumentID ID                   `json:"instrument_id"`
	ModelType    string               `json:"model_type"`
	HorizonDays  int                  `json:"horizon_days"`
	Status       string               `json:"status"`
	Result       chart.ForecastResult `json:"-"`
}

// DecodeForecast reads {"run_id", "status", "points":[{ts, yhat, yhat_lower, yhat_upper}]}.
// Point order is kept as sent; the composer rejects it if it is wrong.
func DecodeForecast(r io.Reader) (*Forecast, Report, error) {
	var body struct {
		Forecast
		Points []struct {
			TS    json.RawMessage `json:"ts"`
			YHat  chart.Value     `json:"yhat"`
			Lower chart.Value     `json:"yhat_lower"`
			Upper chart.Value     `json:"yhat_upper"`
		} `json:"points"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, Report{}, fmt.Errorf("decode forecast: %w", err)
	}
	var rep Report
	fc := body.Forecast
	for _, p := range body.Points {
		rep.Rows++
		ts, err := parseStamp(p.TS)
		if err != nil {
			rep.Dropped++
			continue
		}
		fc.Result.Points = append(fc.Result.Points, chart.ForecastPoint{
			Time: ts, Estimate: p.YHat, Lower: p.Lower, Upper: p.Upper,
		})
	}
	return &fc, rep, nil
}

// ForecastRun is the acknowledgement of a forecast request.
type ForecastRun struct {
	RunID        ID `json:"run_id"`
	InstrumentID ID `json:"instrument_id"`
}

// DecodeSentiment reads {"daily":[{day, total, pos, neg, neu, net_score}]}.
func DecodeSentiment(r io.Reader) ([]chart.SentimentDay, Report, error) {
	var body struct {
		Daily []struct {
			Day      json.RawMessage `json:"day"`
			Total    chart.Value     `json:"total"`
			Pos      chart.Value     `json:"pos"`
			Neg      chart.Value     `json:"neg"`
			Neu      chart.Value     `json:"neu"`
			NetScore chart.Value     `json:"net_score"`
		} `json:"daily"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, Report{}, fmt.Errorf("decode sentiment: %w", err)
	}
	var rep Report
	out := make([]chart.SentimentDay, 0, len(body.Daily))
	for _, d := range body.Daily {
		rep.Rows++
		day, err := parseStamp(d.Day)
		if err != nil {
			rep.Dropped++
			continue
		}
		out = append(out, chart.SentimentDay{
			Day: day, Total: d.Total, Positive: d.Pos, Negative: d.Neg, Neutral: d.Neu, NetScore: d.NetScore,
		})
	}
	return out, rep, nil
}

// Performance is a portfolio value curve with an optional benchmark curve.
type Performance struct {
	PortfolioID     ID
	Portfolio       *chart.Series
	BenchmarkSymbol string
	Benchmark       *chart.Series // nil when the response has no benchmark
	Metrics         map[string]float64
}

// DecodePerformance reads {"series":[{ts,value}], "benchmark":{symbol, series}, "metrics":{}}.
// Only finite numeric metrics are kept. A curve whose points are out of order is returned as
// an error wrapping *chart.OrderError.
func DecodePerformance(r io.Reader) (*Performance, Report, error) {
	var body struct {
		PortfolioID ID         `json:"portfolio_id"`
		Series      []pointRow `json:"series"`
		Benchmark   *struct {
			Symbol string     `json:"symbol"`
			Series []pointRow `json:"series"`
		} `json:"benchmark"`
		Metrics map[string]any `json:"metrics"`
	}
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, Report{}, fmt.Errorf("decode performance: %w", err)
	}
	var rep Report
	perf := &Performance{PortfolioID: body.PortfolioID}

	s, r1, err := toSeries("portfolio", body.Series)
	rep.add(r1)
	if err != nil {
		return nil, rep, fmt.Errorf("portfolio series: %w", err)
	}
	perf.Portfolio = s

	if body.Benchmark != nil {
		sym := strings.ToUpper(strings.TrimSpace(body.Benchmark.Symbol))
		b, r2, err := toSeries(sym, body.Benchmark.Series)
		rep.add(r2)
		if err != nil {
			return nil, rep, fmt.Errorf("benchmark series: %w", err)
		}
		perf.Benchmark, perf.BenchmarkSymbol = b, sym
	}

	for k, v := range body.Metrics {
		f, ok := v.(float64)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			continue
		}
		if perf.Metrics == nil {
			perf.Metrics = map[string]float64{}
		}
		perf.Metrics[k] = f
	}
	return perf, rep, nil
}
