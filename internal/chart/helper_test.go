package chart

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// day returns midnight UTC of the n-th day of January 2024.
func day(n int) time.Time { return time.Date(2024, time.January, n, 0, 0, 0, 0, time.UTC) }

// floats flattens values, using nil for absent ones, to compare them easily.
func floats(vals []Value) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		if x, ok := v.Get(); ok {
			out[i] = x
		}
	}
	return out
}

func countAbsent(vals []Value) (leading, trailing int) {
	for _, v := range vals {
		if v.Present() {
			break
		}
		leading++
	}
	for i := len(vals) - 1; i >= 0 && !vals[i].Present(); i-- {
		trailing++
	}
	return leading, trailing
}

func candles(closes ...float64) []Candle {
	out := make([]Candle, len(closes))
	for i, c := range closes {
		out[i] = Candle{Time: day(i + 1), Close: Some(c), Open: Some(c), High: Some(c), Low: Some(c)}
	}
	return out
}

func requireTrace(t *testing.T, ds RenderDataset, label string) Trace {
	t.Helper()
	tr, ok := ds.Trace(label)
	require.True(t, ok, "trace %q missing", label)
	return tr
}

func mustSeries(label string, points ...Point) *Series {
	s, err := NewSeries(label, points)
	if err != nil {
		panic(err)
	}
	return s
}

func column(a AlignedTimeline, label string) ([]Value, bool) {
	for i, l := range a.Labels {
		if l == label {
			return a.Values[i], true
		}
	}
	return nil, false
}
