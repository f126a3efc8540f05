package chart

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderDataset_Validate(t *testing.T) {
	timeline := []time.Time{day(1), day(2)}
	axes := []Axis{{ID: AxisPrimary}}
	vals := []Value{Some(1), None()}
	lower := Trace{Label: "lo", Role: RoleLowerBound, Values: vals, AxisID: AxisPrimary}
	upper := Trace{Label: "hi", Role: RoleUpperFillsToLower, Fill: FillPrevious, Values: vals, AxisID: AxisPrimary}
	mid := Trace{Label: "mid", Role: RoleMidpoint, Values: vals, AxisID: AxisPrimary}

	testCases := []struct {
		name    string
		traces  []Trace
		wantErr string
	}{
		{"band in order", []Trace{lower, upper, mid}, ""},
		{"length mismatch", []Trace{{Label: "x", Values: vals[:1], AxisID: AxisPrimary}}, "has 1 values"},
		{"unknown axis", []Trace{{Label: "x", Values: vals, AxisID: "y9"}}, "undeclared axis"},
		{"upper first", []Trace{upper, lower, mid}, "not a lower bound"},
		{"midpoint under band", []Trace{mid, lower, upper}, "not drawn after the band"},
		{"lower alone", []Trace{lower}, "not followed"},
		{"upper without fill", []Trace{lower, {Label: "hi", Role: RoleUpperFillsToLower, Values: vals, AxisID: AxisPrimary}}, "must fill"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := RenderDataset{Timeline: timeline, Axes: axes, Traces: tc.traces}.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRenderDataset_BoundsIgnoresAbsent(t *testing.T) {
	ds := RenderDataset{
		Timeline: []time.Time{day(1), day(2), day(3)},
		Traces: []Trace{
			{Label: "a", Values: []Value{None(), Some(-2), Some(5)}, AxisID: AxisPrimary},
			{Label: "b", Values: []Value{Some(100), None(), None()}, AxisID: AxisSecondary},
		},
	}
	lo, hi, ok := ds.Bounds(AxisPrimary)
	require.True(t, ok)
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 5.0, hi)

	_, _, ok = ds.Bounds("y9")
	assert.False(t, ok)
}

func TestRenderDataset_Empty(t *testing.T) {
	assert.True(t, RenderDataset{}.Empty())
	assert.True(t, RenderDataset{
		Timeline: []time.Time{day(1)},
		Traces:   []Trace{{Values: []Value{None()}}},
	}.Empty())
	assert.False(t, RenderDataset{
		Timeline: []time.Time{day(1)},
		Traces:   []Trace{{Values: []Value{Some(0)}}},
	}.Empty())
}

func TestRenderDataset_MarshalJSON(t *testing.T) {
	fc := horizon(3, 1)
	ds, err := BuildPriceView(PriceInput{Title: "AAPL", Candles: candles(10, 11), Forecast: &fc})
	require.NoError(t, err)

	b, err := json.Marshal(ds)
	require.NoError(t, err)

	var got struct {
		View     string   `json:"view"`
		Labels   []string `json:"labels"`
		Datasets []struct {
			Label string     `json:"label"`
			Role  string     `json:"role"`
			Data  []*float64 `json:"data"`
			Fill  string     `json:"fill"`
		} `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(b, &got))

	assert.Equal(t, "price", got.View)
	assert.Equal(t, []string{"2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z", "2024-01-03T00:00:00Z"}, got.Labels)
	require.Len(t, got.Datasets, 4)
	assert.Nil(t, got.Datasets[0].Data[2], "close is null over the horizon")
	assert.Equal(t, "upperFillsToLower", got.Datasets[2].Role)
	assert.Equal(t, "previous", got.Datasets[2].Fill)
}
