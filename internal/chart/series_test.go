package chart

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSeries_RejectsUnordered(t *testing.T) {
	testCases := []struct {
		name   string
		points []Point
		index  int
	}{
		{"decreasing", []Point{P(day(2), 1), P(day(1), 2)}, 1},
		{"duplicate", []Point{P(day(1), 1), P(day(2), 2), P(day(2), 3)}, 2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewSeries("Close", tc.points)
			require.Error(t, err)
			assert.Nil(t, s)
			var oe *OrderError
			require.True(t, errors.As(err, &oe))
			assert.Equal(t, tc.index, oe.Index)
			assert.Equal(t, "Close", oe.Label)
		})
	}
}

func TestNewSeries_CopiesInput(t *testing.T) {
	pts := []Point{P(day(1), 1), P(day(2), 2)}
	s, err := NewSeries("x", pts)
	require.NoError(t, err)
	pts[0].Value = Some(100)
	assert.Equal(t, Some(1), s.ValueAt(day(1)))

	got := s.Points()
	got[1].Value = Some(200)
	assert.Equal(t, Some(2), s.ValueAt(day(2)))
}

func TestSeries_ValueAt(t *testing.T) {
	s := mustSeries("x", P(day(1), 10), Point{Time: day(3)}, P(day(5), 0))

	assert.Equal(t, Some(10), s.ValueAt(day(1)))
	assert.False(t, s.ValueAt(day(2)).Present(), "no interpolation between points")
	assert.False(t, s.ValueAt(day(3)).Present(), "absent point stays absent")
	assert.Equal(t, Some(0), s.ValueAt(day(5)), "zero is a value")
	assert.False(t, s.ValueAt(day(6)).Present())
	assert.Equal(t, 3, s.Len())
}

func TestSeries_FirstValue(t *testing.T) {
	assert.False(t, (*Series)(nil).FirstValue().Present())
	assert.False(t, mustSeries("x").FirstValue().Present())
	assert.False(t, mustSeries("x", Point{Time: day(1)}).FirstValue().Present())
	assert.Equal(t, Some(7), mustSeries("x", Point{Time: day(1)}, P(day(2), 7), P(day(3), 8)).FirstValue())
}

func TestValue_JSON(t *testing.T) {
	b, err := json.Marshal([]Value{Some(1.5), None(), Some(0)})
	require.NoError(t, err)
	assert.JSONEq(t, `[1.5, null, 0]`, string(b))

	var vals []Value
	require.NoError(t, json.Unmarshal([]byte(`[2, null]`), &vals))
	assert.Equal(t, []Value{Some(2), None()}, vals)

	var row struct {
		V Value `json:"v"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{}`), &row))
	assert.False(t, row.V.Present(), "missing field is absent")
}
