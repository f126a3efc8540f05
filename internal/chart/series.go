package chart

import (
	"fmt"
	"sort"
	"time"
)

// Point is a single sample of a series.
type Point struct {
	Time  time.Time `json:"ts"`
	Value Value     `json:"value"`
}

// P is shorthand for a present point.
func P(t time.Time, v float64) Point { return Point{Time: t, Value: Some(v)} }

// Series is an immutable, strictly increasing sequence of points with a label.
type Series struct {
	label  string
	points []Point
}

// OrderError reports a series whose timestamps are not strictly increasing.
type OrderError struct {
	Label    string
	Index    int
	Previous time.Time
	Current  time.Time
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("series %q: timestamp %s at index %d is not after %s",
		e.Label, e.Current.Format(time.RFC3339), e.Index, e.Previous.Format(time.RFC3339))
}

// NewSeries copies points into a new series. Points must already be sorted: an out of order
// or duplicated timestamp is rejected rather than re-sorted, so a bad payload stays visible.
func NewSeries(label string, points []Point) (*Series, error) {
	for i := 1; i < len(points); i++ {
		if !points[i].Time.After(points[i-1].Time) {
			return nil, &OrderError{Label: label, Index: i, Previous: points[i-1].Time, Current: points[i].Time}
		}
	}
	cp := make([]Point, len(points))
	copy(cp, points)
	return &Series{label: label, points: cp}, nil
}

// Label returns the series label. A nil series has an empty label.
func (s *Series) Label() string {
	if s == nil {
		return ""
	}
	return s.label
}

// Len returns the number of points. A nil series is empty.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.points)
}

// Points returns a copy of the points.
func (s *Series) Points() []Point {
	if s == nil {
		return nil
	}
	cp := make([]Point, len(s.points))
	copy(cp, s.points)
	return cp
}

// Timestamps returns the timestamps in order.
func (s *Series) Timestamps() []time.Time {
	out := make([]time.Time, s.Len())
	for i := range out {
		out[i] = s.points[i].Time
	}
	return out
}

// ValueAt returns the value recorded at exactly t, or an absent value.
func (s *Series) ValueAt(t time.Time) Value {
	n := s.Len()
	i := sort.Search(n, func(i int) bool { return !s.points[i].Time.Before(t) })
	if i < n && s.points[i].Time.Equal(t) {
		return s.points[i].Value
	}
	return None()
}

// FirstValue returns the first present value, or an absent value.
func (s *Series) FirstValue() Value {
	for i := 0; i < s.Len(); i++ {
		if s.points[i].Value.Present() {
			return s.points[i].Value
		}
	}
	return None()
}

// Last returns the last timestamp, false when the series is empty.
func (s *Series) Last() (time.Time, bool) {
	if s.Len() == 0 {
		return time.Time{}, false
	}
	return s.points[len(s.points)-1].Time, true
}

func (s *Series) at(i int) Point { return s.points[i] }
