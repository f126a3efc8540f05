package chart

import "time"

// AlignedTimeline is the union of several series' timestamps with one padded value column per
// input series. Values[i] always has len(Timestamps) entries.
type AlignedTimeline struct {
	Timestamps []time.Time
	Labels     []string
	Values     [][]Value
}

// Align builds the sorted, de-duplicated union of all timestamps and pads every series to it.
// A series contributes a value only where it has a point at exactly that instant; everything
// else is absent. Nothing is interpolated or carried forward.
func Align(series ...*Series) AlignedTimeline {
	timeline := union(series)
	out := AlignedTimeline{
		Timestamps: timeline,
		Labels:     make([]string, len(series)),
		Values:     make([][]Value, len(series)),
	}
	for i, s := range series {
		out.Labels[i] = s.Label()
		out.Values[i] = pad(s, timeline)
	}
	return out
}

// union merges already sorted series into one sorted stream of distinct instants.
func union(series []*Series) []time.Time {
	indexes := make([]int, len(series))
	total := 0
	for _, s := range series {
		total += s.Len()
	}
	out := make([]time.Time, 0, total)
	for {
		var next time.Time
		found := false
		for i, s := range series {
			if indexes[i] >= s.Len() {
				continue
			}
			if t := s.at(indexes[i]).Time; !found || t.Before(next) {
				next, found = t, true
			}
		}
		if !found {
			return out
		}
		// consume that instant in every series that has it
		for i, s := range series {
			if indexes[i] < s.Len() && s.at(indexes[i]).Time.Equal(next) {
				indexes[i]++
			}
		}
		out = append(out, next)
	}
}

func pad(s *Series, timeline []time.Time) []Value {
	vals := make([]Value, len(timeline))
	j := 0
	for i, t := range timeline {
		for j < s.Len() && s.at(j).Time.Before(t) {
			j++
		}
		if j < s.Len() && s.at(j).Time.Equal(t) {
			vals[i] = s.at(j).Value
		}
	}
	return vals
}

// padValues extends vals with n absent entries before and after.
func padValues(vals []Value, before, after int) []Value {
	out := make([]Value, before+len(vals)+after)
	copy(out[before:], vals)
	return out
}
