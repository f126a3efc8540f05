package backend

import (
	"fmt"
	"strings"
	"time"
)

// Range is a lookback window for chart data.
type Range string

const (
	Range90d  Range = "90d"
	Range180d Range = "180d"
	Range365d Range = "365d"
	RangeMax  Range = "max"

	DefaultRange = Range180d
)

var rangeDays = map[Range]int{Range90d: 90, Range180d: 180, Range365d: 365}

// ParseRange maps user input to a Range. Empty input gives DefaultRange.
func ParseRange(s string) (Range, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return DefaultRange, nil
	case "90d", "3m", "3mo", "90":
		return Range90d, nil
	case "180d", "6m", "6mo", "180":
		return Range180d, nil
	case "365d", "1y", "12m", "365":
		return Range365d, nil
	case "max", "all":
		return RangeMax, nil
	}
	return "", fmt.Errorf("unknown range %q (use 90d, 180d, 365d or max)", s)
}

// From returns the start of the window ending at now. RangeMax has no start.
func (r Range) From(now time.Time) (time.Time, bool) {
	days, ok := rangeDays[r]
	if !ok {
		return time.Time{}, false
	}
	return now.Add(-time.Duration(days) * 24 * time.Hour), true
}

// Label is the short form used in captions.
func (r Range) Label() string {
	switch r {
	case Range180d:
		return "6M"
	case Range365d:
		return "1Y"
	}
	return strings.ToUpper(string(r))
}
