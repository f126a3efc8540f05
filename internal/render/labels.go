package render

import (
	"time"

	"portfolioDashboard/internal/chart"
)

// Eastern returns America/New_York location, falling back to fixed EST if tzdata is missing.
func Eastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// Labels formats the timeline for the x axis. Daily timelines are labelled by their UTC date
// so a midnight bar is not shifted to the previous evening; intraday ones use loc.
func Labels(ts []time.Time, x chart.XAxis, loc *time.Location) []string {
	out := make([]string, len(ts))
	if len(ts) == 0 {
		return out
	}
	daily := x.Unit == "day" || x.Type == "category" || allMidnight(ts)
	if daily || loc == nil {
		loc = time.UTC
	}
	span := ts[len(ts)-1].Sub(ts[0])
	layout := "Jan 02"
	switch {
	case !daily && span <= 48*time.Hour:
		layout = "15:04"
	case !daily:
		layout = "Jan 02 15:04"
	case span > 400*24*time.Hour:
		layout = "Jan '06"
	}
	for i, t := range ts {
		out[i] = t.In(loc).Format(layout)
	}
	return out
}

func allMidnight(ts []time.Time) bool {
	for _, t := range ts {
		u := t.UTC()
		if u.Hour() != 0 || u.Minute() != 0 || u.Second() != 0 {
			return false
		}
	}
	return true
}
