package chart

import "time"

// Sentiment trace labels.
const (
	LabelPositive = "Positive"
	LabelNegative = "Negative"
	LabelNeutral  = "Neutral"
	LabelNetScore = "Net Score"
)

const sentimentStack = "counts"

// SentimentDay is one day of aggregated news sentiment. NetScore is in [-1, 1];
// Total is expected to equal the three counts but is not checked here. Missing counts
// are absent, not zero.
type SentimentDay struct {
	Day      time.Time `json:"day"`
	Total    Value     `json:"total"`
	Positive Value     `json:"pos"`
	Negative Value     `json:"neg"`
	Neutral  Value     `json:"neu"`
	NetScore Value     `json:"net_score"`
}

// BuildSentimentView stacks the daily counts on a zero-based axis and draws the net score on a
// secondary axis pinned to [-1, 1] whatever the data, so charts of different instruments
// compare directly. Days out of order yield an empty dataset.
func BuildSentimentView(title string, days []SentimentDay) RenderDataset {
	ds := RenderDataset{
		View:  ViewSentiment,
		Title: title,
		XAxis: XAxis{Type: "category"},
		Axes: []Axis{
			{ID: AxisPrimary, Position: PositionLeft, BeginAtZero: true, Stacked: true},
			{ID: AxisSecondary, Position: PositionRight, Min: bound(-1), Max: bound(1)},
		},
	}
	for i := 1; i < len(days); i++ {
		if !days[i].Day.After(days[i-1].Day) {
			return ds
		}
	}

	n := len(days)
	ds.Timeline = make([]time.Time, n)
	pos, neg, neu, net := make([]Value, n), make([]Value, n), make([]Value, n), make([]Value, n)
	for i, d := range days {
		ds.Timeline[i] = d.Day
		pos[i], neg[i], neu[i], net[i] = d.Positive, d.Negative, d.Neutral, d.NetScore
	}
	bar := func(label string, vals []Value) Trace {
		return Trace{Label: label, Kind: KindBar, Values: vals, AxisID: AxisPrimary, Stack: sentimentStack}
	}
	ds.Traces = []Trace{
		bar(LabelPositive, pos),
		bar(LabelNegative, neg),
		bar(LabelNeutral, neu),
		{Label: LabelNetScore, Kind: KindLine, Values: net, StrokeWidth: 2, AxisID: AxisSecondary},
	}
	return ds
}
