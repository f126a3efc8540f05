package chart

import (
	"encoding/json"
	"fmt"
	"time"
)

// View names one of the dashboard charts.
type View string

const (
	ViewPrice       View = "price"
	ViewPerformance View = "performance"
	ViewSentiment   View = "sentiment"
)

// Kind is how a trace is drawn.
type Kind string

const (
	KindLine Kind = "line"
	KindBar  Kind = "bar"
)

// Role tags the part a trace plays in a composed chart. Band traces must appear as
// lower, upper, midpoint; Validate enforces it.
type Role int

const (
	RoleSeries Role = iota
	RoleLowerBound
	RoleUpperFillsToLower
	RoleMidpoint
)

var roleNames = map[Role]string{
	RoleSeries:            "series",
	RoleLowerBound:        "lowerBound",
	RoleUpperFillsToLower: "upperFillsToLower",
	RoleMidpoint:          "midpoint",
}

func (r Role) String() string {
	if s, ok := roleNames[r]; ok {
		return s
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) MarshalJSON() ([]byte, error) { return json.Marshal(r.String()) }

// Fill says what area, if any, a trace fills to.
type Fill string

const (
	FillNone     Fill = ""
	FillPrevious Fill = "previous"
)

// Axis positions.
const (
	PositionLeft  = "left"
	PositionRight = "right"
)

// Axis ids used by the builders.
const (
	AxisPrimary   = "y"
	AxisSecondary = "y1"
)

// Trace is one named value array with its rendering hints.
type Trace struct {
	Label       string    `json:"label"`
	Kind        Kind      `json:"kind"`
	Role        Role      `json:"role"`
	Values      []Value   `json:"data"`
	StrokeWidth float64   `json:"borderWidth"`
	Dash        []float64 `json:"borderDash,omitempty"`
	Fill        Fill      `json:"fill,omitempty"`
	AxisID      string    `json:"yAxisID"`
	Stack       string    `json:"stack,omitempty"`
}

// Axis describes a value scale. Min and Max are fixed bounds when set.
type Axis struct {
	ID          string   `json:"id"`
	Position    string   `json:"position"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
	BeginAtZero bool     `json:"beginAtZero,omitempty"`
	Stacked     bool     `json:"stacked,omitempty"`
	Unit        string   `json:"unit,omitempty"`
}

// XAxis describes the time scale.
type XAxis struct {
	Type string `json:"type"` // "time" or "category"
	Unit string `json:"unit,omitempty"`
}

// RenderDataset is the render-ready output handed to a charting surface.
type RenderDataset struct {
	View     View               `json:"view"`
	Title    string             `json:"title,omitempty"`
	XAxis    XAxis              `json:"x"`
	Timeline []time.Time        `json:"labels"`
	Traces   []Trace            `json:"datasets"`
	Axes     []Axis             `json:"axes"`
	Stats    map[string]float64 `json:"stats,omitempty"`
}

// Empty reports whether there is nothing to draw.
func (d RenderDataset) Empty() bool {
	if len(d.Timeline) == 0 {
		return true
	}
	for _, tr := range d.Traces {
		for _, v := range tr.Values {
			if v.Present() {
				return false
			}
		}
	}
	return true
}

// Trace returns the trace with the given label.
func (d RenderDataset) Trace(label string) (Trace, bool) {
	for _, tr := range d.Traces {
		if tr.Label == label {
			return tr, true
		}
	}
	return Trace{}, false
}

// Axis returns the axis with the given id.
func (d RenderDataset) Axis(id string) (Axis, bool) {
	for _, ax := range d.Axes {
		if ax.ID == id {
			return ax, true
		}
	}
	return Axis{}, false
}

// Bounds returns the smallest and largest present value of the traces bound to axisID.
// Stacked bar traces contribute their per-position sums.
func (d RenderDataset) Bounds(axisID string) (lo, hi float64, ok bool) {
	observe := func(v float64) {
		if !ok {
			lo, hi, ok = v, v, true
			return
		}
		lo, hi = min(lo, v), max(hi, v)
	}
	stacks := map[string][]float64{}
	for _, tr := range d.Traces {
		if tr.AxisID != axisID {
			continue
		}
		for i, v := range tr.Values {
			x, present := v.Get()
			if !present {
				continue
			}
			if tr.Kind == KindBar && tr.Stack != "" {
				if stacks[tr.Stack] == nil {
					stacks[tr.Stack] = make([]float64, len(d.Timeline))
				}
				stacks[tr.Stack][i] += x
				continue
			}
			observe(x)
		}
	}
	for _, sums := range stacks {
		for _, x := range sums {
			observe(x)
		}
	}
	return lo, hi, ok
}

// Validate checks the structural contract: trace lengths match the timeline, every trace
// points at a declared axis, and forecast band traces appear as lower, upper, midpoint.
func (d RenderDataset) Validate() error {
	axes := map[string]bool{}
	for _, ax := range d.Axes {
		axes[ax.ID] = true
	}
	for i, tr := range d.Traces {
		if len(tr.Values) != len(d.Timeline) {
			return fmt.Errorf("trace %q has %d values, timeline has %d", tr.Label, len(tr.Values), len(d.Timeline))
		}
		if !axes[tr.AxisID] {
			return fmt.Errorf("trace %q uses undeclared axis %q", tr.Label, tr.AxisID)
		}
		switch tr.Role {
		case RoleUpperFillsToLower:
			if i == 0 || d.Traces[i-1].Role != RoleLowerBound {
				return fmt.Errorf("trace %q fills to a previous trace that is not a lower bound", tr.Label)
			}
			if tr.Fill != FillPrevious {
				return fmt.Errorf("trace %q must fill to the previous trace", tr.Label)
			}
		case RoleLowerBound:
			if i+1 >= len(d.Traces) || d.Traces[i+1].Role != RoleUpperFillsToLower {
				return fmt.Errorf("lower bound %q is not followed by its upper bound", tr.Label)
			}
		case RoleMidpoint:
			if i == 0 || d.Traces[i-1].Role != RoleUpperFillsToLower {
				return fmt.Errorf("midpoint %q is not drawn after the band", tr.Label)
			}
		}
	}
	return nil
}

// MarshalJSON writes the timeline as RFC 3339 strings.
func (d RenderDataset) MarshalJSON() ([]byte, error) {
	type alias RenderDataset
	labels := make([]string, len(d.Timeline))
	for i, t := range d.Timeline {
		labels[i] = t.Format(time.RFC3339)
	}
	return json.Marshal(struct {
		alias
		Timeline []string `json:"labels"`
	}{alias(d), labels})
}

func bound(v float64) *float64 { return &v }
