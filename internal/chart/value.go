package chart

import (
	"encoding/json"
	"math"
	"strconv"
)

// Value is an optional number. The zero Value is absent, which is distinct from Some(0)
// and renders as a gap.
type Value struct {
	v  float64
	ok bool
}

// Some returns a present value.
func Some(v float64) Value { return Value{v: v, ok: true} }

// None returns an absent value.
func None() Value { return Value{} }

// FromPtr maps nil to an absent value.
func FromPtr(p *float64) Value {
	if p == nil {
		return None()
	}
	return Some(*p)
}

// Get returns the number and whether it is present.
func (x Value) Get() (float64, bool) { return x.v, x.ok }

// Present reports whether the value is set.
func (x Value) Present() bool { return x.ok }

// Or returns the number, or def when absent.
func (x Value) Or(def float64) float64 {
	if !x.ok {
		return def
	}
	return x.v
}

func (x Value) String() string {
	if !x.ok {
		return "-"
	}
	return strconv.FormatFloat(x.v, 'f', -1, 64)
}

// MarshalJSON writes absent values as null.
func (x Value) MarshalJSON() ([]byte, error) {
	if !x.ok || math.IsNaN(x.v) || math.IsInf(x.v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(x.v)
}

// UnmarshalJSON reads null (or a missing field) as absent.
func (x *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*x = None()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*x = Some(f)
	return nil
}

var (
	_ json.Marshaler   = Value{}
	_ json.Unmarshaler = (*Value)(nil)
)
