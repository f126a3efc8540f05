package chart

import (
	"sort"
	"strconv"
	"strings"
)

// IndicatorSet maps an indicator key such as "sma_20" to its series.
type IndicatorSet map[string]*Series

// IndicatorStyle is how a recognised indicator is drawn on the price view.
type IndicatorStyle struct {
	Key    string
	Label  string
	Dash   []float64
	kind   int
	window int
}

const (
	indicatorSMA = iota
	indicatorEMA
)

var indicatorKinds = map[string]int{"sma": indicatorSMA, "ema": indicatorEMA}

// canonicalKey is the lower-case key with the window written without leading zeros.
func (st IndicatorStyle) canonicalKey() string {
	if st.kind == indicatorEMA {
		return "ema_" + strconv.Itoa(st.window)
	}
	return "sma_" + strconv.Itoa(st.window)
}

// LookupIndicator recognises moving-average keys ("sma_<n>", "ema_<n>") in any case. Other keys,
// e.g. "rsi_14" whose scale does not fit a price axis, are not drawn.
func LookupIndicator(key string) (IndicatorStyle, bool) {
	name, win, ok := strings.Cut(strings.ToLower(strings.TrimSpace(key)), "_")
	if !ok {
		return IndicatorStyle{}, false
	}
	kind, ok := indicatorKinds[name]
	if !ok {
		return IndicatorStyle{}, false
	}
	n, err := strconv.Atoi(win)
	if err != nil || n <= 0 {
		return IndicatorStyle{}, false
	}
	st := IndicatorStyle{Key: key, kind: kind, window: n}
	if kind == indicatorEMA {
		st.Label = "EMA " + strconv.Itoa(n)
		st.Dash = []float64{5, 4}
	} else {
		st.Label = "SMA " + strconv.Itoa(n)
	}
	return st, true
}

// Styles returns the recognised indicators of the set, SMAs before EMAs, shorter windows first.
// Keys naming the same average ("sma_20", "SMA_20", "sma_020") yield one style; the canonical
// key wins, otherwise the smallest.
func (set IndicatorSet) Styles() []IndicatorStyle {
	var all []IndicatorStyle
	for key := range set {
		if st, ok := LookupIndicator(key); ok {
			all = append(all, st)
		}
	}
	sort.Slice(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		if a.window != b.window {
			return a.window < b.window
		}
		if ca, cb := a.Key == a.canonicalKey(), b.Key == b.canonicalKey(); ca != cb {
			return ca
		}
		return a.Key < b.Key
	})
	out := all[:0]
	for _, st := range all {
		if n := len(out); n > 0 && out[n-1].kind == st.kind && out[n-1].window == st.window {
			continue
		}
		out = append(out, st)
	}
	return out
}
