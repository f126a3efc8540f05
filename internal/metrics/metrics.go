// Package metrics derives summary statistics from a value series when the backend sends none.
package metrics

import (
	"fmt"
	"math"
	"time"

	"portfolioDashboard/internal/chart"
)

const tradingDaysPerYear = 252.0

// Stats are expressed as fractions; MaxDrawdown is negative or zero. Days counts calendar days
// between the first and last present value.
type Stats struct {
	Start       time.Time
	End         time.Time
	Days        int
	TotalReturn float64
	CAGR        float64
	AnnReturn   float64
	AnnVol      float64
	Sharpe      float64
	MaxDrawdown float64
}

// Compute uses the present values of s. Absent points are skipped rather than treated as zero.
func Compute(s *chart.Series) (*Stats, error) {
	var (
		times  []time.Time
		values []float64
	)
	for _, p := range s.Points() {
		if v, ok := p.Value.Get(); ok {
			times = append(times, p.Time)
			values = append(values, v)
		}
	}
	if len(values) < 3 {
		return nil, fmt.Errorf("insufficient data: %d points", len(values))
	}
	initialValue, finalValue := values[0], values[len(values)-1]
	if initialValue <= 0 {
		return nil, fmt.Errorf("invalid initial value: %f", initialValue)
	}

	returns := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] > 0 {
			returns = append(returns, values[i]/values[i-1]-1)
		} else {
			returns = append(returns, 0)
		}
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	// sample variance, N-1
	variance := 0.0
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	variance /= float64(len(returns) - 1)

	stats := &Stats{
		Start:       times[0],
		End:         times[len(times)-1],
		Days:        int(times[len(times)-1].Sub(times[0]).Hours() / 24),
		TotalReturn: finalValue/initialValue - 1,
		AnnReturn:   mean * tradingDaysPerYear,
		AnnVol:      math.Sqrt(variance) * math.Sqrt(tradingDaysPerYear),
		MaxDrawdown: -MaxDrawdown(values),
	}
	years := stats.End.Sub(stats.Start).Hours() / 24 / 365.25
	if years > 0 && finalValue > 0 {
		stats.CAGR = math.Pow(finalValue/initialValue, 1/years) - 1
	}
	if stats.AnnVol > 0 {
		stats.Sharpe = stats.AnnReturn / stats.AnnVol
	}

	for name, v := range stats.Map() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("invalid %s: %f", name, v)
		}
	}
	return stats, nil
}

// Map keys the stats the way the performance endpoint names its metrics.
func (s *Stats) Map() map[string]float64 {
	return map[string]float64{
		"days":         float64(s.Days),
		"total_return": s.TotalReturn,
		"cagr":         s.CAGR,
		"ann_return":   s.AnnReturn,
		"ann_vol":      s.AnnVol,
		"sharpe":       s.Sharpe,
		"max_drawdown": s.MaxDrawdown,
	}
}

// MaxDrawdown is the largest peak-to-trough decline of values, as a positive fraction.
// Leading non-positive values are skipped; the first positive value is the initial peak.
func MaxDrawdown(values []float64) float64 {
	start := 0
	for start < len(values) && values[start] <= 0 {
		start++
	}
	if len(values)-start < 2 {
		return 0.0
	}

	maxDrawdown := 0.0
	peak := values[start]
	for _, value := range values[start+1:] {
		if value > peak {
			peak = value
			continue
		}
		if dd := (peak - math.Max(value, 0)) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return maxDrawdown
}
