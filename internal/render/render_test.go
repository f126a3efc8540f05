package render

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioDashboard/internal/chart"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func day(n int) time.Time { return time.Date(2024, time.January, n, 0, 0, 0, 0, time.UTC) }

func priceDataset(t *testing.T) chart.RenderDataset {
	t.Helper()
	var candles []chart.Candle
	for i := 1; i <= 10; i++ {
		candles = append(candles, chart.Candle{Time: day(i), Close: chart.Some(100 + float64(i))})
	}
	fc := chart.ForecastResult{Points: []chart.ForecastPoint{
		{Time: day(11), Estimate: chart.Some(111), Lower: chart.Some(108), Upper: chart.Some(114)},
		{Time: day(12), Estimate: chart.Some(112), Lower: chart.Some(107), Upper: chart.Some(117)},
	}}
	ds, err := chart.BuildPriceView(chart.PriceInput{
		Title:      "AAPL",
		Candles:    candles,
		Indicators: chart.IndicatorSet{"sma_20": mustSeries("sma_20", chart.P(day(5), 103))},
		Forecast:   &fc,
	})
	require.NoError(t, err)
	return ds
}

func TestPNG_Views(t *testing.T) {
	sentiment := chart.BuildSentimentView("AAPL sentiment", []chart.SentimentDay{
		{Day: day(1), Positive: chart.Some(2), Negative: chart.Some(1), Neutral: chart.Some(0), NetScore: chart.Some(0.33)},
		{Day: day(2), Positive: chart.Some(0), Negative: chart.Some(2), NetScore: chart.Some(-1)},
	})
	performance := chart.BuildPerformanceView(chart.PerformanceInput{
		Title:     "Portfolio",
		Portfolio: mustSeries("p", chart.P(day(1), 100), chart.P(day(2), 110), chart.P(day(3), 105)),
		Benchmark: mustSeries("b", chart.P(day(1), 50), chart.P(day(3), 52)),
		Metrics:   map[string]float64{"sharpe": 1.1},
	})
	testCases := []struct {
		name string
		ds   chart.RenderDataset
	}{
		{"price with forecast", priceDataset(t)},
		{"sentiment", sentiment},
		{"performance", performance},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			img, err := PNG(tc.ds, Options{Width: 600, Height: 400})
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(img, pngMagic))
		})
	}
}

func TestPNG_Empty(t *testing.T) {
	_, err := PNG(chart.BuildSentimentView("", nil), DefaultOptions())
	assert.ErrorIs(t, err, ErrNoData)
}

func TestAxisRange(t *testing.T) {
	ds := chart.BuildSentimentView("", []chart.SentimentDay{
		{Day: day(1), Positive: chart.Some(4), Negative: chart.Some(2), NetScore: chart.Some(0)},
	})
	lo, hi := axisRange(ds, ds.Axes[1])
	assert.Equal(t, -1.0, lo, "net score axis is fixed")
	assert.Equal(t, 1.0, hi)

	lo, hi = axisRange(ds, ds.Axes[0])
	assert.Equal(t, 0.0, lo)
	assert.InDelta(t, 4.1, hi, 1e-9, "bars are sized individually, not stacked")

	perf := chart.BuildPerformanceView(chart.PerformanceInput{
		Portfolio: mustSeries("p", chart.P(day(1), 100), chart.P(day(2), 90), chart.P(day(3), 120)),
	})
	lo, hi = axisRange(perf, perf.Axes[0])
	assert.InDelta(t, -10-1.5, lo, 1e-9)
	assert.InDelta(t, 20+1.5, hi, 1e-9)
}

func TestLabels(t *testing.T) {
	daily := []time.Time{day(1), day(2)}
	assert.Equal(t, []string{"Jan 01", "Jan 02"}, Labels(daily, chart.XAxis{Type: "time", Unit: "day"}, Eastern()))

	intraday := []time.Time{
		time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC),
		time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, []string{"09:30", "10:00"}, Labels(intraday, chart.XAxis{Type: "time"}, time.FixedZone("EST", -5*3600)))

	long := []time.Time{day(1), day(1).AddDate(2, 0, 0)}
	assert.Equal(t, []string{"Jan '24", "Jan '26"}, Labels(long, chart.XAxis{Type: "time"}, nil))
}

func TestSubtitle(t *testing.T) {
	ds := chart.RenderDataset{Stats: map[string]float64{"cagr": 0.123, "sharpe": 1.1, "max_drawdown": -0.082, "days": 30}}
	assert.Equal(t, "CAGR: 12.30% | Sharpe: 1.10 | MaxDD: -8.20%", Subtitle(ds))
	assert.Empty(t, Subtitle(chart.RenderDataset{}))
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMemoryCache(time.Minute)
	c.now = func() time.Time { return now }

	img := []byte{1, 2, 3}
	c.Set(ctx, "k", img)
	img[0] = 9

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, got, "cache keeps its own copy")

	now = now.Add(time.Minute)
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok, "expired")
}

type countingCache struct {
	*MemoryCache
	sets int
}

func (c *countingCache) Set(ctx context.Context, key string, img []byte) {
	c.sets++
	c.MemoryCache.Set(ctx, key, img)
}

func TestRenderer_UsesCache(t *testing.T) {
	cache := &countingCache{MemoryCache: NewMemoryCache(time.Minute)}
	r := NewRenderer(cache, Options{Width: 400, Height: 300})
	ds := priceDataset(t)

	first, err := r.Render(context.Background(), "price|7", ds)
	require.NoError(t, err)
	second, err := r.Render(context.Background(), "price|7", chart.RenderDataset{})
	require.NoError(t, err, "served from cache without rendering")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, cache.sets)
}

func mustSeries(label string, points ...chart.Point) *chart.Series {
	s, err := chart.NewSeries(label, points)
	if err != nil {
		panic(err)
	}
	return s
}
