package backend

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := New(srv.URL+"/", "secret", WithBackoffs(time.Millisecond, time.Millisecond))
	c.now = func() time.Time { return time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC) }
	return c
}

func TestClient_CandlesSendsAuthAndRange(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prices/7", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "2024-04-02T12:00:00", r.URL.Query().Get("from"))
		w.Write([]byte(`{"candles":[{"ts":"2024-06-28","c":10},{"ts":"2024-07-01","c":11}]}`))
	})

	candles, rep, err := c.Candles(context.Background(), "7", Range90d)
	require.NoError(t, err)
	assert.Len(t, candles, 2)
	assert.Zero(t, rep.Dropped)
}

func TestClient_MaxRangeHasNoFrom(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.False(t, r.URL.Query().Has("from"))
		assert.Equal(t, "20,50", r.URL.Query().Get("sma"))
		w.Write([]byte(`{"indicators":{}}`))
	})
	_, _, err := c.Indicators(context.Background(), "7", RangeMax)
	require.NoError(t, err)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"daily":[]}`))
	})
	_, _, err := c.Sentiment(context.Background(), "7", 7)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"detail":"Instrument not found"}`, http.StatusNotFound)
	})
	_, err := c.Instrument(context.Background(), "99")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Body, "Instrument not found")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_GivesUpAfterBackoffs(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})
	_, _, err := c.Forecast(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load(), "one try plus two retries")
}

func TestClient_StartForecastIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "14", r.URL.Query().Get("horizon_days"))
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := c.StartForecast(context.Background(), "7", ForecastOptions{HorizonDays: 14})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_ResolveInstrument(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/instruments/search":
			assert.Equal(t, "aapl", r.URL.Query().Get("q"))
			w.Write([]byte(`[{"id":3,"symbol":"AAPLX"},{"id":7,"symbol":"AAPL","exchange":"NASDAQ"}]`))
		case "/instruments/7":
			w.Write([]byte(`{"id":7,"symbol":"AAPL"}`))
		default:
			http.NotFound(w, r)
		}
	})

	inst, err := c.ResolveInstrument(context.Background(), "aapl")
	require.NoError(t, err)
	assert.Equal(t, "7", string(inst.ID))
	assert.Equal(t, "AAPL (NASDAQ)", inst.Name())

	inst, err = c.ResolveInstrument(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", inst.Symbol)
}

func TestClient_PerformanceBenchmark(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/analytics/portfolios/abc/performance", r.URL.Path)
		assert.Equal(t, "QQQ", r.URL.Query().Get("benchmark"))
		w.Write([]byte(`{"series":[{"ts":"2024-01-01","value":1}]}`))
	})
	perf, _, err := c.Performance(context.Background(), "abc", Range365d, "qqq")
	require.NoError(t, err)
	assert.Equal(t, 1, perf.Portfolio.Len())
}

func TestParseRange(t *testing.T) {
	testCases := []struct {
		in   string
		want Range
	}{
		{"", Range180d},
		{"90d", Range90d},
		{"3M", Range90d},
		{"6m", Range180d},
		{"1y", Range365d},
		{"all", RangeMax},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseRange(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
	_, err := ParseRange("5y")
	assert.Error(t, err)

	now := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	from, ok := Range90d.From(now)
	require.True(t, ok)
	assert.Equal(t, now.AddDate(0, 0, -90), from)
	_, ok = RangeMax.From(now)
	assert.False(t, ok)
	assert.Equal(t, "6M", Range180d.Label())
}
