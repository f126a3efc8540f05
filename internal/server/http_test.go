package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfolioDashboard/internal/backend"
	"portfolioDashboard/internal/chart"
	"portfolioDashboard/internal/dashboard"
	"portfolioDashboard/internal/render"
)

func day(n int) time.Time { return time.Date(2024, time.January, n, 0, 0, 0, 0, time.UTC) }

type fakeViews struct {
	ref   string
	rng   backend.Range
	bench string
	days  int
	chart *dashboard.Chart
	err   error
}

func (f *fakeViews) Price(_ context.Context, _ int64, ref string, r backend.Range) (*dashboard.Chart, error) {
	f.ref, f.rng = ref, r
	return f.chart, f.err
}

func (f *fakeViews) Sentiment(_ context.Context, _ int64, ref string, days int) (*dashboard.Chart, error) {
	f.ref, f.days = ref, days
	return f.chart, f.err
}

func (f *fakeViews) Performance(_ context.Context, id string, r backend.Range, bench string) (*dashboard.Chart, error) {
	f.ref, f.rng, f.bench = id, r, bench
	return f.chart, f.err
}

func (f *fakeViews) Render(_ context.Context, c *dashboard.Chart) ([]byte, error) {
	return render.PNG(c.Dataset, render.Options{Width: 300, Height: 200})
}

func sentimentChart() *dashboard.Chart {
	return &dashboard.Chart{Dataset: chart.BuildSentimentView("AAPL sentiment", []chart.SentimentDay{
		{Day: day(1), Positive: chart.Some(2), Negative: chart.Some(1), NetScore: chart.Some(0.3)},
		{Day: day(2), Positive: chart.Some(1), Negative: chart.Some(1), NetScore: chart.Some(0)},
	})}
}

func serve(t *testing.T, views Views, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	NewHTTPMux(nil, views).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestViews_JSON(t *testing.T) {
	views := &fakeViews{chart: sentimentChart()}
	rec := serve(t, views, "/api/views/sentiment/7?days=14")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "7", views.ref)
	assert.Equal(t, 14, views.days)

	var body struct {
		View   string   `json:"view"`
		Labels []string `json:"labels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "sentiment", body.View)
	assert.Equal(t, []string{"2024-01-01T00:00:00Z", "2024-01-02T00:00:00Z"}, body.Labels)
}

func TestViews_Params(t *testing.T) {
	views := &fakeViews{chart: sentimentChart()}

	rec := serve(t, views, "/api/views/performance/3?range=1y&benchmark=qqq")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, backend.Range365d, views.rng)
	assert.Equal(t, "qqq", views.bench)

	rec = serve(t, views, "/api/views/price/AAPL")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "AAPL", views.ref)
	assert.Equal(t, backend.DefaultRange, views.rng)
}

func TestViews_PNG(t *testing.T) {
	c := sentimentChart()
	c.Notice = "partial"
	rec := serve(t, &fakeViews{chart: c}, "/api/views/sentiment/7?format=png")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, "partial", rec.Header().Get("X-Chart-Notice"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = serve(t, &fakeViews{chart: &dashboard.Chart{}}, "/api/views/sentiment/7?format=png")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestViews_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"bad range", "/api/views/price/7?range=2w", nil, http.StatusBadRequest},
		{"bad days", "/api/views/sentiment/7?days=x", nil, http.StatusBadRequest},
		{"not found", "/api/views/price/7", &backend.StatusError{StatusCode: http.StatusNotFound}, http.StatusNotFound},
		{"upstream", "/api/views/price/7", &backend.StatusError{StatusCode: http.StatusInternalServerError}, http.StatusBadGateway},
		{"missing id", "/api/views/price", nil, http.StatusNotFound},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(t, &fakeViews{chart: sentimentChart(), err: tc.err}, tc.target)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestHealthz(t *testing.T) {
	rec := serve(t, nil, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}
