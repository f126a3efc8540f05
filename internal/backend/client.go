// Package backend talks to the dashboard REST API that stores prices, indicators, forecasts,
// sentiment and portfolio curves.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/phuslu/log"

	"portfolioDashboard/internal/chart"
	"portfolioDashboard/internal/payload"
)

// Indicator windows requested alongside prices.
const indicatorQuery = "sma=20,50&ema=200&rsi=14"

// StatusError is a non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

type Client struct {
	baseURL  string
	token    string
	http     *http.Client
	backoffs []time.Duration
	now      func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.http = hc } }

// WithBackoffs replaces the retry schedule; no arguments disables retries.
func WithBackoffs(b ...time.Duration) Option { return func(c *Client) { c.backoffs = b } }

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		http:     &http.Client{Timeout: 20 * time.Second},
		backoffs: []time.Duration{200 * time.Millisecond, 500 * time.Millisecond, 1 * time.Second},
		now:      time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func preview(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 120 {
		s = s[:120]
	}
	return s
}

func retryable(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return true // transport error
	}
	return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, q url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode/100 != 2 {
		return nil, &StatusError{Method: method, Path: path, StatusCode: resp.StatusCode, Body: preview(body)}
	}
	return body, nil
}

// get retries transport errors, 429 and 5xx on the backoff schedule.
func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= len(c.backoffs); attempt++ {
		body, err := c.do(ctx, http.MethodGet, path, q)
		if err == nil {
			return body, nil
		}
		lastErr = err
		if !retryable(err) || ctx.Err() != nil || attempt == len(c.backoffs) {
			break
		}
		log.Debug().Str("path", path).Int("attempt", attempt+1).Err(err).Msg("backend: retrying")
		select {
		case <-time.After(c.backoffs[attempt]):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (c *Client) fromQuery(r Range) url.Values {
	q := url.Values{}
	if from, ok := r.From(c.now().UTC()); ok {
		q.Set("from", from.Format("2006-01-02T15:04:05"))
	}
	return q
}

func (c *Client) Instrument(ctx context.Context, id string) (*payload.Instrument, error) {
	body, err := c.get(ctx, "/instruments/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var inst payload.Instrument
	if err := json.Unmarshal(body, &inst); err != nil {
		return nil, fmt.Errorf("decode instrument: %w", err)
	}
	return &inst, nil
}

func (c *Client) SearchInstruments(ctx context.Context, query string) ([]payload.Instrument, error) {
	body, err := c.get(ctx, "/instruments/search", url.Values{"q": {query}})
	if err != nil {
		return nil, err
	}
	var out []payload.Instrument
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode search: %w", err)
	}
	return out, nil
}

// ResolveInstrument accepts a numeric id or a symbol. Symbols resolve to the first exact
// (case-insensitive) match of a search.
func (c *Client) ResolveInstrument(ctx context.Context, ref string) (*payload.Instrument, error) {
	ref = strings.TrimSpace(ref)
	if _, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return c.Instrument(ctx, ref)
	}
	found, err := c.SearchInstruments(ctx, ref)
	if err != nil {
		return nil, err
	}
	for _, inst := range found {
		if strings.EqualFold(inst.Symbol, ref) {
			return &inst, nil
		}
	}
	return nil, fmt.Errorf("no instrument matches %q", ref)
}

func (c *Client) Candles(ctx context.Context, id string, r Range) ([]chart.Candle, payload.Report, error) {
	body, err := c.get(ctx, "/prices/"+url.PathEscape(id), c.fromQuery(r))
	if err != nil {
		return nil, payload.Report{}, err
	}
	return payload.DecodeCandles(bytes.NewReader(body))
}

func (c *Client) Indicators(ctx context.Context, id string, r Range) (chart.IndicatorSet, payload.Report, error) {
	q, _ := url.ParseQuery(indicatorQuery)
	for k, v := range c.fromQuery(r) {
		q[k] = v
	}
	body, err := c.get(ctx, "/analytics/indicators/"+url.PathEscape(id), q)
	if err != nil {
		return nil, payload.Report{}, err
	}
	return payload.DecodeIndicators(bytes.NewReader(body))
}

// ForecastOptions are passed through to the forecasting job. Zero values use server defaults.
type ForecastOptions struct {
	HorizonDays  int
	LookbackDays int
	Model        string // ridge or lasso
}

// StartForecast asks the API to train and run a forecast. It is not retried.
func (c *Client) StartForecast(ctx context.Context, id string, opts ForecastOptions) (*payload.ForecastRun, error) {
	q := url.Values{}
	if opts.HorizonDays > 0 {
		q.Set("horizon_days", strconv.Itoa(opts.HorizonDays))
	}
	if opts.LookbackDays > 0 {
		q.Set("lookback_days", strconv.Itoa(opts.LookbackDays))
	}
	if opts.Model != "" {
		q.Set("model", opts.Model)
	}
	body, err := c.do(ctx, http.MethodPost, "/ml/forecast/instrument/"+url.PathEscape(id), q)
	if err != nil {
		return nil, err
	}
	var run payload.ForecastRun
	if err := json.Unmarshal(body, &run); err != nil {
		return nil, fmt.Errorf("decode forecast run: %w", err)
	}
	return &run, nil
}

func (c *Client) Forecast(ctx context.Context, runID string) (*payload.Forecast, payload.Report, error) {
	body, err := c.get(ctx, "/ml/forecast/results/"+url.PathEscape(runID), nil)
	if err != nil {
		return nil, payload.Report{}, err
	}
	return payload.DecodeForecast(bytes.NewReader(body))
}

func (c *Client) Sentiment(ctx context.Context, id string, windowDays int) ([]chart.SentimentDay, payload.Report, error) {
	q := url.Values{}
	if windowDays > 0 {
		q.Set("window_days", strconv.Itoa(windowDays))
	}
	body, err := c.get(ctx, "/sentiment/"+url.PathEscape(id), q)
	if err != nil {
		return nil, payload.Report{}, err
	}
	return payload.DecodeSentiment(bytes.NewReader(body))
}

// Performance fetches the portfolio value curve. An empty benchmark lets the server pick its
// default.
func (c *Client) Performance(ctx context.Context, portfolioID string, r Range, benchmark string) (*payload.Performance, payload.Report, error) {
	q := c.fromQuery(r)
	if b := strings.TrimSpace(benchmark); b != "" {
		q.Set("benchmark", strings.ToUpper(b))
	}
	body, err := c.get(ctx, "/analytics/portfolios/"+url.PathEscape(portfolioID)+"/performance", q)
	if err != nil {
		return nil, payload.Report{}, err
	}
	return payload.DecodePerformance(bytes.NewReader(body))
}
