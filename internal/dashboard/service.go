// Package dashboard fetches dashboard payloads and turns them into chart datasets and images.
// The bot, the HTTP API and the digest scheduler all go through it.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/phuslu/log"

	"portfolioDashboard/internal/backend"
	"portfolioDashboard/internal/chart"
	"portfolioDashboard/internal/metrics"
	"portfolioDashboard/internal/payload"
	"portfolioDashboard/internal/render"
	"portfolioDashboard/internal/storage"
)

// DefaultSentimentWindow is the number of days shown when none is asked for.
const DefaultSentimentWindow = 30

// API is the part of the dashboard backend the service reads.
type API interface {
	ResolveInstrument(ctx context.Context, ref string) (*payload.Instrument, error)
	Candles(ctx context.Context, id string, r backend.Range) ([]chart.Candle, payload.Report, error)
	Indicators(ctx context.Context, id string, r backend.Range) (chart.IndicatorSet, payload.Report, error)
	StartForecast(ctx context.Context, id string, opts backend.ForecastOptions) (*payload.ForecastRun, error)
	Forecast(ctx context.Context, runID string) (*payload.Forecast, payload.Report, error)
	Sentiment(ctx context.Context, id string, windowDays int) ([]chart.SentimentDay, payload.Report, error)
	Performance(ctx context.Context, portfolioID string, r backend.Range, benchmark string) (*payload.Performance, payload.Report, error)
}

// Store remembers what each chat looked at. Chat id 0 is never recorded.
type Store interface {
	PushRecent(chatID int64, item storage.RecentInstrument) error
	RecentInstruments(chatID int64) ([]storage.RecentInstrument, error)
	SaveForecastRun(chatID int64, run storage.ForecastRun) error
	LastForecastRun(chatID int64, instrumentID string) (storage.ForecastRun, error)
}

// Chart is a built dataset plus what a surface needs to present it.
type Chart struct {
	Dataset  chart.RenderDataset
	Caption  string
	Notice   string // set when part of the request could not be drawn
	CacheKey string
}

type Service struct {
	api              API
	store            Store
	renderer         *render.Renderer
	defaultBenchmark string
}

func New(api API, store Store, renderer *render.Renderer, defaultBenchmark string) *Service {
	return &Service{api: api, store: store, renderer: renderer, defaultBenchmark: defaultBenchmark}
}

// Render draws c, through the image cache when the chart has a key.
func (s *Service) Render(ctx context.Context, c *Chart) ([]byte, error) {
	return s.renderer.Render(ctx, c.CacheKey, c.Dataset)
}

// Recent returns the instruments the chat looked at last, most recent first.
func (s *Service) Recent(chatID int64) ([]storage.RecentInstrument, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.RecentInstruments(chatID)
}

// Price builds the close price view with moving averages for an instrument id or symbol.
func (s *Service) Price(ctx context.Context, chatID int64, ref string, r backend.Range) (*Chart, error) {
	inst, err := s.resolve(ctx, chatID, ref)
	if err != nil {
		return nil, err
	}
	in, err := s.priceInput(ctx, inst, r)
	if err != nil {
		return nil, err
	}
	ds, err := chart.BuildPriceView(in)
	if err != nil {
		return nil, fmt.Errorf("build price view: %w", err)
	}
	return &Chart{
		Dataset:  ds,
		Caption:  fmt.Sprintf("%s · %s", inst.Name(), r.Label()),
		CacheKey: fmt.Sprintf("price|%s|%s", inst.ID, r),
	}, nil
}

// Forecast runs a new forecast for the instrument and draws it after the price history.
func (s *Service) Forecast(ctx context.Context, chatID int64, ref string, r backend.Range, opts backend.ForecastOptions) (*Chart, error) {
	inst, err := s.resolve(ctx, chatID, ref)
	if err != nil {
		return nil, err
	}
	run, err := s.api.StartForecast(ctx, string(inst.ID), opts)
	if err != nil {
		return nil, fmt.Errorf("start forecast: %w", err)
	}
	if chatID != 0 && s.store != nil {
		err := s.store.SaveForecastRun(chatID, storage.ForecastRun{
			InstrumentID: string(inst.ID), RunID: string(run.RunID), HorizonDays: opts.HorizonDays,
		})
		if err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("dashboard: save forecast run failed")
		}
	}
	return s.forecastChart(ctx, inst, r, string(run.RunID))
}

// LastForecast redraws the chat's previous forecast for the instrument without running a new one.
func (s *Service) LastForecast(ctx context.Context, chatID int64, ref string, r backend.Range) (*Chart, error) {
	if s.store == nil {
		return nil, storage.ErrNotFound
	}
	inst, err := s.resolve(ctx, chatID, ref)
	if err != nil {
		return nil, err
	}
	run, err := s.store.LastForecastRun(chatID, string(inst.ID))
	if err != nil {
		return nil, err
	}
	return s.forecastChart(ctx, inst, r, run.RunID)
}

func (s *Service) forecastChart(ctx context.Context, inst *payload.Instrument, r backend.Range, runID string) (*Chart, error) {
	fc, rep, err := s.api.Forecast(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast: %w", err)
	}
	logReport("forecast", runID, rep)
	if strings.EqualFold(fc.Status, "failed") {
		return nil, fmt.Errorf("forecast run %s failed", runID)
	}
	in, err := s.priceInput(ctx, inst, r)
	if err != nil {
		return nil, err
	}

	c := &Chart{
		Caption:  fmt.Sprintf("%s · %s · %dd forecast", inst.Name(), r.Label(), fc.Result.Len()),
		CacheKey: fmt.Sprintf("forecast|%s|%s|%s", inst.ID, r, runID),
	}
	if fc.ModelType != "" {
		c.Caption += " (" + fc.ModelType + ")"
	}
	withForecast := in
	withForecast.Forecast = &fc.Result
	ds, err := chart.BuildPriceView(withForecast)
	var cerr *chart.CompositionError
	switch {
	case errors.As(err, &cerr):
		log.Warn().Err(err).Str("run_id", runID).Msg("dashboard: forecast overlaps history, drawing history only")
		ds, err = chart.BuildPriceView(in)
		if err != nil {
			return nil, fmt.Errorf("build price view: %w", err)
		}
		c.Notice = "Forecast could not be placed after the price history, showing history only."
		c.CacheKey = fmt.Sprintf("price|%s|%s", inst.ID, r)
	case err != nil:
		return nil, fmt.Errorf("build price view: %w", err)
	case fc.Result.Len() == 0:
		c.Notice = fmt.Sprintf("Forecast is %s with no points yet.", orDefault(fc.Status, "empty"))
		c.CacheKey = ""
	}
	c.Dataset = ds
	return c, nil
}

func (s *Service) priceInput(ctx context.Context, inst *payload.Instrument, r backend.Range) (chart.PriceInput, error) {
	id := string(inst.ID)
	candles, rep, err := s.api.Candles(ctx, id, r)
	if err != nil {
		return chart.PriceInput{}, fmt.Errorf("fetch prices: %w", err)
	}
	logReport("prices", id, rep)

	// indicators are decoration; the chart stands without them
	indicators, rep, err := s.api.Indicators(ctx, id, r)
	if err != nil {
		log.Warn().Err(err).Str("instrument", id).Msg("dashboard: indicators unavailable")
		indicators = nil
	}
	logReport("indicators", id, rep)

	return chart.PriceInput{Title: inst.Name(), Candles: candles, Indicators: indicators}, nil
}

// Sentiment builds the daily sentiment view over the last windowDays days.
func (s *Service) Sentiment(ctx context.Context, chatID int64, ref string, windowDays int) (*Chart, error) {
	if windowDays <= 0 {
		windowDays = DefaultSentimentWindow
	}
	inst, err := s.resolve(ctx, chatID, ref)
	if err != nil {
		return nil, err
	}
	days, rep, err := s.api.Sentiment(ctx, string(inst.ID), windowDays)
	if err != nil {
		return nil, fmt.Errorf("fetch sentiment: %w", err)
	}
	logReport("sentiment", string(inst.ID), rep)

	return &Chart{
		Dataset:  chart.BuildSentimentView(inst.Name()+" sentiment", days),
		Caption:  fmt.Sprintf("%s · sentiment %dd", inst.Name(), windowDays),
		CacheKey: fmt.Sprintf("sentiment|%s|%d", inst.ID, windowDays),
	}, nil
}

// Performance builds the normalized portfolio vs benchmark view. An empty benchmark uses the
// configured default. Metrics are computed locally when the backend sends none.
func (s *Service) Performance(ctx context.Context, portfolioID string, r backend.Range, benchmark string) (*Chart, error) {
	if benchmark == "" {
		benchmark = s.defaultBenchmark
	}
	c := &Chart{
		Caption:  fmt.Sprintf("Portfolio %s · %s", portfolioID, r.Label()),
		CacheKey: fmt.Sprintf("perf|%s|%s|%s", portfolioID, r, strings.ToUpper(benchmark)),
	}

	perf, rep, err := s.api.Performance(ctx, portfolioID, r, benchmark)
	var oerr *chart.OrderError
	if errors.As(err, &oerr) {
		log.Warn().Err(err).Str("portfolio", portfolioID).Msg("dashboard: performance series out of order")
		c.Dataset = chart.BuildPerformanceView(chart.PerformanceInput{Title: "Portfolio " + portfolioID})
		c.Notice = "Performance data arrived out of order and was not drawn."
		c.CacheKey = ""
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch performance: %w", err)
	}
	logReport("performance", portfolioID, rep)

	stats := perf.Metrics
	if len(stats) == 0 {
		if m, err := metrics.Compute(perf.Portfolio); err == nil {
			stats = m.Map()
		} else {
			log.Debug().Err(err).Str("portfolio", portfolioID).Msg("dashboard: no metrics")
		}
	}
	title := "Portfolio " + portfolioID
	if perf.BenchmarkSymbol != "" {
		title += " vs " + perf.BenchmarkSymbol
		c.Caption += " · vs " + perf.BenchmarkSymbol
	}
	c.Dataset = chart.BuildPerformanceView(chart.PerformanceInput{
		Title:     title,
		Portfolio: perf.Portfolio,
		Benchmark: perf.Benchmark,
		Metrics:   stats,
	})
	return c, nil
}

func (s *Service) resolve(ctx context.Context, chatID int64, ref string) (*payload.Instrument, error) {
	inst, err := s.api.ResolveInstrument(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("resolve instrument: %w", err)
	}
	if chatID != 0 && s.store != nil {
		err := s.store.PushRecent(chatID, storage.RecentInstrument{
			ID: string(inst.ID), Symbol: inst.Symbol, Name: inst.Name(),
		})
		if err != nil {
			log.Warn().Err(err).Int64("chat_id", chatID).Msg("dashboard: remember instrument failed")
		}
	}
	return inst, nil
}

func logReport(kind, id string, rep payload.Report) {
	if rep.Dropped == 0 {
		return
	}
	log.Warn().Str("payload", kind).Str("id", id).Int("rows", rep.Rows).Int("dropped", rep.Dropped).
		Msg("dashboard: dropped rows with unreadable timestamps")
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
