package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/phuslu/log"

	"portfolioDashboard/internal/backend"
	"portfolioDashboard/internal/dashboard"
	"portfolioDashboard/internal/render"
)

// Views builds the dashboard views served over HTTP.
type Views interface {
	Price(ctx context.Context, chatID int64, ref string, r backend.Range) (*dashboard.Chart, error)
	Sentiment(ctx context.Context, chatID int64, ref string, windowDays int) (*dashboard.Chart, error)
	Performance(ctx context.Context, portfolioID string, r backend.Range, benchmark string) (*dashboard.Chart, error)
	Render(ctx context.Context, c *dashboard.Chart) ([]byte, error)
}

func NewHTTPMux(webhook http.Handler, views Views) *http.ServeMux {
	mux := http.NewServeMux()
	if webhook != nil {
		mux.Handle("/telegram/webhook", webhook)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(200) })
	if views != nil {
		mux.HandleFunc("GET /api/views/price/{id}", priceHandler(views))
		mux.HandleFunc("GET /api/views/sentiment/{id}", sentimentHandler(views))
		mux.HandleFunc("GET /api/views/performance/{id}", performanceHandler(views))
	}
	return mux
}

func ListenAndServe(addr string, mux *http.ServeMux) error {
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	return srv.ListenAndServe()
}

func priceHandler(views Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rng, err := backend.ParseRange(r.URL.Query().Get("range"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c, err := views.Price(r.Context(), 0, r.PathValue("id"), rng)
		writeChart(w, r, views, c, err)
	}
}

func sentimentHandler(views Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 0
		if s := r.URL.Query().Get("days"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				http.Error(w, "days must be a positive integer", http.StatusBadRequest)
				return
			}
			days = n
		}
		c, err := views.Sentiment(r.Context(), 0, r.PathValue("id"), days)
		writeChart(w, r, views, c, err)
	}
}

func performanceHandler(views Views) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		rng, err := backend.ParseRange(q.Get("range"))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		c, err := views.Performance(r.Context(), r.PathValue("id"), rng, q.Get("benchmark"))
		writeChart(w, r, views, c, err)
	}
}

// writeChart answers with the dataset JSON, or the rendered image for ?format=png.
func writeChart(w http.ResponseWriter, r *http.Request, views Views, c *dashboard.Chart, err error) {
	if err != nil {
		status := http.StatusBadGateway
		if backend.IsNotFound(err) {
			status = http.StatusNotFound
		}
		log.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("http: view failed")
		http.Error(w, err.Error(), status)
		return
	}
	if c.Notice != "" {
		w.Header().Set("X-Chart-Notice", c.Notice)
	}
	if r.URL.Query().Get("format") == "png" {
		img, err := views.Render(r.Context(), c)
		if errors.Is(err, render.ErrNoData) {
			http.Error(w, "no data", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("http: render failed")
			http.Error(w, "render failed", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(img)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c.Dataset); err != nil {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("http: encode failed")
	}
}
