package main

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/phuslu/log"

	"portfolioDashboard/internal/backend"
	"portfolioDashboard/internal/config"
	"portfolioDashboard/internal/dashboard"
	"portfolioDashboard/internal/openai"
	"portfolioDashboard/internal/render"
	"portfolioDashboard/internal/scheduler"
	"portfolioDashboard/internal/server"
	"portfolioDashboard/internal/storage"
	"portfolioDashboard/internal/telegram"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config: load failed")
	}
	config.SetupLogging(cfg.LogLevel)

	// Ensure parent directory for the DB exists
	_ = os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755)
	db, err := storage.OpenSQLite("file:" + cfg.DBPath + "?_fk=1")
	if err != nil {
		log.Fatal().Err(err).Msg("db: open failed")
	}
	defer db.Close()
	log.Info().Str("path", cfg.DBPath).Msg("db: opened sqlite")
	if err := storage.InitSchema(db); err != nil {
		log.Fatal().Err(err).Msg("db: schema failed")
	}
	log.Info().Msg("db: schema ensured (recent_instruments, forecast_runs)")

	var cache render.Cache = render.NewMemoryCache(cfg.Charts.CacheTTL)
	if cfg.Redis.Addr != "" {
		rc := render.NewRedisCache(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Charts.CacheTTL)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rc.Ping(ctx)
		cancel()
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("cache: redis unavailable, using memory cache")
		} else {
			defer rc.Close()
			cache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("cache: using redis")
		}
	}

	api := backend.New(cfg.Dashboard.URL, cfg.Dashboard.Token)
	svc := dashboard.New(api, storage.NewStore(db), render.NewRenderer(cache, render.DefaultOptions()), cfg.Charts.DefaultBenchmark)

	var insights telegram.Insights
	if cfg.OpenAIKey != "" {
		insights = openai.NewInsights(cfg.OpenAIKey)
	}
	tg, err := telegram.NewBot(cfg.TelegramToken, cfg.WebhookPublicURL, svc, insights)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram: init failed")
	}
	log.Info().Str("webhook", cfg.WebhookPublicURL).Msg("telegram: bot initialized")

	if cfg.Digest.Cron != "" {
		digest := scheduler.NewDigest(svc, tg.Handlers(), cfg.Digest.ChatID, cfg.Digest.Instruments)
		if err := digest.Start(cfg.Digest.Cron); err != nil {
			log.Fatal().Err(err).Msg("scheduler: start failed")
		}
		defer digest.Stop()
	}

	mux := server.NewHTTPMux(telegram.WebhookHandler(tg.Handlers()), svc) // registers /telegram/webhook
	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Msg("http: listening")
	if err := server.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("http: server error")
		os.Exit(1)
	}
}
