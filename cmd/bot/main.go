package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aruniyer/ledger-bot/internal/config"
	"github.com/aruniyer/ledger-bot/internal/engine"
	"github.com/aruniyer/ledger-bot/internal/logger"
	"github.com/aruniyer/ledger-bot/internal/nlp"
	"github.com/aruniyer/ledger-bot/internal/report"
	"github.com/aruniyer/ledger-bot/internal/store"
	"github.com/aruniyer/ledger-bot/internal/store/memory"
	"github.com/aruniyer/ledger-bot/internal/store/postgres"
	"github.com/aruniyer/ledger-bot/internal/telegram"
)

func main() {
	log := logger.New()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()

	// Pick the ledger store: Postgres when configured, in-memory for
	// tokenless local runs.
	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer pg.Close()
		st = pg
		log.Info().Msg("Using Postgres ledger store")
	} else {
		st = memory.New()
		log.Warn().Msg("DATABASE_URL not set - using in-memory store, data will not survive restarts")
	}

	extractor, err := nlp.NewGemini(ctx, nlp.Config{
		APIKey: cfg.GeminiAPIKey,
		Model:  cfg.GeminiModel,
		Loc:    cfg.Location,
		Log:    log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create intent extractor")
	}

	eng := engine.New(st, cfg.Location, log)
	reports := report.NewBuilder(st, cfg.Location)
	sender := telegram.NewClient(cfg.TelegramToken, cfg.TelegramAPIBase)
	webhook := telegram.NewWebhook(st, extractor, eng, reports, sender, log)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(telegram.RequestLogger(log))

	r.Post("/webhook", webhook.Handle)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"healthy"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting webhook server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
