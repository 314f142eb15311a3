// cmd/main.go is the application entry point.
// It wires together all layers and starts the HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/ChrisaMendoza/pilates-core/internal/auth"
	"github.com/ChrisaMendoza/pilates-core/internal/config"
	"github.com/ChrisaMendoza/pilates-core/internal/database"
	"github.com/ChrisaMendoza/pilates-core/internal/handler"
	"github.com/ChrisaMendoza/pilates-core/internal/repository"
	"github.com/ChrisaMendoza/pilates-core/internal/service"
)

func main() {
	ctx := context.Background()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		log = log.Level(level)
	}

	// ── 1. Pick the persistence backend ───────────────────────────────────
	var store repository.Store
	switch cfg.Store {
	case "memory":
		store = repository.NewMemStore()
		log.Warn().Msg("using in-memory store; all data is lost on shutdown")
	default:
		pool, err := database.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("connect to database")
		}
		defer pool.Close()
		if err := repository.InitializeSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("initialize schema")
		}
		store = repository.NewPostgresStore(pool)
		log.Info().Msg("connected to postgres")
	}

	// ── 2. Wire up layers ─────────────────────────────────────────────────
	verifier := auth.NewVerifier(cfg.JWTSecret)
	bookingSvc := service.NewBookingService(store, log)
	bookingHandler := handler.NewBookingHandler(bookingSvc)

	// ── 3. Build the router ───────────────────────────────────────────────
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(handler.AccessLog(log))
	r.Use(handler.CORS)

	r.Get("/health", handler.HealthCheck)

	r.Route("/bookings", func(r chi.Router) {
		r.Use(verifier.Middleware)
		bookingHandler.Mount(r)
	})

	// ── 4. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("graceful shutdown failed")
	}
	log.Info().Msg("server stopped")
}
