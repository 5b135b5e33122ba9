package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	zlog "github.com/rs/zerolog/log"

	"github.com/pfolio/portfolio-api/internal/api"
	"github.com/pfolio/portfolio-api/internal/app"
	"github.com/pfolio/portfolio-api/internal/config"
	"github.com/pfolio/portfolio-api/internal/database"
	"github.com/pfolio/portfolio-api/internal/logger"
	"github.com/pfolio/portfolio-api/internal/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		zlog.Fatal().Err(err).Msg("failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	zlog.Logger = log

	if dir := filepath.Dir(cfg.Database.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			log.Fatal().Err(err).Str("dir", dir).Msg("failed to create database directory")
		}
	}

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	applied, err := database.Migrate(context.Background(), db, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}
	log.Info().
		Str("path", cfg.Database.Path).
		Int("migrations_applied", applied).
		Msg("connected to database")

	services := app.NewServices(db, cfg, log)

	if cfg.Scheduler.Enabled {
		sched, err := app.NewScheduler(services, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure scheduler")
		}
		sched.Start()
		defer sched.Stop()
	}

	// Create HTTP server
	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(services, cfg, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().
			Str("addr", cfg.Server.Addr).
			Str("version", version.Version).
			Str("base_currency", cfg.Portfolio.BaseCurrency.String()).
			Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		return
	}

	log.Info().Msg("server exited")
}
