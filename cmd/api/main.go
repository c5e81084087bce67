package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/fairyhunter13/parcelace-scratch/internal/config"
	"github.com/fairyhunter13/parcelace-scratch/internal/handler"
	"github.com/fairyhunter13/parcelace-scratch/internal/repository"
	"github.com/fairyhunter13/parcelace-scratch/internal/service"
	"github.com/fairyhunter13/parcelace-scratch/internal/session"
	"github.com/fairyhunter13/parcelace-scratch/internal/validator"
	"github.com/fairyhunter13/parcelace-scratch/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	initLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), cfg.DB.MaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate database")
	}

	// Live cards are held in memory; idle ones are unmounted by the janitor
	store := session.NewStore(cfg.Session.TTL, cfg.Session.SweepInterval, session.WithMaxCards(cfg.Session.MaxCards))
	settings := cfg.Scratch.Settings()
	validate := validator.New()

	scratchService := service.NewScratchService(
		pool,
		repository.NewOfferRepository(pool),
		repository.NewRevealRepository(pool),
		store,
		settings,
	)

	app := newApp()
	registerRoutes(app,
		handler.NewHealthHandler(pool, store),
		handler.NewOfferHandler(scratchService, validate),
		handler.NewScratchHandler(scratchService, validate),
	)

	go func() {
		log.Info().
			Str("port", cfg.Server.Port).
			Float64("threshold", settings.Threshold).
			Int("erase_radius", settings.EraseRadius).
			Dur("session_ttl", cfg.Session.TTL).
			Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	// In-flight stroke batches finish (and persist their reveals) first
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Stop runs the service's unmount hook, which records pending reveals
	// while the pool is still open.
	log.Info().Int("mounted_cards", store.Len()).Msg("unmounting cards")
	store.Stop()

	pool.Close()
	log.Info().Msg("server stopped")
}

// initLogger configures the global zerolog logger.
// LOG_PRETTY switches from JSON to console output.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
		return
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Str("service", "parcelace-scratch").Logger()
}
