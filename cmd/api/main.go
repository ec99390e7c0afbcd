package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/beamline/pkg/api"
	"github.com/urmzd/beamline/pkg/api/schema"
	"github.com/urmzd/beamline/pkg/beamline"
	"github.com/urmzd/beamline/pkg/db"

	_ "github.com/urmzd/beamline/docs"
)

// @title           Beamline API
// @version         1.0
// @description     REST API for driving monitored beamline valves and pressure cells

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

func main() {
	// Configure logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Parse flags
	dbPath := flag.String("db", "", "Path to database file (default: <user config dir>/beamline/beamline.db)")
	configPath := flag.String("config", "", "YAML beamline file to import into the active profile before starting")
	simulate := flag.Bool("simulate", false, "Run against simulated hardware regardless of the profile setting")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Open database
	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	log.Info().Str("path", database.Path()).Msg("Database opened")

	// Run migrations
	if err := database.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	// Bootstrap if needed (first run)
	needsBootstrap, err := database.NeedsBootstrap(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to check bootstrap status")
	}
	if needsBootstrap {
		log.Info().Msg("First run detected, bootstrapping database...")
		if err := database.Bootstrap(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to bootstrap database")
		}
		log.Info().Msg("Database bootstrapped successfully")
	}

	if *configPath != "" {
		if err := database.ImportFile(ctx, *configPath); err != nil {
			log.Fatal().Err(err).Str("file", *configPath).Msg("Failed to import beamline file")
		}
		log.Info().Str("file", *configPath).Msg("Beamline file imported")
	}

	// Load configuration
	cfg, err := database.ActiveConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().
		Str("profile", cfg.Profile.Name).
		Str("beamline", cfg.Beamline.Name).
		Int("devices", len(cfg.Beamline.Devices)).
		Str("api_address", cfg.APIAddress()).
		Msg("Configuration loaded")

	bl, err := beamline.New(ctx, cfg.Beamline, beamline.Options{Simulate: *simulate || cfg.Simulate()})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start beamline")
	}
	defer func() {
		if err := bl.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close beamline")
		}
	}()

	router := api.NewRouter(bl, bl, schema.NewValidator())

	srv := &http.Server{
		Addr:              cfg.APIAddress(),
		Handler:           router.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info().Msg("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	log.Info().Str("address", srv.Addr).Bool("simulated", bl.Simulated()).Msg("Starting API server")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Server failed")
	}
}
