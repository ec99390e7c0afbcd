package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/beamline/pkg/api/schema"
	"github.com/urmzd/beamline/pkg/beamline"
	"github.com/urmzd/beamline/pkg/db"
	beamlinemcp "github.com/urmzd/beamline/pkg/mcp"
)

func main() {
	// Logging must go to stderr, stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	dbPath := flag.String("db", "", "Path to database file (default: <user config dir>/beamline/beamline.db)")
	configPath := flag.String("config", "", "YAML beamline file to import into the active profile before starting")
	simulate := flag.Bool("simulate", false, "Run against simulated hardware regardless of the profile setting")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.OpenAndMigrate(ctx, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	log.Info().Str("path", database.Path()).Msg("Database opened")

	if *configPath != "" {
		if err := database.ImportFile(ctx, *configPath); err != nil {
			log.Fatal().Err(err).Str("file", *configPath).Msg("Failed to import beamline file")
		}
	}

	cfg, err := database.ActiveConfig(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	bl, err := beamline.New(ctx, cfg.Beamline, beamline.Options{Simulate: *simulate || cfg.Simulate()})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start beamline")
	}
	defer func() {
		if err := bl.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close beamline")
		}
	}()

	mcpServer := beamlinemcp.NewServer(bl, schema.NewValidator())

	log.Info().Str("beamline", bl.Name()).Int("devices", bl.Len()).Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Error().Err(err).Msg("MCP server failed")
	}
}
