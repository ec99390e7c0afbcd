package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/urmzd/beamline/pkg/config"
)

var ErrNoActiveProfile = errors.New("no active profile found")

// Config is the runtime configuration loaded from the database.
type Config struct {
	Profile   *Profile
	APIServer *APIServer
	Beamline  config.BeamlineConfig
}

// APIAddress returns the API server listen address.
func (c *Config) APIAddress() string {
	if c.APIServer == nil {
		return "0.0.0.0:8080"
	}
	return c.APIServer.Address()
}

// Simulate reports whether the active profile runs on simulated hardware.
func (c *Config) Simulate() bool {
	return c.Profile != nil && c.Profile.Simulate
}

// ActiveConfig loads the complete configuration for the active profile. The
// beamline is validated and normalized.
func (db *DB) ActiveConfig(ctx context.Context) (*Config, error) {
	profile, err := db.Profiles().GetActive(ctx)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return nil, ErrNoActiveProfile
		}
		return nil, fmt.Errorf("failed to get active profile: %w", err)
	}

	cfg := &Config{Profile: profile}

	apiServer, err := db.APIServers().Get(ctx, profile.ID)
	if err != nil && !errors.Is(err, ErrAPIServerNotFound) {
		return nil, fmt.Errorf("failed to get API server config: %w", err)
	}
	cfg.APIServer = apiServer

	b, err := db.Devices().Beamline(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("failed to load beamline: %w", err)
	}
	wrapped := &config.Config{Beamline: b}
	if err := config.Validate(wrapped); err != nil {
		return nil, fmt.Errorf("stored beamline is invalid: %w", err)
	}
	config.Normalize(wrapped)
	cfg.Beamline = wrapped.Beamline

	return cfg, nil
}

// ImportFile loads a YAML beamline file, validates it and stores it in the
// active profile.
func (db *DB) ImportFile(ctx context.Context, path string) error {
	c, err := config.Load(path)
	if err != nil {
		return err
	}
	if err := config.Validate(c); err != nil {
		return fmt.Errorf("invalid beamline file: %w", err)
	}

	profile, err := db.Profiles().GetActive(ctx)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return ErrNoActiveProfile
		}
		return err
	}
	return db.Devices().Import(ctx, profile.ID, c.Beamline)
}
