package db

import (
	"context"
	"fmt"
)

// Bootstrap creates the default profile and listener if the database is
// empty. It runs after migrations.
func (db *DB) Bootstrap(ctx context.Context) error {
	needed, err := db.NeedsBootstrap(ctx)
	if err != nil {
		return fmt.Errorf("failed to check profiles: %w", err)
	}
	if !needed {
		return nil
	}

	p := &Profile{Name: "default", Beamline: "beamline", IsActive: true}
	if err := db.Profiles().Create(ctx, p); err != nil {
		return fmt.Errorf("failed to create default profile: %w", err)
	}

	if err := db.APIServers().Save(ctx, &APIServer{ProfileID: p.ID, Host: "0.0.0.0", Port: 8080}); err != nil {
		return fmt.Errorf("failed to create default API server: %w", err)
	}
	return nil
}

// NeedsBootstrap returns true if the database needs initial setup.
func (db *DB) NeedsBootstrap(ctx context.Context) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM profiles`).Scan(&count)
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
