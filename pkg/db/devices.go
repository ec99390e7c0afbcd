package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urmzd/beamline/pkg/config"
)

var ErrDeviceNotFound = errors.New("device definition not found")

// DeviceStore holds the endpoint and device definitions of each profile.
type DeviceStore interface {
	// Beamline assembles the stored definitions into a beamline config.
	Beamline(ctx context.Context, p *Profile) (config.BeamlineConfig, error)
	// Import replaces all definitions of a profile with b.
	Import(ctx context.Context, profileID int64, b config.BeamlineConfig) error
	Get(ctx context.Context, profileID int64, id string) (config.DeviceConfig, error)
	Delete(ctx context.Context, profileID int64, id string) error
}

// Devices returns a DeviceStore for this database.
func (db *DB) Devices() DeviceStore {
	return &deviceStore{db: db}
}

type deviceStore struct {
	db *DB
}

func (s *deviceStore) Beamline(ctx context.Context, p *Profile) (config.BeamlineConfig, error) {
	b := config.BeamlineConfig{
		Name: p.Beamline,
		Poll: config.PollConfig{IntervalMs: p.PollIntervalMs},
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, timeout_ms, baud_rate
		FROM endpoints WHERE profile_id = ? ORDER BY id
	`, p.ID)
	if err != nil {
		return b, fmt.Errorf("failed to list endpoints: %w", err)
	}
	for rows.Next() {
		var e config.EndpointConfig
		if err := rows.Scan(&e.ID, &e.Address, &e.TimeoutMs, &e.BaudRate); err != nil {
			_ = rows.Close()
			return b, err
		}
		b.Endpoints = append(b.Endpoints, e)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return b, err
	}

	rows, err = s.db.QueryContext(ctx, `
		SELECT definition FROM devices WHERE profile_id = ? ORDER BY position
	`, p.ID)
	if err != nil {
		return b, fmt.Errorf("failed to list devices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return b, err
		}
		var d config.DeviceConfig
		if err := json.Unmarshal([]byte(raw), &d); err != nil {
			return b, fmt.Errorf("failed to decode device definition: %w", err)
		}
		b.Devices = append(b.Devices, d)
	}
	return b, rows.Err()
}

func (s *deviceStore) Import(ctx context.Context, profileID int64, b config.BeamlineConfig) error {
	return s.db.Tx(ctx, func(tx *sql.Tx) error {
		for _, q := range []string{
			`DELETE FROM devices WHERE profile_id = ?`,
			`DELETE FROM endpoints WHERE profile_id = ?`,
		} {
			if _, err := tx.ExecContext(ctx, q, profileID); err != nil {
				return fmt.Errorf("failed to clear definitions: %w", err)
			}
		}

		for _, e := range b.Endpoints {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO endpoints (id, profile_id, address, timeout_ms, baud_rate)
				VALUES (?, ?, ?, ?, ?)
			`, e.ID, profileID, e.Address, e.TimeoutMs, e.BaudRate); err != nil {
				return fmt.Errorf("failed to store endpoint %q: %w", e.ID, err)
			}
		}

		for i, d := range b.Devices {
			def, err := json.Marshal(d)
			if err != nil {
				return fmt.Errorf("failed to encode device %q: %w", d.ID, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO devices (id, profile_id, position, flavor, endpoint, definition)
				VALUES (?, ?, ?, ?, ?, ?)
			`, d.ID, profileID, i, d.Flavor, d.Endpoint, string(def)); err != nil {
				return fmt.Errorf("failed to store device %q: %w", d.ID, err)
			}
		}

		result, err := tx.ExecContext(ctx, `
			UPDATE profiles SET beamline = ?, poll_interval_ms = ?, updated_at = datetime('now')
			WHERE id = ?
		`, b.Name, b.Poll.IntervalMs, profileID)
		if err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		return requireRow(result, ErrProfileNotFound)
	})
}

func (s *deviceStore) Get(ctx context.Context, profileID int64, id string) (config.DeviceConfig, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `
		SELECT definition FROM devices WHERE profile_id = ? AND id = ?
	`, profileID, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return config.DeviceConfig{}, ErrDeviceNotFound
	}
	if err != nil {
		return config.DeviceConfig{}, err
	}

	var d config.DeviceConfig
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return config.DeviceConfig{}, fmt.Errorf("failed to decode device definition: %w", err)
	}
	return d, nil
}

func (s *deviceStore) Delete(ctx context.Context, profileID int64, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM devices WHERE profile_id = ? AND id = ?`, profileID, id)
	if err != nil {
		return err
	}
	return requireRow(result, ErrDeviceNotFound)
}
