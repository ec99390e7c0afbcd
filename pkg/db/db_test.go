package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/beamline/pkg/config"
)

func openTemp(t *testing.T) *DB {
	t.Helper()
	db, err := OpenAndMigrate(context.Background(), filepath.Join(t.TempDir(), "beamline.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	require.NoError(t, db.Migrate(ctx))
	v, err := db.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(migrations), v)
}

func TestBootstrap_DefaultProfile(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	cfg, err := db.ActiveConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "default", cfg.Profile.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.APIAddress())
	assert.Empty(t, cfg.Beamline.Devices)
	assert.False(t, cfg.Simulate())

	// Bootstrapping twice keeps one profile.
	require.NoError(t, db.Bootstrap(ctx))
	profiles, err := db.Profiles().List(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 1)
}

func TestImportRoundTrip(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "beamline.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
beamline:
  name: i22
  poll:
    interval_ms: 50
  endpoints:
    - id: plc1
      address: 10.0.0.5:502
  devices:
    - id: gate1
      flavor: valve
      endpoint: plc1
      status: {address: 14}
      control: {address: 15}
    - id: cell1
      flavor: pressure_cell
      endpoint: plc1
      status: {address: 20}
      setpoint: {address: 21, scale: 10}
      go: {address: 22}
      pressure: {address: 23, scale: 10, signed: true}
`), 0o600))

	require.NoError(t, db.ImportFile(ctx, path))

	cfg, err := db.ActiveConfig(ctx)
	require.NoError(t, err)
	b := cfg.Beamline
	assert.Equal(t, "i22", b.Name)
	assert.Equal(t, 50, b.Poll.IntervalMs)
	require.Len(t, b.Endpoints, 1)
	assert.Equal(t, config.DefaultEndpointTimeoutMs, b.Endpoints[0].TimeoutMs)

	require.Len(t, b.Devices, 2)
	assert.Equal(t, "gate1", b.Devices[0].ID)
	cell := b.Devices[1]
	assert.Equal(t, config.FlavorPressureCell, cell.Flavor)
	assert.True(t, cell.Pressure.Signed)
	assert.InDelta(t, 10, cell.Setpoint.Scale, 1e-9)
	assert.InDelta(t, config.DefaultTolerance, cell.Tolerance, 1e-9)

	d, err := db.Devices().Get(ctx, cfg.Profile.ID, "gate1")
	require.NoError(t, err)
	assert.Equal(t, uint16(15), d.Control.Address)

	// A second import replaces the first.
	require.NoError(t, db.Devices().Import(ctx, cfg.Profile.ID, config.BeamlineConfig{Name: "empty"}))
	cfg, err = db.ActiveConfig(ctx)
	require.NoError(t, err)
	assert.Empty(t, cfg.Beamline.Devices)
	assert.Empty(t, cfg.Beamline.Endpoints)
}

func TestImportFile_Invalid(t *testing.T) {
	db := openTemp(t)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
beamline:
  devices:
    - id: x
      flavor: shutter
`), 0o600))

	assert.Error(t, db.ImportFile(context.Background(), path))
}

func TestDevices_GetAndDeleteMissing(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	p, err := db.Profiles().GetActive(ctx)
	require.NoError(t, err)

	_, err = db.Devices().Get(ctx, p.ID, "nope")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
	assert.ErrorIs(t, db.Devices().Delete(ctx, p.ID, "nope"), ErrDeviceNotFound)
}

func TestProfiles_SetActive(t *testing.T) {
	db := openTemp(t)
	ctx := context.Background()

	lab := &Profile{Name: "lab", Simulate: true}
	require.NoError(t, db.Profiles().Create(ctx, lab))
	require.NoError(t, db.Profiles().SetActive(ctx, lab.ID))

	cfg, err := db.ActiveConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lab", cfg.Profile.Name)
	assert.True(t, cfg.Simulate())
	assert.Nil(t, cfg.APIServer)

	assert.ErrorIs(t, db.Profiles().SetActive(ctx, 999), ErrProfileNotFound)

	lab.Beamline = "b16"
	lab.IsActive = true
	require.NoError(t, db.Profiles().Update(ctx, lab))
	got, err := db.Profiles().GetByName(ctx, "lab")
	require.NoError(t, err)
	assert.Equal(t, "b16", got.Beamline)
}
