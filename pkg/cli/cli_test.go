package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const beamlineFile = `
beamline:
  name: bench
  sim:
    travel_ms: 10
    ramp_ms: 20
  devices:
    - id: fast1
      flavor: armable_valve
      status: {address: 10}
      control: {address: 11}
    - id: fast2
      flavor: armable_valve
      status: {address: 12}
      control: {address: 13}
    - id: gate1
      flavor: valve
      status: {address: 14}
      control: {address: 15}
    - id: cell1
      flavor: pressure_cell
      timeout_ms: 2000
      status: {address: 20}
      setpoint: {address: 21}
      go: {address: 22}
      pressure: {address: 23}
      valves: {a: fast1, b: fast2, c: gate1}
`

type env struct {
	dir  string
	db   string
	file string
}

func newEnv(t *testing.T) env {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "beamline.yaml")
	require.NoError(t, os.WriteFile(file, []byte(beamlineFile), 0o600))
	return env{dir: dir, db: filepath.Join(dir, "beamline.db"), file: file}
}

func (e env) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := Root()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--db", e.db}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestValidate(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "validate", e.file)
	require.NoError(t, err)
	assert.Contains(t, out, `beamline "bench"`)
	assert.Contains(t, out, "4 devices")
	assert.Contains(t, out, "cell1")
}

func TestValidate_Invalid(t *testing.T) {
	e := newEnv(t)
	bad := filepath.Join(e.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("beamline:\n  devices:\n    - id: v1\n      flavor: valve\n"), 0o600))

	_, err := e.run(t, "validate", bad)
	assert.Error(t, err)
}

func TestImportAndDrive(t *testing.T) {
	e := newEnv(t)

	out, err := e.run(t, "import", e.file)
	require.NoError(t, err)
	assert.Contains(t, out, `imported 4 devices into profile "default"`)

	out, err = e.run(t, "--simulate", "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "gate1")
	assert.Contains(t, out, "CLOSED")

	out, err = e.run(t, "--simulate", "do", "gate1", "open")
	require.NoError(t, err)
	assert.Contains(t, out, "OPEN")

	_, err = e.run(t, "--simulate", "do", "gate1", "arm")
	assert.Error(t, err)

	out, err = e.run(t, "--simulate", "go", "cell1", "250")
	require.NoError(t, err)
	assert.Contains(t, out, "reached 250.0")

	_, err = e.run(t, "--simulate", "go", "cell1", "lots")
	assert.Error(t, err)

	_, err = e.run(t, "--simulate", "reset", "cell1")
	require.NoError(t, err)
}

func TestProfiles(t *testing.T) {
	e := newEnv(t)

	_, err := e.run(t, "profile", "create", "lab", "--sim")
	require.NoError(t, err)

	out, err := e.run(t, "profile", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "default")
	assert.Contains(t, out, "lab")

	_, err = e.run(t, "profile", "use", "lab")
	require.NoError(t, err)

	// lab simulates, so no --simulate flag is needed
	_, err = e.run(t, "import", e.file)
	require.NoError(t, err)
	out, err = e.run(t, "devices")
	require.NoError(t, err)
	assert.Contains(t, out, "fast1")

	_, err = e.run(t, "profile", "use", "nope")
	assert.Error(t, err)
}
