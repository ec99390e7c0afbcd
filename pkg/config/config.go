// Package config describes a beamline: the Modbus endpoints it talks to and
// the devices behind them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Beamline BeamlineConfig `yaml:"beamline"`
}

type BeamlineConfig struct {
	Name      string           `yaml:"name" json:"name"`
	Endpoints []EndpointConfig `yaml:"endpoints" json:"endpoints"`
	Devices   []DeviceConfig   `yaml:"devices" json:"devices"`
	Poll      PollConfig       `yaml:"poll" json:"poll"`
	Sim       SimConfig        `yaml:"sim" json:"sim"`
}

// ---- ENDPOINT ----

// EndpointConfig is one Modbus connection. Address is host:port for TCP or
// rtu:///dev/ttyX for a serial line.
type EndpointConfig struct {
	ID        string `yaml:"id" json:"id"`
	Address   string `yaml:"address" json:"address"`
	TimeoutMs int    `yaml:"timeout_ms" json:"timeout_ms"`
	BaudRate  int    `yaml:"baud_rate" json:"baud_rate,omitempty"`
}

// ---- DEVICE ----

type DeviceConfig struct {
	ID        string `yaml:"id" json:"id"`
	Flavor    string `yaml:"flavor" json:"flavor"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	UnitID    uint8  `yaml:"unit_id" json:"unit_id"`
	TimeoutMs int    `yaml:"timeout_ms" json:"timeout_ms"`

	// valves
	Status  *RegisterConfig `yaml:"status" json:"status,omitempty"`
	Control *RegisterConfig `yaml:"control" json:"control,omitempty"`

	// pressure cells (Status is the busy register)
	Setpoint  *RegisterConfig `yaml:"setpoint" json:"setpoint,omitempty"`
	Go        *RegisterConfig `yaml:"go" json:"go,omitempty"`
	Pressure  *RegisterConfig `yaml:"pressure" json:"pressure,omitempty"`
	Tolerance float64         `yaml:"tolerance" json:"tolerance,omitempty"`
	Valves    *CellValves     `yaml:"valves" json:"valves,omitempty"`
}

// RegisterConfig locates one holding register.
type RegisterConfig struct {
	Address uint16  `yaml:"address" json:"address"`
	Scale   float64 `yaml:"scale" json:"scale,omitempty"`
	Signed  bool    `yaml:"signed" json:"signed,omitempty"`
}

// CellValves names the valves a pressure cell resets. A and B are armable,
// C is a simple valve.
type CellValves struct {
	A string `yaml:"a" json:"a"`
	B string `yaml:"b" json:"b"`
	C string `yaml:"c" json:"c"`
}

// ---- POLL / SIM ----

type PollConfig struct {
	IntervalMs int `yaml:"interval_ms" json:"interval_ms"`
}

// SimConfig tunes the simulated hardware used when no endpoint is dialled.
type SimConfig struct {
	TravelMs int `yaml:"travel_ms" json:"travel_ms"`
	RampMs   int `yaml:"ramp_ms" json:"ramp_ms"`
}

// Flavor names accepted in DeviceConfig.Flavor.
const (
	FlavorValve        = "valve"
	FlavorArmableValve = "armable_valve"
	FlavorPressureCell = "pressure_cell"
)

// Load reads a YAML beamline file. It does not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML. Unknown keys are rejected.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("parse config: empty document")
		}
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Device returns the device with the given id.
func (b *BeamlineConfig) Device(id string) (DeviceConfig, bool) {
	for _, d := range b.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return DeviceConfig{}, false
}

// Endpoint returns the endpoint with the given id.
func (b *BeamlineConfig) Endpoint(id string) (EndpointConfig, bool) {
	for _, e := range b.Endpoints {
		if e.ID == id {
			return e, true
		}
	}
	return EndpointConfig{}, false
}
