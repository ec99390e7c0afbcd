package config

import (
	"fmt"
	"strings"
)

// Validate checks configuration correctness.
// It performs declarative validation only and does not mutate cfg.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	b := &cfg.Beamline

	endpoints := make(map[string]bool, len(b.Endpoints))
	for _, e := range b.Endpoints {
		if e.ID == "" {
			return fmt.Errorf("endpoint with address %q has no id", e.Address)
		}
		if endpoints[e.ID] {
			return fmt.Errorf("endpoint %q defined twice", e.ID)
		}
		if e.Address == "" {
			return fmt.Errorf("endpoint %q: address is required", e.ID)
		}
		if e.TimeoutMs < 0 {
			return fmt.Errorf("endpoint %q: timeout_ms must not be negative", e.ID)
		}
		if e.BaudRate != 0 && !strings.HasPrefix(e.Address, "rtu://") {
			return fmt.Errorf("endpoint %q: baud_rate is only valid for rtu:// addresses", e.ID)
		}
		endpoints[e.ID] = true
	}

	flavors := make(map[string]string, len(b.Devices))
	for _, d := range b.Devices {
		if d.ID == "" {
			return fmt.Errorf("device without id")
		}
		if _, dup := flavors[d.ID]; dup {
			return fmt.Errorf("device %q defined twice", d.ID)
		}
		flavors[d.ID] = d.Flavor

		if d.Endpoint != "" && !endpoints[d.Endpoint] {
			return fmt.Errorf("device %q: unknown endpoint %q", d.ID, d.Endpoint)
		}
		if d.TimeoutMs < 0 {
			return fmt.Errorf("device %q: timeout_ms must not be negative", d.ID)
		}
		if err := validateRegisters(d); err != nil {
			return err
		}
	}

	// Cell valve references need the full device list.
	for _, d := range b.Devices {
		if d.Flavor != FlavorPressureCell || d.Valves == nil {
			continue
		}
		refs := []struct {
			slot, id, want string
		}{
			{"a", d.Valves.A, FlavorArmableValve},
			{"b", d.Valves.B, FlavorArmableValve},
			{"c", d.Valves.C, FlavorValve},
		}
		for _, r := range refs {
			got, ok := flavors[r.id]
			if !ok {
				return fmt.Errorf("device %q: valve %s references unknown device %q", d.ID, r.slot, r.id)
			}
			if got != r.want {
				return fmt.Errorf("device %q: valve %s (%q) must be %s, not %s", d.ID, r.slot, r.id, r.want, got)
			}
		}
	}

	if b.Poll.IntervalMs < 0 {
		return fmt.Errorf("poll.interval_ms must not be negative")
	}
	return nil
}

func validateRegisters(d DeviceConfig) error {
	need := func(name string, r *RegisterConfig) error {
		if r == nil {
			return fmt.Errorf("device %q: %s register is required for %s", d.ID, name, d.Flavor)
		}
		if r.Scale < 0 {
			return fmt.Errorf("device %q: %s scale must not be negative", d.ID, name)
		}
		return nil
	}
	forbid := func(name string, present bool) error {
		if present {
			return fmt.Errorf("device %q: %s is not valid for %s", d.ID, name, d.Flavor)
		}
		return nil
	}

	switch d.Flavor {
	case FlavorValve, FlavorArmableValve:
		for _, err := range []error{
			need("status", d.Status),
			need("control", d.Control),
			forbid("setpoint", d.Setpoint != nil),
			forbid("go", d.Go != nil),
			forbid("pressure", d.Pressure != nil),
			forbid("valves", d.Valves != nil),
			forbid("tolerance", d.Tolerance != 0),
		} {
			if err != nil {
				return err
			}
		}
	case FlavorPressureCell:
		for _, err := range []error{
			need("status", d.Status),
			need("setpoint", d.Setpoint),
			need("go", d.Go),
			need("pressure", d.Pressure),
			forbid("control", d.Control != nil),
		} {
			if err != nil {
				return err
			}
		}
		if d.Tolerance < 0 {
			return fmt.Errorf("device %q: tolerance must not be negative", d.ID)
		}
	default:
		return fmt.Errorf("device %q: unknown flavor %q", d.ID, d.Flavor)
	}
	return nil
}
