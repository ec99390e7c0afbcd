package config

import "time"

// Defaults applied by Normalize.
const (
	DefaultEndpointTimeoutMs = 1000
	DefaultValveTimeoutMs    = 5000
	DefaultCellTimeoutMs     = 60000
	DefaultTolerance         = 20.0
	DefaultPollIntervalMs    = 100
	DefaultTravelMs          = 200
	DefaultRampMs            = 1000
)

// Normalize fills in defaults. It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	b := &cfg.Beamline

	for i := range b.Endpoints {
		if b.Endpoints[i].TimeoutMs == 0 {
			b.Endpoints[i].TimeoutMs = DefaultEndpointTimeoutMs
		}
	}

	for i := range b.Devices {
		d := &b.Devices[i]
		if d.UnitID == 0 {
			d.UnitID = 1
		}
		if d.TimeoutMs == 0 {
			d.TimeoutMs = DefaultValveTimeoutMs
			if d.Flavor == FlavorPressureCell {
				d.TimeoutMs = DefaultCellTimeoutMs
			}
		}
		if d.Flavor == FlavorPressureCell && d.Tolerance == 0 {
			d.Tolerance = DefaultTolerance
		}
		for _, r := range []*RegisterConfig{d.Status, d.Control, d.Setpoint, d.Go, d.Pressure} {
			if r != nil && r.Scale == 0 {
				r.Scale = 1
			}
		}
	}

	if b.Poll.IntervalMs == 0 {
		b.Poll.IntervalMs = DefaultPollIntervalMs
	}
	if b.Sim.TravelMs == 0 {
		b.Sim.TravelMs = DefaultTravelMs
	}
	if b.Sim.RampMs == 0 {
		b.Sim.RampMs = DefaultRampMs
	}
}

// Timeout returns the device move timeout.
func (d DeviceConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutMs) * time.Millisecond
}

// Timeout returns the endpoint request timeout.
func (e EndpointConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutMs) * time.Millisecond
}

// Interval returns the status poll interval.
func (p PollConfig) Interval() time.Duration {
	return time.Duration(p.IntervalMs) * time.Millisecond
}
