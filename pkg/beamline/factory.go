package beamline

import (
	"fmt"
	"time"

	"github.com/urmzd/beamline/pkg/config"
	"github.com/urmzd/beamline/pkg/device"
	"github.com/urmzd/beamline/pkg/pressurecell"
	"github.com/urmzd/beamline/pkg/pv"
	"github.com/urmzd/beamline/pkg/valve"
)

// factory produces the process-variable channels for one device.
type factory interface {
	valve(d config.DeviceConfig, codes map[uint16]device.State) (device.StatusChannel, device.CommandChannel, error)
	cell(d config.DeviceConfig) (pressurecell.Channels, error)
	clients() []*pv.Client
}

// ---- Modbus registers ----

type registerFactory struct {
	cfg     config.BeamlineConfig
	dialled map[string]*pv.Client
	order   []*pv.Client
}

// client dials an endpoint once and shares the connection between devices.
func (f *registerFactory) client(d config.DeviceConfig) (*pv.Client, error) {
	if d.Endpoint == "" {
		return nil, fmt.Errorf("device %q: no endpoint configured", d.ID)
	}
	if c, ok := f.dialled[d.Endpoint]; ok {
		return c, nil
	}
	ep, ok := f.cfg.Endpoint(d.Endpoint)
	if !ok {
		return nil, fmt.Errorf("device %q: unknown endpoint %q", d.ID, d.Endpoint)
	}

	c, err := pv.Dial(pv.Config{
		Endpoint: ep.Address,
		Timeout:  ep.Timeout(),
		BaudRate: ep.BaudRate,
	})
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: %w", ep.ID, err)
	}
	f.dialled[d.Endpoint] = c
	f.order = append(f.order, c)
	return c, nil
}

func (f *registerFactory) status(c pv.RegisterClient, d config.DeviceConfig, codes map[uint16]device.State) *pv.StatusRegister {
	return &pv.StatusRegister{
		Client:   c,
		UnitID:   d.UnitID,
		Addr:     d.Status.Address,
		Codes:    codes,
		Interval: pollOrDefault(f.cfg.Poll.Interval()),
	}
}

func (f *registerFactory) valve(d config.DeviceConfig, codes map[uint16]device.State) (device.StatusChannel, device.CommandChannel, error) {
	c, err := f.client(d)
	if err != nil {
		return nil, nil, err
	}
	control := &pv.CommandRegister{Client: c, UnitID: d.UnitID, Addr: d.Control.Address, Scale: d.Control.Scale}
	return f.status(c, d, codes), control, nil
}

func (f *registerFactory) cell(d config.DeviceConfig) (pressurecell.Channels, error) {
	c, err := f.client(d)
	if err != nil {
		return pressurecell.Channels{}, err
	}
	return pressurecell.Channels{
		Status:   f.status(c, d, pressurecell.StatusCodes),
		Setpoint: &pv.CommandRegister{Client: c, UnitID: d.UnitID, Addr: d.Setpoint.Address, Scale: d.Setpoint.Scale},
		Trigger:  &pv.CommandRegister{Client: c, UnitID: d.UnitID, Addr: d.Go.Address, Scale: d.Go.Scale},
		Pressure: &pv.ValueRegister{
			Client: c,
			UnitID: d.UnitID,
			Addr:   d.Pressure.Address,
			Scale:  d.Pressure.Scale,
			Signed: d.Pressure.Signed,
		},
	}, nil
}

func (f *registerFactory) clients() []*pv.Client { return f.order }

// ---- simulated hardware ----

type simFactory struct {
	cfg config.BeamlineConfig
}

func (f *simFactory) travel() time.Duration {
	return time.Duration(f.cfg.Sim.TravelMs) * time.Millisecond
}

func (f *simFactory) valve(d config.DeviceConfig, codes map[uint16]device.State) (device.StatusChannel, device.CommandChannel, error) {
	status := pv.NewSimStatus(device.Closed)
	control := pv.NewSimCommand()
	if d.Flavor == config.FlavorArmableValve {
		valve.SimulateArmable(status, control, f.travel())
	} else {
		valve.SimulateSimple(status, control, f.travel())
	}
	return status, control, nil
}

func (f *simFactory) cell(config.DeviceConfig) (pressurecell.Channels, error) {
	pump := pressurecell.NewSimPump(time.Duration(f.cfg.Sim.RampMs) * time.Millisecond)
	return pump.Channels(), nil
}

func (f *simFactory) clients() []*pv.Client { return nil }

func pollOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return pv.DefaultPollInterval
	}
	return d
}
