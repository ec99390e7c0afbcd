// Package beamline builds the configured devices, owns their transports and
// exposes them by id to the outer surfaces.
package beamline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/beamline/pkg/config"
	"github.com/urmzd/beamline/pkg/device"
	"github.com/urmzd/beamline/pkg/pressurecell"
	"github.com/urmzd/beamline/pkg/pv"
	"github.com/urmzd/beamline/pkg/valve"
)

// Actions accepted by Do.
const (
	ActionOpen   = "open"
	ActionClose  = "close"
	ActionArm    = "arm"
	ActionDisarm = "disarm"
	ActionReset  = "reset"
	ActionGo     = "go"
)

// DeviceInfo is a snapshot of one device.
type DeviceInfo struct {
	ID       string             `json:"id"`
	Flavor   device.Flavor      `json:"flavor"`
	State    device.State       `json:"state"`
	Busy     bool               `json:"busy"`
	Request  device.RequestKind `json:"request,omitempty"`
	Actions  []string           `json:"actions"`
	Pressure *float64           `json:"pressure,omitempty"`
}

// Options controls how devices are built.
type Options struct {
	// Simulate replaces every endpoint with in-memory simulated hardware.
	Simulate bool
}

// Beamline is the set of running devices.
type Beamline struct {
	name     string
	simulate bool

	valves   map[string]*valve.Valve
	armables map[string]*valve.Armable
	cells    map[string]*pressurecell.Cell
	order    []*device.Coordinator
	clients  []*pv.Client

	subscribers   []chan device.Event
	subscribersMu sync.Mutex
	wg            sync.WaitGroup
}

// New builds and starts every device in cfg. cfg must be validated and
// normalized. On error everything already started is closed.
func New(ctx context.Context, cfg config.BeamlineConfig, opts Options) (*Beamline, error) {
	b := &Beamline{
		name:     cfg.Name,
		simulate: opts.Simulate,
		valves:   make(map[string]*valve.Valve),
		armables: make(map[string]*valve.Armable),
		cells:    make(map[string]*pressurecell.Cell),
	}

	var f factory
	if opts.Simulate {
		f = &simFactory{cfg: cfg}
	} else {
		f = &registerFactory{cfg: cfg, dialled: make(map[string]*pv.Client)}
	}

	err := b.build(ctx, cfg, f)
	b.clients = f.clients()
	if err != nil {
		_ = b.Close()
		return nil, err
	}

	log.Info().
		Str("beamline", b.name).
		Int("devices", len(b.order)).
		Bool("simulate", b.simulate).
		Msg("Beamline started")
	return b, nil
}

func (b *Beamline) build(ctx context.Context, cfg config.BeamlineConfig, f factory) error {
	// Valves first; cells reference them.
	for _, d := range cfg.Devices {
		opts := []device.Option{device.WithTimeout(d.Timeout())}

		switch d.Flavor {
		case config.FlavorValve:
			status, control, err := f.valve(d, valve.SimpleCodes)
			if err != nil {
				return err
			}
			v := valve.New(d.ID, status, control, opts...)
			b.valves[d.ID] = v
			if err := b.start(ctx, v.Coordinator()); err != nil {
				return err
			}
		case config.FlavorArmableValve:
			status, control, err := f.valve(d, valve.ArmableCodes)
			if err != nil {
				return err
			}
			a := valve.NewArmable(d.ID, status, control, opts...)
			b.armables[d.ID] = a
			if err := b.start(ctx, a.Coordinator()); err != nil {
				return err
			}
		}
	}

	for _, d := range cfg.Devices {
		if d.Flavor != config.FlavorPressureCell {
			continue
		}
		ch, err := f.cell(d)
		if err != nil {
			return err
		}

		copts := []pressurecell.Option{
			pressurecell.WithGoTimeout(d.Timeout()),
			pressurecell.WithTolerance(d.Tolerance),
		}
		if d.Valves != nil {
			copts = append(copts, pressurecell.WithValves(pressurecell.Valves{
				A: b.armables[d.Valves.A],
				B: b.armables[d.Valves.B],
				C: b.valves[d.Valves.C],
			}))
		}

		c := pressurecell.New(d.ID, ch, copts...)
		b.cells[d.ID] = c
		if err := b.start(ctx, c.Coordinator()); err != nil {
			return err
		}
	}
	return nil
}

// start starts a coordinator and forwards its events.
func (b *Beamline) start(ctx context.Context, c *device.Coordinator) error {
	if err := c.Start(ctx); err != nil {
		return fmt.Errorf("start %s: %w", c.Name(), err)
	}
	b.order = append(b.order, c)

	events := c.Subscribe()
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for evt := range events {
			b.publish(evt)
		}
	}()
	return nil
}

// Name returns the beamline name.
func (b *Beamline) Name() string { return b.name }

// Simulated reports whether the beamline runs on simulated hardware.
func (b *Beamline) Simulated() bool { return b.simulate }

// Len returns the number of devices.
func (b *Beamline) Len() int { return len(b.order) }

// Devices returns a snapshot of every device, sorted by id.
func (b *Beamline) Devices() []DeviceInfo {
	out := make([]DeviceInfo, 0, len(b.order))
	for _, c := range b.order {
		out = append(out, info(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Device returns one device; cells include a fresh pressure reading.
func (b *Beamline) Device(ctx context.Context, id string) (DeviceInfo, error) {
	c, err := b.coordinator(id)
	if err != nil {
		return DeviceInfo{}, err
	}
	di := info(c)
	if cell, ok := b.cells[id]; ok {
		p, err := cell.Pressure(ctx)
		if err != nil {
			log.Warn().Err(err).Str("device", id).Msg("Pressure read failed")
		} else {
			di.Pressure = &p
		}
	}
	return di, nil
}

// Do runs a named action and returns the resulting state. Reset on a
// pressure cell runs its reset sequence.
func (b *Beamline) Do(ctx context.Context, id, action string) (device.State, error) {
	if v, ok := b.valves[id]; ok {
		switch action {
		case ActionOpen:
			return v.Open(ctx)
		case ActionClose:
			return v.Close(ctx)
		case ActionReset:
			return v.Coordinator().State(), v.Reset(ctx)
		}
		return v.Coordinator().State(), unsupported(id, action)
	}
	if a, ok := b.armables[id]; ok {
		switch action {
		case ActionOpen:
			return a.Open(ctx)
		case ActionClose:
			return a.Close(ctx)
		case ActionArm:
			return a.Arm(ctx)
		case ActionDisarm:
			return a.Disarm(ctx)
		case ActionReset:
			return a.Coordinator().State(), a.Reset(ctx)
		}
		return a.Coordinator().State(), unsupported(id, action)
	}
	if c, ok := b.cells[id]; ok {
		if action == ActionReset {
			return c.Coordinator().State(), c.Reset(ctx)
		}
		return c.Coordinator().State(), unsupported(id, action)
	}
	return device.Unknown, notFound(id)
}

// Go drives a pressure cell to target and returns the measured pressure.
func (b *Beamline) Go(ctx context.Context, id string, target float64) (float64, error) {
	c, err := b.cell(id)
	if err != nil {
		return math.NaN(), err
	}
	return c.Go(ctx, target)
}

// ResetCell runs a pressure cell's reset sequence.
func (b *Beamline) ResetCell(ctx context.Context, id string) error {
	c, err := b.cell(id)
	if err != nil {
		return err
	}
	return c.Reset(ctx)
}

func (b *Beamline) cell(id string) (*pressurecell.Cell, error) {
	if c, ok := b.cells[id]; ok {
		return c, nil
	}
	if _, err := b.coordinator(id); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("%s: %w: not a pressure cell", id, device.ErrUnsupported)
}

func (b *Beamline) coordinator(id string) (*device.Coordinator, error) {
	for _, c := range b.order {
		if c.Name() == id {
			return c, nil
		}
	}
	return nil, notFound(id)
}

// Close stops every device, waits for event forwarding to drain and closes
// the transports.
func (b *Beamline) Close() error {
	var errs []error
	for _, c := range b.order {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", c.Name(), err))
		}
	}
	b.wg.Wait()

	for _, cl := range b.clients {
		if err := cl.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", cl.Endpoint(), err))
		}
	}

	b.subscribersMu.Lock()
	for _, ch := range b.subscribers {
		close(ch)
	}
	b.subscribers = nil
	b.subscribersMu.Unlock()

	return errors.Join(errs...)
}

// --- device.EventSubscriber interface ---

func (b *Beamline) Subscribe() chan device.Event {
	ch := make(chan device.Event, 64)
	b.subscribersMu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.subscribersMu.Unlock()
	return ch
}

func (b *Beamline) Unsubscribe(ch chan device.Event) {
	b.subscribersMu.Lock()
	defer b.subscribersMu.Unlock()

	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

func (b *Beamline) publish(evt device.Event) {
	b.subscribersMu.Lock()
	defer b.subscribersMu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
		}
	}
}

func info(c *device.Coordinator) DeviceInfo {
	kind, busy := c.Pending()
	return DeviceInfo{
		ID:      c.Name(),
		Flavor:  c.Flavor(),
		State:   c.State(),
		Busy:    busy,
		Request: kind,
		Actions: actions(c.Flavor()),
	}
}

func actions(f device.Flavor) []string {
	switch f {
	case device.FlavorValve:
		return []string{ActionOpen, ActionClose, ActionReset}
	case device.FlavorArmableValve:
		return []string{ActionOpen, ActionClose, ActionArm, ActionDisarm, ActionReset}
	case device.FlavorPressureCell:
		return []string{ActionGo, ActionReset}
	}
	return nil
}

func notFound(id string) error {
	return fmt.Errorf("%s: %w", id, device.ErrNotFound)
}

func unsupported(id, action string) error {
	return fmt.Errorf("%s: %w: %s", id, device.ErrUnsupported, action)
}
