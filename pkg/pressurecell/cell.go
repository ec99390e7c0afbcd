// Package pressurecell implements a pressure cell: a GO command that drives
// the pump towards a setpoint, followed by a tolerance check on the measured
// pump pressure.
package pressurecell

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/urmzd/beamline/pkg/async"
	"github.com/urmzd/beamline/pkg/device"
	"github.com/urmzd/beamline/pkg/sequence"
	"github.com/urmzd/beamline/pkg/valve"
)

const (
	// DefaultTolerance is the accepted |measured - target| after GO.
	DefaultTolerance = 20.0

	// DefaultGoTimeout bounds one GO move.
	DefaultGoTimeout = 60 * time.Second
)

// Table classifies notifications for a pressure cell. The cell declares no
// fault state. IDLE is both the resting and the terminal state, so a GO only
// completes on an IDLE that follows BUSY.
var Table = device.Table{
	Flavor: device.FlavorPressureCell,
	Transitions: map[device.RequestKind]device.Transition{
		device.RequestGo: {
			Terminal:            []device.State{device.Idle},
			Intermediate:        []device.State{device.Busy},
			RequireIntermediate: true,
		},
	},
}

// StatusCodes maps the busy register to states.
var StatusCodes = map[uint16]device.State{
	0: device.Idle,
	1: device.Busy,
}

// TargetMismatchError reports a completed GO whose pump pressure is outside
// tolerance.
type TargetMismatchError struct {
	Device    string
	Target    float64
	Measured  float64
	Tolerance float64
}

func (e *TargetMismatchError) Error() string {
	return fmt.Sprintf("%s: pump pressure %g outside %g of target %g", e.Device, e.Measured, e.Tolerance, e.Target)
}

func (e *TargetMismatchError) Is(target error) bool { return target == device.ErrTargetMismatch }

// Channels groups the process variables a cell reads and writes.
type Channels struct {
	Status   device.StatusChannel
	Setpoint device.CommandChannel
	Trigger  device.CommandChannel
	Pressure device.ValueChannel
}

// Valves are the cell's isolation valves, used by Reset.
type Valves struct {
	A, B *valve.Armable
	C    *valve.Valve
}

// Cell is a pressure cell.
type Cell struct {
	coord     *device.Coordinator
	ch        Channels
	valves    *Valves
	tolerance float64
	timeout   time.Duration
	coordOpts []device.Option
}

// Option configures a Cell.
type Option func(*Cell)

// WithTolerance sets the accepted pressure deviation after GO.
func WithTolerance(t float64) Option {
	return func(c *Cell) {
		if t > 0 {
			c.tolerance = t
		}
	}
}

// WithGoTimeout sets the GO move timeout.
func WithGoTimeout(d time.Duration) Option {
	return func(c *Cell) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithValves attaches the valves that Reset operates on.
func WithValves(v Valves) Option {
	return func(c *Cell) {
		c.valves = &v
	}
}

// WithCoordinatorOptions passes options through to the move coordinator.
func WithCoordinatorOptions(opts ...device.Option) Option {
	return func(c *Cell) {
		c.coordOpts = append(c.coordOpts, opts...)
	}
}

// New creates a pressure cell. The coordinator is not started.
func New(name string, ch Channels, opts ...Option) *Cell {
	c := &Cell{
		ch:        ch,
		tolerance: DefaultTolerance,
		timeout:   DefaultGoTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.coord = device.NewCoordinator(name, Table, ch.Status, append([]device.Option{device.WithTimeout(c.timeout)}, c.coordOpts...)...)
	return c
}

// Coordinator exposes the underlying move coordinator.
func (c *Cell) Coordinator() *device.Coordinator { return c.coord }

// Tolerance returns the configured tolerance.
func (c *Cell) Tolerance() float64 { return c.tolerance }

// Go writes target to the setpoint, triggers GO and waits for the cell to
// return to IDLE, then checks the pump pressure against target. The measured
// pressure is returned whenever it was read.
func (c *Cell) Go(ctx context.Context, target float64) (float64, error) {
	if _, err := c.coord.Move(ctx, c.goRequest(target)); err != nil {
		return math.NaN(), err
	}
	return c.check(ctx, target)
}

// GoAsync is Go without blocking. Rejections resolve the future immediately.
func (c *Cell) GoAsync(ctx context.Context, target float64) *async.Future[float64] {
	move := c.coord.MoveAsync(ctx, c.goRequest(target))
	if move.IsComplete() {
		if _, err := move.Await(); err != nil {
			return async.Resolved(math.NaN(), err)
		}
	}

	f := async.Go(ctx, func(ctx context.Context) (float64, error) {
		select {
		case <-move.Done():
		case <-ctx.Done():
			move.Cancel()
		}
		if _, err := move.Await(); err != nil {
			return math.NaN(), err
		}
		return c.check(ctx, target)
	})
	return f
}

// Pressure reads the current pump pressure.
func (c *Cell) Pressure(ctx context.Context) (float64, error) {
	p, err := c.ch.Pressure.Read(ctx)
	if err != nil {
		return math.NaN(), &device.ChannelError{Device: c.coord.Name(), Op: "read pressure", Err: err}
	}
	return p, nil
}

// ResetSequence returns the reset sequence: disarm A and B, reset all
// three valves, then close them. A faulted A or B skips its disarm; each
// reset step waits for a faulted valve to clear before the sequence moves on.
func (c *Cell) ResetSequence() (*sequence.Sequence, error) {
	if c.valves == nil {
		return nil, fmt.Errorf("%s: %w: no valves attached", c.coord.Name(), device.ErrUnsupported)
	}
	v := c.valves
	a, b, cv := v.A.Coordinator().Name(), v.B.Coordinator().Name(), v.C.Coordinator().Name()

	return sequence.New(c.coord.Name()+" reset",
		sequence.Step{Name: "disarm " + a, Run: disarmUnlessFaulted(v.A)},
		sequence.Step{Name: "disarm " + b, Run: disarmUnlessFaulted(v.B)},
		sequence.Step{Name: "reset " + a, Run: v.A.Reset},
		sequence.Step{Name: "reset " + b, Run: v.B.Reset},
		sequence.Step{Name: "reset " + cv, Run: v.C.Reset},
		sequence.Step{Name: "close " + a, Run: discard(v.A.Close)},
		sequence.Step{Name: "close " + b, Run: discard(v.B.Close)},
		sequence.Step{Name: "close " + cv, Run: discard(v.C.Close)},
	), nil
}

// Reset runs the reset sequence. A failing step stops it; earlier steps are
// not undone.
func (c *Cell) Reset(ctx context.Context) error {
	seq, err := c.ResetSequence()
	if err != nil {
		return err
	}
	return seq.Run(ctx)
}

func (c *Cell) goRequest(target float64) device.MoveRequest {
	return device.MoveRequest{
		Kind:        device.RequestGo,
		Target:      device.Idle,
		Timeout:     c.timeout,
		AlwaysIssue: true,
		Action: func(ctx context.Context) error {
			if err := c.ch.Setpoint.Write(ctx, target); err != nil {
				return fmt.Errorf("write setpoint: %w", err)
			}
			if err := c.ch.Trigger.Write(ctx, 1); err != nil {
				return fmt.Errorf("write go: %w", err)
			}
			return nil
		},
	}
}

func (c *Cell) check(ctx context.Context, target float64) (float64, error) {
	measured, err := c.Pressure(ctx)
	if err != nil {
		return measured, err
	}
	if math.Abs(measured-target) > c.tolerance {
		err := &TargetMismatchError{
			Device:    c.coord.Name(),
			Target:    target,
			Measured:  measured,
			Tolerance: c.tolerance,
		}
		log.Warn().Str("device", c.coord.Name()).Float64("target", target).Float64("measured", measured).Msg("Pressure outside tolerance")
		return measured, err
	}
	return measured, nil
}

func disarmUnlessFaulted(v *valve.Armable) func(context.Context) error {
	return func(ctx context.Context) error {
		coord := v.Coordinator()
		if valve.ArmableTable.IsFault(coord.State()) {
			log.Debug().Str("device", coord.Name()).Msg("Faulted, disarm skipped")
			return nil
		}
		_, err := v.Disarm(ctx)
		return err
	}
}

func discard(op func(context.Context) (device.State, error)) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := op(ctx)
		return err
	}
}
