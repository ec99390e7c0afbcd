// Package valve implements the simple and armable valve flavors on top of
// the shared move coordinator.
package valve

import (
	"context"
	"fmt"

	"github.com/urmzd/beamline/pkg/async"
	"github.com/urmzd/beamline/pkg/device"
)

// Valve is a simple two-state valve.
type Valve struct {
	coord   *device.Coordinator
	control device.CommandChannel
}

// New creates a simple valve. The coordinator is not started.
func New(name string, status device.StatusChannel, control device.CommandChannel, opts ...device.Option) *Valve {
	return &Valve{
		coord:   device.NewCoordinator(name, SimpleTable, status, opts...),
		control: control,
	}
}

// Coordinator exposes the underlying move coordinator.
func (v *Valve) Coordinator() *device.Coordinator { return v.coord }

// Open drives the valve to OPEN.
func (v *Valve) Open(ctx context.Context) (device.State, error) {
	return v.coord.Move(ctx, request(v.control, device.RequestOpen, device.Open, CmdOpen))
}

// OpenAsync is Open without blocking.
func (v *Valve) OpenAsync(ctx context.Context) *async.Future[device.State] {
	return v.coord.MoveAsync(ctx, request(v.control, device.RequestOpen, device.Open, CmdOpen))
}

// Close drives the valve to CLOSED.
func (v *Valve) Close(ctx context.Context) (device.State, error) {
	return v.coord.Move(ctx, request(v.control, device.RequestClose, device.Closed, CmdClose))
}

// CloseAsync is Close without blocking.
func (v *Valve) CloseAsync(ctx context.Context) *async.Future[device.State] {
	return v.coord.MoveAsync(ctx, request(v.control, device.RequestClose, device.Closed, CmdClose))
}

// Reset writes the reset command, bypassing the guard. A faulted valve is
// then waited on until it reports a non-fault state.
func (v *Valve) Reset(ctx context.Context) error {
	return v.coord.Reset(ctx, v.control, CmdReset)
}

// Armable is a valve that can be armed in either position.
type Armable struct {
	coord   *device.Coordinator
	control device.CommandChannel
}

// NewArmable creates an armable valve. The coordinator is not started.
func NewArmable(name string, status device.StatusChannel, control device.CommandChannel, opts ...device.Option) *Armable {
	return &Armable{
		coord:   device.NewCoordinator(name, ArmableTable, status, opts...),
		control: control,
	}
}

// Coordinator exposes the underlying move coordinator.
func (a *Armable) Coordinator() *device.Coordinator { return a.coord }

// Open drives the valve to OPEN.
func (a *Armable) Open(ctx context.Context) (device.State, error) {
	return a.coord.Move(ctx, request(a.control, device.RequestOpen, device.Open, CmdOpen))
}

// OpenAsync is Open without blocking.
func (a *Armable) OpenAsync(ctx context.Context) *async.Future[device.State] {
	return a.coord.MoveAsync(ctx, request(a.control, device.RequestOpen, device.Open, CmdOpen))
}

// Close drives the valve to CLOSED.
func (a *Armable) Close(ctx context.Context) (device.State, error) {
	return a.coord.Move(ctx, request(a.control, device.RequestClose, device.Closed, CmdClose))
}

// CloseAsync is Close without blocking.
func (a *Armable) CloseAsync(ctx context.Context) *async.Future[device.State] {
	return a.coord.MoveAsync(ctx, request(a.control, device.RequestClose, device.Closed, CmdClose))
}

// Arm arms the valve in its current position: CLOSED becomes CLOSED_ARMED,
// OPEN becomes OPEN_ARMED.
func (a *Armable) Arm(ctx context.Context) (device.State, error) {
	req, err := a.armRequest()
	if err != nil {
		return a.coord.State(), err
	}
	return a.coord.Move(ctx, req)
}

// ArmAsync is Arm without blocking.
func (a *Armable) ArmAsync(ctx context.Context) *async.Future[device.State] {
	req, err := a.armRequest()
	if err != nil {
		return async.Resolved(a.coord.State(), err)
	}
	return a.coord.MoveAsync(ctx, req)
}

// Disarm returns an armed valve to its unarmed position.
func (a *Armable) Disarm(ctx context.Context) (device.State, error) {
	req, err := a.disarmRequest()
	if err != nil {
		return a.coord.State(), err
	}
	return a.coord.Move(ctx, req)
}

// DisarmAsync is Disarm without blocking.
func (a *Armable) DisarmAsync(ctx context.Context) *async.Future[device.State] {
	req, err := a.disarmRequest()
	if err != nil {
		return async.Resolved(a.coord.State(), err)
	}
	return a.coord.MoveAsync(ctx, req)
}

// Reset writes the reset command, bypassing the guard. A faulted valve is
// then waited on until it reports a non-fault state.
func (a *Armable) Reset(ctx context.Context) error {
	return a.coord.Reset(ctx, a.control, CmdReset)
}

func (a *Armable) armRequest() (device.MoveRequest, error) {
	s := a.coord.State()
	target, ok := armTarget(s)
	if !ok {
		return device.MoveRequest{}, a.positionError("arm", s)
	}
	return request(a.control, device.RequestArm, target, CmdArm), nil
}

func (a *Armable) disarmRequest() (device.MoveRequest, error) {
	s := a.coord.State()
	target, ok := disarmTarget(s)
	if !ok {
		return device.MoveRequest{}, a.positionError("disarm", s)
	}
	return request(a.control, device.RequestDisarm, target, CmdDisarm), nil
}

func (a *Armable) positionError(op string, s device.State) error {
	if ArmableTable.IsFault(s) {
		return fmt.Errorf("%s: %w", a.coord.Name(), device.ErrDeviceFault)
	}
	return fmt.Errorf("%s: %w: cannot %s from %s", a.coord.Name(), device.ErrUnsupported, op, s)
}

func request(ch device.CommandChannel, kind device.RequestKind, target device.State, value float64) device.MoveRequest {
	return device.MoveRequest{
		Kind:   kind,
		Target: target,
		Action: func(ctx context.Context) error {
			return ch.Write(ctx, value)
		},
	}
}
