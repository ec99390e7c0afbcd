package pressurecell

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urmzd/beamline/pkg/device"
	"github.com/urmzd/beamline/pkg/pv"
	"github.com/urmzd/beamline/pkg/sequence"
	"github.com/urmzd/beamline/pkg/valve"
)

func startCell(t *testing.T, ch Channels, opts ...Option) *Cell {
	t.Helper()
	c := New("cell", ch, opts...)
	require.NoError(t, c.Coordinator().Start(context.Background()))
	t.Cleanup(func() { _ = c.Coordinator().Close() })
	return c
}

func TestGo_ReachesTarget(t *testing.T) {
	pump := NewSimPump(30 * time.Millisecond)
	c := startCell(t, pump.Channels(), WithGoTimeout(time.Second))

	measured, err := c.Go(context.Background(), 1000)

	require.NoError(t, err)
	assert.InDelta(t, 1000, measured, 1e-9)
	assert.Equal(t, []float64{1000}, pump.Setpoint.Writes())
	assert.Equal(t, []float64{1}, pump.Trigger.Writes())
	assert.Equal(t, device.Idle, c.Coordinator().State())
}

func TestGo_IssuesEvenWhenIdle(t *testing.T) {
	pump := NewSimPump(10 * time.Millisecond)
	c := startCell(t, pump.Channels(), WithGoTimeout(time.Second))

	_, err := c.Go(context.Background(), 500)
	require.NoError(t, err)
	_, err = c.Go(context.Background(), 500)
	require.NoError(t, err)

	assert.Len(t, pump.Trigger.Writes(), 2)
}

func TestGo_ToleranceBreach(t *testing.T) {
	pump := NewSimPump(20 * time.Millisecond)
	pump.Offset = 50
	c := startCell(t, pump.Channels(), WithGoTimeout(time.Second))

	measured, err := c.Go(context.Background(), 1000)

	require.ErrorIs(t, err, device.ErrTargetMismatch)
	var tm *TargetMismatchError
	require.True(t, errors.As(err, &tm))
	assert.InDelta(t, 1000, tm.Target, 1e-9)
	assert.InDelta(t, 1050, tm.Measured, 1e-9)
	assert.InDelta(t, DefaultTolerance, tm.Tolerance, 1e-9)
	assert.InDelta(t, 1050, measured, 1e-9)
	assert.False(t, c.Coordinator().Busy())
}

func TestGo_WithinTolerance(t *testing.T) {
	pump := NewSimPump(20 * time.Millisecond)
	pump.Offset = -15
	c := startCell(t, pump.Channels(), WithGoTimeout(time.Second))

	measured, err := c.Go(context.Background(), 1000)

	require.NoError(t, err)
	assert.InDelta(t, 985, measured, 1e-9)
}

func TestGo_CustomTolerance(t *testing.T) {
	pump := NewSimPump(20 * time.Millisecond)
	pump.Offset = 15
	c := startCell(t, pump.Channels(), WithGoTimeout(time.Second), WithTolerance(10))

	_, err := c.Go(context.Background(), 1000)

	assert.ErrorIs(t, err, device.ErrTargetMismatch)
}

func TestGo_Timeout(t *testing.T) {
	ch := Channels{
		Status:   pv.NewSimStatus(device.Idle),
		Setpoint: pv.NewSimCommand(),
		Trigger:  pv.NewSimCommand(),
		Pressure: pv.NewSimValue(0),
	}
	c := startCell(t, ch, WithGoTimeout(50*time.Millisecond))

	_, err := c.Go(context.Background(), 1000)

	assert.ErrorIs(t, err, device.ErrMoveTimeout)
	assert.False(t, c.Coordinator().Busy())
}

func TestGo_IdleRepeatsDoNotComplete(t *testing.T) {
	status := pv.NewSimStatus(device.Idle)
	trigger := pv.NewSimCommand()
	trigger.OnWrite(func(float64) { go status.Set(device.Idle) })
	ch := Channels{
		Status:   status,
		Setpoint: pv.NewSimCommand(),
		Trigger:  trigger,
		Pressure: pv.NewSimValue(0),
	}

	// GO goes out straight after Start, before the subscription's initial
	// IDLE has been delivered.
	c := New("cell", ch, WithGoTimeout(80*time.Millisecond))
	require.NoError(t, c.Coordinator().Start(context.Background()))
	t.Cleanup(func() { _ = c.Coordinator().Close() })

	_, err := c.Go(context.Background(), 1000)

	require.ErrorIs(t, err, device.ErrMoveTimeout)
	assert.NotErrorIs(t, err, device.ErrTargetMismatch)
	assert.Equal(t, []float64{1}, trigger.Writes())
	assert.False(t, c.Coordinator().Busy())
}

func TestGo_RejectedWhileBusy(t *testing.T) {
	pump := NewSimPump(100 * time.Millisecond)
	c := startCell(t, pump.Channels(), WithGoTimeout(time.Second))

	first := c.GoAsync(context.Background(), 800)

	_, err := c.Go(context.Background(), 900)
	assert.ErrorIs(t, err, device.ErrAlreadyMoving)

	second := c.GoAsync(context.Background(), 900)
	require.True(t, second.IsComplete())
	_, err = second.Await()
	assert.ErrorIs(t, err, device.ErrAlreadyMoving)

	measured, err := first.Await()
	require.NoError(t, err)
	assert.InDelta(t, 800, measured, 1e-9)
	assert.Equal(t, []float64{800}, pump.Setpoint.Writes())
}

func TestGo_SetpointWriteFailure(t *testing.T) {
	pump := NewSimPump(10 * time.Millisecond)
	pump.Setpoint.SetError(errors.New("timeout"))
	c := startCell(t, pump.Channels(), WithGoTimeout(time.Second))

	_, err := c.Go(context.Background(), 1000)

	assert.ErrorIs(t, err, device.ErrChannel)
	assert.Empty(t, pump.Trigger.Writes())
	assert.False(t, c.Coordinator().Busy())
}

func TestGoAsync_Cancel(t *testing.T) {
	ch := Channels{
		Status:   pv.NewSimStatus(device.Idle),
		Setpoint: pv.NewSimCommand(),
		Trigger:  pv.NewSimCommand(),
		Pressure: pv.NewSimValue(0),
	}
	c := startCell(t, ch, WithGoTimeout(5*time.Second))

	f := c.GoAsync(context.Background(), 1000)
	require.Eventually(t, c.Coordinator().Busy, time.Second, time.Millisecond)

	f.Cancel()
	_, err := f.Await()

	assert.ErrorIs(t, err, context.Canceled)
	require.Eventually(t, func() bool { return !c.Coordinator().Busy() }, time.Second, time.Millisecond)
}

func TestPressure_ReadFailure(t *testing.T) {
	pump := NewSimPump(10 * time.Millisecond)
	pump.Pressure.SetError(errors.New("offline"))
	c := startCell(t, pump.Channels())

	_, err := c.Pressure(context.Background())

	assert.ErrorIs(t, err, device.ErrChannel)
}

type resetRig struct {
	a, b   *valve.Armable
	c      *valve.Valve
	as, bs *pv.SimStatus
	cs     *pv.SimStatus
	ac, bc *pv.SimCommand
	cc     *pv.SimCommand
}

func newResetRig(t *testing.T, a, b, c device.State) *resetRig {
	t.Helper()
	r := &resetRig{
		as: pv.NewSimStatus(a), bs: pv.NewSimStatus(b), cs: pv.NewSimStatus(c),
		ac: pv.NewSimCommand(), bc: pv.NewSimCommand(), cc: pv.NewSimCommand(),
	}
	const travel = 10 * time.Millisecond
	valve.SimulateArmable(r.as, r.ac, travel)
	valve.SimulateArmable(r.bs, r.bc, travel)
	valve.SimulateSimple(r.cs, r.cc, travel)

	r.a = valve.NewArmable("A", r.as, r.ac, device.WithTimeout(time.Second))
	r.b = valve.NewArmable("B", r.bs, r.bc, device.WithTimeout(time.Second))
	r.c = valve.New("C", r.cs, r.cc, device.WithTimeout(time.Second))

	for _, coord := range []*device.Coordinator{r.a.Coordinator(), r.b.Coordinator(), r.c.Coordinator()} {
		require.NoError(t, coord.Start(context.Background()))
		t.Cleanup(func() { _ = coord.Close() })
	}
	return r
}

func (r *resetRig) valves() Valves { return Valves{A: r.a, B: r.b, C: r.c} }

func TestResetSequence_Order(t *testing.T) {
	r := newResetRig(t, device.Closed, device.Closed, device.Closed)
	c := New("cell", NewSimPump(0).Channels(), WithValves(r.valves()))

	seq, err := c.ResetSequence()
	require.NoError(t, err)

	assert.Equal(t, []string{
		"disarm A", "disarm B",
		"reset A", "reset B", "reset C",
		"close A", "close B", "close C",
	}, seq.Steps())
}

func TestReset_ReturnsValvesToClosed(t *testing.T) {
	r := newResetRig(t, device.ClosedArmed, device.OpenArmed, device.Open)
	c := New("cell", NewSimPump(0).Channels(), WithValves(r.valves()))

	require.NoError(t, c.Reset(context.Background()))

	assert.Equal(t, device.Closed, r.a.Coordinator().State())
	assert.Equal(t, device.Closed, r.b.Coordinator().State())
	assert.Equal(t, device.Closed, r.c.Coordinator().State())

	assert.Equal(t, []float64{valve.CmdDisarm, valve.CmdReset}, r.ac.Writes())
	assert.Equal(t, []float64{valve.CmdDisarm, valve.CmdReset, valve.CmdClose}, r.bc.Writes())
	assert.Equal(t, []float64{valve.CmdReset, valve.CmdClose}, r.cc.Writes())
}

func TestReset_RecoversFaultedValves(t *testing.T) {
	r := newResetRig(t, device.Fault, device.Closed, device.Fault)
	c := New("cell", NewSimPump(0).Channels(), WithValves(r.valves()))

	require.NoError(t, c.Reset(context.Background()))

	assert.Equal(t, device.Closed, r.a.Coordinator().State())
	assert.Equal(t, device.Closed, r.b.Coordinator().State())
	assert.Equal(t, device.Closed, r.c.Coordinator().State())

	assert.Equal(t, []float64{valve.CmdReset}, r.ac.Writes())
	assert.Equal(t, []float64{valve.CmdReset}, r.cc.Writes())
}

func TestReset_FaultThatDoesNotClear(t *testing.T) {
	r := newResetRig(t, device.Closed, device.Closed, device.Closed)
	r.cs.Set(device.Fault)
	require.Eventually(t, func() bool { return r.c.Coordinator().State() == device.Fault }, time.Second, time.Millisecond)
	r.cc.OnWrite(func(float64) {})
	c := New("cell", NewSimPump(0).Channels(), WithValves(r.valves()))

	err := c.Reset(context.Background())

	require.ErrorIs(t, err, device.ErrMoveTimeout)
	var se *sequence.StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "reset C", se.Step)
	assert.Equal(t, 4, se.Index)
}

func TestReset_StopsAtFirstFailure(t *testing.T) {
	r := newResetRig(t, device.ClosedArmed, device.OpenArmed, device.Open)
	r.bc.SetError(errors.New("broken pipe"))
	c := New("cell", NewSimPump(0).Channels(), WithValves(r.valves()))

	err := c.Reset(context.Background())

	require.ErrorIs(t, err, device.ErrChannel)
	var se *sequence.StepError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Index)
	assert.Equal(t, "disarm B", se.Step)
	assert.Equal(t, []string{"disarm A"}, se.Completed)
	assert.Equal(t, device.Closed, r.a.Coordinator().State())
	assert.Empty(t, r.cc.Writes())
}

func TestReset_WithoutValves(t *testing.T) {
	c := New("cell", NewSimPump(0).Channels())

	err := c.Reset(context.Background())

	assert.ErrorIs(t, err, device.ErrUnsupported)
}
