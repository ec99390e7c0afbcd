package pressurecell

import (
	"context"
	"sync"
	"time"

	"github.com/urmzd/beamline/pkg/device"
	"github.com/urmzd/beamline/pkg/pv"
)

// SimPump drives simulated cell channels. A GO trigger marks the cell BUSY,
// ramps the pump pressure to the setpoint plus Offset over Ramp, then marks
// it IDLE.
type SimPump struct {
	Status   *pv.SimStatus
	Setpoint *pv.SimCommand
	Trigger  *pv.SimCommand
	Pressure *pv.SimValue

	Ramp   time.Duration
	Steps  int
	Offset float64 // added to the reached pressure, for tolerance tests

	mu     sync.Mutex
	target float64
}

// NewSimPump creates simulated cell channels starting IDLE at pressure 0.
func NewSimPump(ramp time.Duration) *SimPump {
	p := &SimPump{
		Status:   pv.NewSimStatus(device.Idle),
		Setpoint: pv.NewSimCommand(),
		Trigger:  pv.NewSimCommand(),
		Pressure: pv.NewSimValue(0),
		Ramp:     ramp,
		Steps:    10,
	}
	p.Setpoint.OnWrite(func(v float64) {
		p.mu.Lock()
		p.target = v
		p.mu.Unlock()
	})
	p.Trigger.OnWrite(func(v float64) {
		if v == 1 {
			go p.run()
		}
	})
	return p
}

// Channels returns the simulated channels in the shape a Cell expects.
func (p *SimPump) Channels() Channels {
	return Channels{
		Status:   p.Status,
		Setpoint: p.Setpoint,
		Trigger:  p.Trigger,
		Pressure: p.Pressure,
	}
}

func (p *SimPump) run() {
	p.mu.Lock()
	target := p.target + p.Offset
	p.mu.Unlock()

	p.Status.Set(device.Busy)

	start, _ := p.Pressure.Read(context.Background())
	steps := p.Steps
	if steps <= 0 {
		steps = 1
	}
	for i := 1; i <= steps; i++ {
		time.Sleep(p.Ramp / time.Duration(steps))
		p.Pressure.Set(start + (target-start)*float64(i)/float64(steps))
	}

	p.Status.Set(device.Idle)
}
