package valve

import (
	"sync"
	"time"

	"github.com/urmzd/beamline/pkg/device"
	"github.com/urmzd/beamline/pkg/pv"
)

// DefaultTravel is how long a simulated valve takes to change position.
const DefaultTravel = 200 * time.Millisecond

// mechanism drives a simulated status channel from control writes. A newer
// command supersedes one still travelling.
type mechanism struct {
	status *pv.SimStatus
	travel time.Duration

	mu  sync.Mutex
	gen uint64
}

func (m *mechanism) schedule(steps ...device.State) {
	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.mu.Unlock()

	go func() {
		for i, s := range steps {
			// The first step of a sequence with a travel state is immediate.
			if i > 0 || len(steps) == 1 {
				time.Sleep(m.travel)
			}
			m.mu.Lock()
			stale := m.gen != gen
			m.mu.Unlock()
			if stale {
				return
			}
			m.status.Set(s)
		}
	}()
}

// SimulateSimple makes status behave like a simple valve driven by control.
func SimulateSimple(status *pv.SimStatus, control *pv.SimCommand, travel time.Duration) {
	if travel <= 0 {
		travel = DefaultTravel
	}
	m := &mechanism{status: status, travel: travel}

	control.OnWrite(func(v float64) {
		cur := status.Current()
		switch v {
		case CmdOpen:
			if cur != device.Open && cur != device.Fault {
				m.schedule(device.Opening, device.Open)
			}
		case CmdClose:
			if cur != device.Closed && cur != device.Fault {
				m.schedule(device.Closing, device.Closed)
			}
		case CmdReset:
			if cur == device.Fault {
				m.schedule(device.Closed)
			}
		}
	})
}

// SimulateArmable makes status behave like an armable valve driven by control.
func SimulateArmable(status *pv.SimStatus, control *pv.SimCommand, travel time.Duration) {
	if travel <= 0 {
		travel = DefaultTravel
	}
	m := &mechanism{status: status, travel: travel}

	control.OnWrite(func(v float64) {
		cur := status.Current()
		if cur == device.Fault {
			if v == CmdReset {
				m.schedule(device.Closed)
			}
			return
		}
		switch v {
		case CmdOpen:
			m.schedule(device.Open)
		case CmdClose:
			m.schedule(device.Closed)
		case CmdArm:
			if s, ok := armTarget(cur); ok {
				m.schedule(s)
			}
		case CmdDisarm:
			if s, ok := disarmTarget(cur); ok {
				m.schedule(s)
			}
		}
	})
}
