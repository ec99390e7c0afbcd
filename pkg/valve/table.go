package valve

import "github.com/urmzd/beamline/pkg/device"

// SimpleTable classifies notifications for a two-state valve that reports
// its travel.
var SimpleTable = device.Table{
	Flavor:   device.FlavorValve,
	Fault:    device.Fault,
	HasFault: true,
	Transitions: map[device.RequestKind]device.Transition{
		device.RequestOpen: {
			Terminal:     []device.State{device.Open},
			Intermediate: []device.State{device.Opening},
		},
		device.RequestClose: {
			Terminal:     []device.State{device.Closed},
			Intermediate: []device.State{device.Closing},
		},
	},
}

// ArmableTable classifies notifications for an armable valve. It reports no
// travel states, so anything between request and terminal is an anomaly.
var ArmableTable = device.Table{
	Flavor:   device.FlavorArmableValve,
	Fault:    device.Fault,
	HasFault: true,
	Transitions: map[device.RequestKind]device.Transition{
		device.RequestOpen:   {Terminal: []device.State{device.Open}},
		device.RequestClose:  {Terminal: []device.State{device.Closed}},
		device.RequestArm:    {Terminal: []device.State{device.OpenArmed, device.ClosedArmed}},
		device.RequestDisarm: {Terminal: []device.State{device.Open, device.Closed}},
	},
}

// Status register codes.
var (
	SimpleCodes = map[uint16]device.State{
		0: device.Fault,
		1: device.Open,
		2: device.Opening,
		3: device.Closed,
		4: device.Closing,
	}

	ArmableCodes = map[uint16]device.State{
		0: device.Fault,
		1: device.Open,
		3: device.Closed,
		5: device.OpenArmed,
		6: device.ClosedArmed,
	}
)

// Control register values.
const (
	CmdOpen   float64 = 0
	CmdClose  float64 = 1
	CmdReset  float64 = 2
	CmdArm    float64 = 3
	CmdDisarm float64 = 4
)

// armTarget is the armed counterpart of an unarmed resting state.
func armTarget(s device.State) (device.State, bool) {
	switch s {
	case device.Open, device.OpenArmed:
		return device.OpenArmed, true
	case device.Closed, device.ClosedArmed:
		return device.ClosedArmed, true
	}
	return device.Unknown, false
}

// disarmTarget is the unarmed counterpart of an armed resting state.
func disarmTarget(s device.State) (device.State, bool) {
	switch s {
	case device.OpenArmed, device.Open:
		return device.Open, true
	case device.ClosedArmed, device.Closed:
		return device.Closed, true
	}
	return device.Unknown, false
}
