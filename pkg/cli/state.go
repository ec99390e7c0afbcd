package cli

import (
	"github.com/fatih/color"

	"github.com/urmzd/beamline/pkg/device"
)

func colorState(s device.State) string {
	switch s {
	case device.Open, device.Idle:
		return color.New(color.FgGreen).Sprint(s)
	case device.Closed:
		return color.New(color.FgBlue).Sprint(s)
	case device.OpenArmed, device.ClosedArmed:
		return color.New(color.FgYellow).Sprint(s)
	case device.Fault:
		return color.New(color.FgRed, color.Bold).Sprint(s)
	case device.Unknown:
		return color.New(color.FgHiBlack).Sprint("UNKNOWN")
	}
	return color.New(color.FgCyan).Sprint(s)
}

func ok(msg string) string {
	return color.New(color.FgGreen).Sprint("✓") + " " + msg
}
