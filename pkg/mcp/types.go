package mcp

import (
	"github.com/urmzd/beamline/pkg/beamline"
	"github.com/urmzd/beamline/pkg/device"
)

// --- Health Tool ---

// GetHealthOutput is the output for the get_health tool
type GetHealthOutput struct {
	Status    string `json:"status" jsonschema:"description=Overall health status (healthy or degraded)"`
	Beamline  string `json:"beamline" jsonschema:"description=Beamline name"`
	Devices   int    `json:"devices" jsonschema:"description=Number of running devices"`
	Simulated bool   `json:"simulated" jsonschema:"description=Whether hardware is simulated"`
	Timestamp string `json:"timestamp" jsonschema:"description=ISO8601 timestamp"`
}

// --- List Devices Tool ---

// ListDevicesOutput is the output for the list_devices tool
type ListDevicesOutput struct {
	Devices []beamline.DeviceInfo `json:"devices" jsonschema:"description=Configured devices"`
	Count   int                   `json:"count" jsonschema:"description=Total number of devices"`
}

// --- Get Device Tool ---

// GetDeviceOutput is the output for the get_device tool
type GetDeviceOutput struct {
	Device beamline.DeviceInfo `json:"device" jsonschema:"description=Device information"`
}

// --- Operate Device Tool ---

// OperateDeviceOutput is the output for the operate_device tool
type OperateDeviceOutput struct {
	DeviceID string       `json:"device_id" jsonschema:"description=Device identifier"`
	Action   string       `json:"action" jsonschema:"description=Action that ran"`
	State    device.State `json:"state" jsonschema:"description=State after the action settled"`
}

// --- Pressure Go Tool ---

// PressureGoOutput is the output for the pressure_go tool
type PressureGoOutput struct {
	DeviceID string  `json:"device_id" jsonschema:"description=Cell identifier"`
	Target   float64 `json:"target" jsonschema:"description=Requested pressure"`
	Measured float64 `json:"measured" jsonschema:"description=Pump pressure after GO"`
}

// --- Reset Cell Tool ---

// ResetCellOutput is the output for the reset_cell tool
type ResetCellOutput struct {
	Success bool   `json:"success" jsonschema:"description=Whether every reset step completed"`
	Message string `json:"message" jsonschema:"description=Status message"`
}
