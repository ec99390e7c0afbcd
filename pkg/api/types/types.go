package types

import (
	"time"

	"github.com/urmzd/beamline/pkg/beamline"
	"github.com/urmzd/beamline/pkg/device"
)

// --- Request DTOs ---

// ActionRequest is the request body for POST /devices/:id/actions
type ActionRequest struct {
	Action string `json:"action" example:"open"`
}

// GoRequest is the request body for POST /cells/:id/go
type GoRequest struct {
	Target float64 `json:"target" example:"1000"`
}

// --- Response DTOs ---

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is returned from GET /health
type HealthResponse struct {
	Status    string    `json:"status"`
	Beamline  string    `json:"beamline"`
	Devices   int       `json:"devices"`
	Simulated bool      `json:"simulated"`
	Timestamp time.Time `json:"timestamp"`
}

// ListDevicesResponse is returned from GET /devices
type ListDevicesResponse struct {
	Devices []beamline.DeviceInfo `json:"devices"`
	Count   int                   `json:"count"`
}

// DeviceResponse is returned from GET /devices/:id
type DeviceResponse struct {
	Device beamline.DeviceInfo `json:"device"`
}

// ActionResponse is returned from POST /devices/:id/actions
type ActionResponse struct {
	Device    string       `json:"device"`
	Action    string       `json:"action"`
	State     device.State `json:"state"`
	Timestamp time.Time    `json:"timestamp"`
}

// GoResponse is returned from POST /cells/:id/go
type GoResponse struct {
	Device    string    `json:"device"`
	Target    float64   `json:"target"`
	Measured  float64   `json:"measured"`
	Timestamp time.Time `json:"timestamp"`
}

// ResetResponse is returned from POST /cells/:id/reset
type ResetResponse struct {
	Device    string    `json:"device"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
}
