package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/beamline/pkg/api/types"
	"github.com/urmzd/beamline/pkg/beamline"
	"github.com/urmzd/beamline/pkg/device"
)

// Service is the beamline surface the handlers need.
type Service interface {
	Name() string
	Simulated() bool
	Len() int
	Devices() []beamline.DeviceInfo
	Device(ctx context.Context, id string) (beamline.DeviceInfo, error)
	Do(ctx context.Context, id, action string) (device.State, error)
	Go(ctx context.Context, id string, target float64) (float64, error)
	ResetCell(ctx context.Context, id string) error
}

// errorStatus maps device errors to an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, device.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, device.ErrUnsupported):
		return http.StatusBadRequest, "unsupported"
	case errors.Is(err, device.ErrAlreadyMoving):
		return http.StatusConflict, "already_moving"
	case errors.Is(err, device.ErrDeviceFault):
		return http.StatusConflict, "device_fault"
	case errors.Is(err, device.ErrMoveTimeout):
		return http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, device.ErrUnexpectedTerminalState):
		return http.StatusBadGateway, "unexpected_state"
	case errors.Is(err, device.ErrTargetMismatch):
		return http.StatusUnprocessableEntity, "target_mismatch"
	case errors.Is(err, device.ErrChannel):
		return http.StatusBadGateway, "channel_error"
	case errors.Is(err, device.ErrClosed):
		return http.StatusServiceUnavailable, "closed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "abandoned"
	}
	return http.StatusInternalServerError, "device_error"
}

func writeError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	c.JSON(status, types.ErrorResponse{
		Error:   code,
		Message: err.Error(),
	})
}

func badRequest(c *gin.Context, code, msg string) {
	c.JSON(http.StatusBadRequest, types.ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
