package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/beamline/pkg/api/schema"
	"github.com/urmzd/beamline/pkg/api/types"
)

// DevicesHandler handles device listing and valve actions
type DevicesHandler struct {
	svc       Service
	validator *schema.Validator
}

// NewDevicesHandler creates a new devices handler
func NewDevicesHandler(svc Service, validator *schema.Validator) *DevicesHandler {
	return &DevicesHandler{svc: svc, validator: validator}
}

// ListDevices handles GET /devices
// @Summary      List devices
// @Description  Returns every configured device with its cached state
// @Tags         devices
// @Produce      json
// @Success      200  {object}  types.ListDevicesResponse
// @Router       /devices [get]
func (h *DevicesHandler) ListDevices(c *gin.Context) {
	devices := h.svc.Devices()
	c.JSON(http.StatusOK, types.ListDevicesResponse{
		Devices: devices,
		Count:   len(devices),
	})
}

// GetDevice handles GET /devices/:id
// @Summary      Get device
// @Description  Returns one device; pressure cells include a fresh pump pressure reading
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  types.DeviceResponse
// @Failure      404  {object}  types.ErrorResponse  "Device not found"
// @Router       /devices/{id} [get]
func (h *DevicesHandler) GetDevice(c *gin.Context) {
	d, err := h.svc.Device(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, types.DeviceResponse{Device: d})
}

// Action handles POST /devices/:id/actions
// @Summary      Run a device action
// @Description  Runs open, close, arm, disarm or reset and waits for the device to settle
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id       path      string               true  "Device id"
// @Param        request  body      types.ActionRequest  true  "Action to run"
// @Success      200      {object}  types.ActionResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request or unsupported action"
// @Failure      404      {object}  types.ErrorResponse  "Device not found"
// @Failure      409      {object}  types.ErrorResponse  "Device busy or faulted"
// @Failure      502      {object}  types.ErrorResponse  "Transport failure or unexpected state"
// @Failure      504      {object}  types.ErrorResponse  "Move timed out"
// @Router       /devices/{id}/actions [post]
func (h *DevicesHandler) Action(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	var req map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		badRequest(c, "invalid_request", "Invalid request body")
		return
	}

	d, err := h.svc.Device(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}

	if err := h.validator.Validate(schema.ActionRequest(d.Actions), req); err != nil {
		badRequest(c, "validation_error", err.Error())
		return
	}
	action := req["action"].(string)

	state, err := h.svc.Do(ctx, id, action)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ActionResponse{
		Device:    id,
		Action:    action,
		State:     state,
		Timestamp: time.Now(),
	})
}
