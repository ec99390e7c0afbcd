package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/beamline/pkg/api/schema"
	"github.com/urmzd/beamline/pkg/api/types"
)

// CellsHandler handles pressure cell endpoints
type CellsHandler struct {
	svc       Service
	validator *schema.Validator
}

// NewCellsHandler creates a new cells handler
func NewCellsHandler(svc Service, validator *schema.Validator) *CellsHandler {
	return &CellsHandler{svc: svc, validator: validator}
}

// Go handles POST /cells/:id/go
// @Summary      Drive a pressure cell
// @Description  Writes the setpoint, triggers GO, waits for IDLE and checks the pump pressure against the target
// @Tags         cells
// @Accept       json
// @Produce      json
// @Param        id       path      string           true  "Cell id"
// @Param        request  body      types.GoRequest  true  "Target pressure"
// @Success      200      {object}  types.GoResponse
// @Failure      400      {object}  types.ErrorResponse  "Invalid request or not a cell"
// @Failure      404      {object}  types.ErrorResponse  "Cell not found"
// @Failure      409      {object}  types.ErrorResponse  "Cell busy"
// @Failure      422      {object}  types.ErrorResponse  "Pressure outside tolerance"
// @Failure      504      {object}  types.ErrorResponse  "GO timed out"
// @Router       /cells/{id}/go [post]
func (h *CellsHandler) Go(c *gin.Context) {
	id := c.Param("id")

	var req map[string]any
	if err := json.NewDecoder(c.Request.Body).Decode(&req); err != nil {
		badRequest(c, "invalid_request", "Invalid request body")
		return
	}
	if err := h.validator.Validate(schema.GoRequest, req); err != nil {
		badRequest(c, "validation_error", err.Error())
		return
	}
	target := req["target"].(float64)

	measured, err := h.svc.Go(c.Request.Context(), id, target)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.GoResponse{
		Device:    id,
		Target:    target,
		Measured:  measured,
		Timestamp: time.Now(),
	})
}

// Reset handles POST /cells/:id/reset
// @Summary      Reset a pressure cell
// @Description  Disarms, resets and closes the cell's valves in order; stops at the first failure without undoing earlier steps
// @Tags         cells
// @Produce      json
// @Param        id   path      string  true  "Cell id"
// @Success      200  {object}  types.ResetResponse
// @Failure      400  {object}  types.ErrorResponse  "Not a cell or no valves attached"
// @Failure      404  {object}  types.ErrorResponse  "Cell not found"
// @Failure      409  {object}  types.ErrorResponse  "A valve is busy or faulted"
// @Router       /cells/{id}/reset [post]
func (h *CellsHandler) Reset(c *gin.Context) {
	id := c.Param("id")

	if err := h.svc.ResetCell(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, types.ResetResponse{
		Device:    id,
		Status:    "reset",
		Timestamp: time.Now(),
	})
}
