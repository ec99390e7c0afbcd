package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/urmzd/beamline/pkg/api/types"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	svc Service
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(svc Service) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// Health handles GET /health
// @Summary      Health check
// @Description  Returns the health of the service; degraded when no devices are running
// @Tags         health
// @Produce      json
// @Success      200  {object}  types.HealthResponse  "Service is healthy"
// @Failure      503  {object}  types.HealthResponse  "Service is degraded"
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	status, httpStatus := "healthy", http.StatusOK
	if h.svc.Len() == 0 {
		status, httpStatus = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, types.HealthResponse{
		Status:    status,
		Beamline:  h.svc.Name(),
		Devices:   h.svc.Len(),
		Simulated: h.svc.Simulated(),
		Timestamp: time.Now(),
	})
}
