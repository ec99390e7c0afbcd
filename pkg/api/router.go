package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/urmzd/beamline/pkg/api/handlers"
	"github.com/urmzd/beamline/pkg/api/schema"
	"github.com/urmzd/beamline/pkg/device"
)

// Router holds the Gin engine and dependencies
type Router struct {
	engine     *gin.Engine
	svc        handlers.Service
	subscriber device.EventSubscriber
	validator  *schema.Validator
}

// NewRouter creates a new API router
func NewRouter(svc handlers.Service, subscriber device.EventSubscriber, validator *schema.Validator) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine:     engine,
		svc:        svc,
		subscriber: subscriber,
		validator:  validator,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	// Health check at root
	healthHandler := handlers.NewHealthHandler(r.svc)
	r.engine.GET("/health", healthHandler.Health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		devicesHandler := handlers.NewDevicesHandler(r.svc, r.validator)
		devices := v1.Group("/devices")
		{
			devices.GET("", devicesHandler.ListDevices)
			devices.GET("/:id", devicesHandler.GetDevice)
			devices.POST("/:id/actions", devicesHandler.Action)
		}

		cellsHandler := handlers.NewCellsHandler(r.svc, r.validator)
		cells := v1.Group("/cells")
		{
			cells.POST("/:id/go", cellsHandler.Go)
			cells.POST("/:id/reset", cellsHandler.Reset)
		}

		eventsHandler := handlers.NewEventsHandler(r.subscriber)
		v1.GET("/events", eventsHandler.Events)
		v1.GET("/events/ws", eventsHandler.WebSocket)
	}
}

// Handler exposes the engine for http.Server and tests.
func (r *Router) Handler() http.Handler {
	return r.engine
}
