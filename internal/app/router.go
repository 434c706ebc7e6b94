package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"

	"carmonitor/internal/handler"
	"carmonitor/internal/middleware"
	internalRedis "carmonitor/internal/redis"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	TripHandler      *handler.TripHandler
	VehicleHandler   *handler.VehicleHandler
	CostHandler      *handler.CostHandler
	SimulatorHandler *handler.SimulatorHandler
	Idempotency      internalRedis.IdempotencyStoreInterface
	NewRelicApp      *newrelic.Application
	AllowedOrigins   []string
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.Idempotency != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.Idempotency))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Trip routes.
		trips := v1.Group("/trips")
		{
			trips.POST("", deps.TripHandler.RequestTrip)
			trips.GET("", deps.TripHandler.GetAll)
			trips.GET("/:id", deps.TripHandler.GetTrip)
			trips.POST("/:id/approve", deps.TripHandler.ApproveTrip)
			trips.POST("/:id/reject", deps.TripHandler.RejectTrip)
			trips.POST("/:id/stop", deps.TripHandler.StopTrip)
		}

		// Driver routes.
		drivers := v1.Group("/drivers")
		{
			drivers.GET("/:id/trips", deps.TripHandler.GetDriverTrips)
			drivers.GET("/:id/trips/active", deps.TripHandler.GetDriverActiveTrip)
		}

		// Vehicle routes.
		vehicles := v1.Group("/vehicles")
		{
			vehicles.POST("/:id/fines", deps.VehicleHandler.AddFine)
			vehicles.GET("/:id/trips/active", deps.VehicleHandler.GetActiveTrip)
			vehicles.GET("/:id/telemetry", deps.VehicleHandler.GetTelemetry)
		}

		// Trip cost routes.
		costs := v1.Group("/trip-costs")
		{
			costs.GET("", deps.CostHandler.GetAll)
			costs.POST("", deps.CostHandler.Create)
			costs.POST("/seed", deps.CostHandler.Seed)
		}

		// Simulator routes.
		sim := v1.Group("/simulator")
		{
			sim.GET("", deps.SimulatorHandler.GetStatus)
			sim.POST("/start", deps.SimulatorHandler.Start)
			sim.POST("/stop", deps.SimulatorHandler.Stop)
			sim.POST("/tick", deps.SimulatorHandler.Tick)
			sim.PUT("/enabled", deps.SimulatorHandler.SetEnabled)
			sim.PUT("/interval", deps.SimulatorHandler.SetInterval)
		}
	}

	return router
}
