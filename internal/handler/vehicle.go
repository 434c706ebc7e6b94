package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"carmonitor/internal/simulator"
)

// VehicleHandler serves per-vehicle trip, fine and telemetry routes.
type VehicleHandler struct {
	tripService TripService
	engine      *simulator.Engine
}

// NewVehicleHandler creates a new VehicleHandler.
func NewVehicleHandler(tripService TripService, engine *simulator.Engine) *VehicleHandler {
	return &VehicleHandler{tripService: tripService, engine: engine}
}

// AddFineBody is the body of POST /v1/vehicles/:id/fines.
type AddFineBody struct {
	Amount *int64 `json:"amount" binding:"required"`
}

// AddFineResponse lists the trips the fine was applied to.
type AddFineResponse struct {
	VehicleID string         `json:"vehicle_id"`
	Amount    int64          `json:"amount"`
	Trips     []TripResponse `json:"trips"`
}

// AddFine handles POST /v1/vehicles/:id/fines
func (h *VehicleHandler) AddFine(c *gin.Context) {
	var body AddFineBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	vehicleID := c.Param("id")
	trips, err := h.tripService.AddFine(c.Request.Context(), vehicleID, *body.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, AddFineResponse{
		VehicleID: vehicleID,
		Amount:    *body.Amount,
		Trips:     toTripResponses(trips),
	})
}

// GetActiveTrip handles GET /v1/vehicles/:id/trips/active
func (h *VehicleHandler) GetActiveTrip(c *gin.Context) {
	trip, err := h.tripService.GetActiveTripForVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if trip == nil {
		c.Status(http.StatusNoContent)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// GetTelemetry handles GET /v1/vehicles/:id/telemetry
// Returns the last sample the simulator generated for the vehicle.
func (h *VehicleHandler) GetTelemetry(c *gin.Context) {
	sample, ok := h.engine.LastSample(c.Param("id"))
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}

	respondJSON(c, http.StatusOK, sample)
}
