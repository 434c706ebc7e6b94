package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"carmonitor/internal/domain"
	"carmonitor/internal/service"
)

// TripHandler handles HTTP requests for trips.
type TripHandler struct {
	tripService TripService
}

// NewTripHandler creates a new TripHandler.
func NewTripHandler(tripService TripService) *TripHandler {
	return &TripHandler{tripService: tripService}
}

// TripResponse is the HTTP response for trip operations.
type TripResponse struct {
	TripID         string `json:"trip_id"`
	DriverID       string `json:"driver_id"`
	VehicleID      string `json:"vehicle_id,omitempty"`
	StartLocation  string `json:"start_location"`
	EndLocation    string `json:"end_location"`
	Status         string `json:"status"`
	BaseCost       string `json:"base_cost"`
	AdditionalFine string `json:"additional_fine"`
	TotalCost      string `json:"total_cost"`
	RequestedAt    string `json:"requested_at,omitempty"`
	ApprovedAt     string `json:"approved_at,omitempty"`
	StartedAt      string `json:"started_at,omitempty"`
	EndedAt        string `json:"ended_at,omitempty"`
}

// RequestTripBody is the body of POST /v1/trips.
type RequestTripBody struct {
	DriverID      string `json:"driver_id" binding:"required"`
	StartLocation string `json:"start_location" binding:"required"`
	EndLocation   string `json:"end_location" binding:"required"`
	VehicleID     string `json:"vehicle_id"`
}

// ApproveTripBody is the body of POST /v1/trips/:id/approve.
type ApproveTripBody struct {
	VehicleID string `json:"vehicle_id"`
}

// RejectTripBody is the body of POST /v1/trips/:id/reject.
type RejectTripBody struct {
	Reason string `json:"reason"`
}

func toTripResponse(t *domain.Trip) TripResponse {
	return TripResponse{
		TripID:         t.ID,
		DriverID:       t.DriverID,
		VehicleID:      t.VehicleID,
		StartLocation:  t.StartLocation,
		EndLocation:    t.EndLocation,
		Status:         string(t.Status),
		BaseCost:       t.BaseCost.StringFixed(2),
		AdditionalFine: t.AdditionalFine.StringFixed(2),
		TotalCost:      t.TotalCost.StringFixed(2),
		RequestedAt:    formatTime(t.RequestedAt),
		ApprovedAt:     formatTime(t.ApprovedAt),
		StartedAt:      formatTime(t.StartedAt),
		EndedAt:        formatTime(t.EndedAt),
	}
}

func toTripResponses(trips []*domain.Trip) []TripResponse {
	out := make([]TripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripResponse(t))
	}
	return out
}

// RequestTrip handles POST /v1/trips
func (h *TripHandler) RequestTrip(c *gin.Context) {
	var body RequestTripBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	trip, err := h.tripService.RequestTrip(c.Request.Context(), service.RequestTripRequest{
		DriverID:      body.DriverID,
		StartLocation: body.StartLocation,
		EndLocation:   body.EndLocation,
		VehicleID:     body.VehicleID,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripResponse(trip))
}

// GetTrip handles GET /v1/trips/:id
func (h *TripHandler) GetTrip(c *gin.Context) {
	trip, err := h.tripService.GetTrip(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// GetAll handles GET /v1/trips?status=REQUESTED. Status defaults to REQUESTED.
func (h *TripHandler) GetAll(c *gin.Context) {
	status := domain.TripStatus(strings.ToUpper(c.DefaultQuery("status", string(domain.TripStatusRequested))))

	trips, err := h.tripService.ListTripsByStatus(c.Request.Context(), status)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponses(trips))
}

// ApproveTrip handles POST /v1/trips/:id/approve
// It approves the request and starts the trip in one step.
func (h *TripHandler) ApproveTrip(c *gin.Context) {
	var body ApproveTripBody
	if err := bindOptionalJSON(c, &body); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	trip, err := h.tripService.ApproveAndStart(c.Request.Context(), c.Param("id"), body.VehicleID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// RejectTrip handles POST /v1/trips/:id/reject
func (h *TripHandler) RejectTrip(c *gin.Context) {
	var body RejectTripBody
	if err := bindOptionalJSON(c, &body); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	trip, err := h.tripService.Reject(c.Request.Context(), c.Param("id"), body.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// StopTrip handles POST /v1/trips/:id/stop
func (h *TripHandler) StopTrip(c *gin.Context) {
	trip, err := h.tripService.Stop(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponse(trip))
}

// GetDriverTrips handles GET /v1/drivers/:id/trips
func (h *TripHandler) GetDriverTrips(c *gin.Context) {
	trips, err := h.tripService.ListDriverTrips(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toTripResponses(trips))
}

// GetDriverActiveTrip handles GET /v1/drivers/:id/trips/active
// Responds 204 when the driver has no active trip.
func (h *TripHandler) GetDriverActiveTrip(c *gin.Context) {
	trip, err := h.tripService.GetActiveTripForDriver(c.Request.Context(), c.Param("id"))
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
