package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"carmonitor/internal/domain"
)

// CostHandler handles HTTP requests for the trip cost table.
type CostHandler struct {
	costService TripCostService
}

// NewCostHandler creates a new CostHandler.
func NewCostHandler(costService TripCostService) *CostHandler {
	return &CostHandler{costService: costService}
}

// TripCostResponse is one row of the cost table.
type TripCostResponse struct {
	ID            string `json:"id"`
	StartLocation string `json:"start_location"`
	EndLocation   string `json:"end_location"`
	BaseCost      string `json:"base_cost"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// CreateTripCostBody is the body of POST /v1/trip-costs.
type CreateTripCostBody struct {
	StartLocation string          `json:"start_location" binding:"required"`
	EndLocation   string          `json:"end_location" binding:"required"`
	BaseCost      decimal.Decimal `json:"base_cost"`
}

func toTripCostResponse(tc *domain.TripCost) TripCostResponse {
	return TripCostResponse{
		ID:            tc.ID,
		StartLocation: tc.StartLocation,
		EndLocation:   tc.EndLocation,
		BaseCost:      tc.BaseCost.StringFixed(2),
		CreatedAt:     formatTime(tc.CreatedAt),
	}
}

// GetAll handles GET /v1/trip-costs
func (h *CostHandler) GetAll(c *gin.Context) {
	costs, err := h.costService.ListActive(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]TripCostResponse, 0, len(costs))
	for _, tc := range costs {
		out = append(out, toTripCostResponse(tc))
	}
	respondJSON(c, http.StatusOK, out)
}

// Create handles POST /v1/trip-costs
func (h *CostHandler) Create(c *gin.Context) {
	var body CreateTripCostBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	tc, err := h.costService.CreateTripCost(c.Request.Context(), body.StartLocation, body.EndLocation, body.BaseCost)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toTripCostResponse(tc))
}

// Seed handles POST /v1/trip-costs/seed
func (h *CostHandler) Seed(c *gin.Context) {
	inserted, err := h.costService.Seed(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"inserted": inserted})
}
