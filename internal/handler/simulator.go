package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carmonitor/internal/simulator"
)

// SimulatorHandler exposes runtime control of the telemetry simulator.
type SimulatorHandler struct {
	engine *simulator.Engine
}

// NewSimulatorHandler creates a new SimulatorHandler.
func NewSimulatorHandler(engine *simulator.Engine) *SimulatorHandler {
	return &SimulatorHandler{engine: engine}
}

// SetEnabledBody is the body of PUT /v1/simulator/enabled.
type SetEnabledBody struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetIntervalBody is the body of PUT /v1/simulator/interval.
type SetIntervalBody struct {
	IntervalMS int64 `json:"interval_ms"`
}

// ControlResponse reports whether a start/stop changed anything.
type ControlResponse struct {
	Changed bool             `json:"changed"`
	Status  simulator.Status `json:"status"`
}

// GetStatus handles GET /v1/simulator
func (h *SimulatorHandler) GetStatus(c *gin.Context) {
	respondJSON(c, http.StatusOK, h.engine.Status())
}

// Start handles POST /v1/simulator/start
func (h *SimulatorHandler) Start(c *gin.Context) {
	changed := h.engine.Start(c.Request.Context())
	respondJSON(c, http.StatusOK, ControlResponse{Changed: changed, Status: h.engine.Status()})
}

// Stop handles POST /v1/simulator/stop
func (h *SimulatorHandler) Stop(c *gin.Context) {
	changed := h.engine.Stop(c.Request.Context())
	respondJSON(c, http.StatusOK, ControlResponse{Changed: changed, Status: h.engine.Status()})
}

// SetEnabled handles PUT /v1/simulator/enabled
func (h *SimulatorHandler) SetEnabled(c *gin.Context) {
	var body SetEnabledBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	h.engine.SetEnabled(c.Request.Context(), *body.Enabled)
	respondJSON(c, http.StatusOK, h.engine.Status())
}

// SetInterval handles PUT /v1/simulator/interval
func (h *SimulatorHandler) SetInterval(c *gin.Context) {
	var body SetIntervalBody
	if err := c.ShouldBindJSON(&body); err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	// Bound before converting so large values cannot overflow time.Duration.
	if body.IntervalMS <= 0 || body.IntervalMS > simulator.MaxInterval.Milliseconds() {
		respondError(c, fmt.Errorf("%w: %d ms", simulator.ErrInvalidInterval, body.IntervalMS))
		return
	}

	if err := h.engine.SetInterval(time.Duration(body.IntervalMS) * time.Millisecond); err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, h.engine.Status())
}

// Tick handles POST /v1/simulator/tick
// Runs one pass immediately, whether or not the simulator is running.
func (h *SimulatorHandler) Tick(c *gin.Context) {
	result, err := h.engine.Tick(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondJSON(c, http.StatusOK, result)
}
