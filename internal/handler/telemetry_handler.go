package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"taxrecon/internal/service"
)

const defaultTelemetryLimit = 50

// TelemetryHandler exposes persisted telemetry records.
type TelemetryHandler struct {
	svc service.DocumentService
}

// NewTelemetryHandler creates a new TelemetryHandler.
func NewTelemetryHandler(svc service.DocumentService) *TelemetryHandler {
	return &TelemetryHandler{svc: svc}
}

// Recent handles GET /api/v1/telemetry?limit=N.
// @Summary List recent telemetry
// @Tags telemetry
// @Produce json
// @Param limit query int false "Maximum records (default 50, capped at 500)"
// @Success 200 {object} APIResponse{data=[]domain.TelemetryRecord}
// @Failure 404 {object} APIResponse "Telemetry persistence disabled"
// @Router /telemetry [get]
func (h *TelemetryHandler) Recent(c *gin.Context) {
	limit := defaultTelemetryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.svc.RecentTelemetry(c.Request.Context(), limit)
	if err != nil {
		HandleError(c, err)
		return
	}
	RespondOK(c, records)
}
