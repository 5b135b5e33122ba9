package handlers

import (
	"net/http"

	"github.com/pfolio/portfolio-api/internal/api/response"
	"github.com/pfolio/portfolio-api/internal/service"
)

// SystemHandler serves the health endpoint.
type SystemHandler struct {
	systemService *service.SystemService
}

func NewSystemHandler(systemService *service.SystemService) *SystemHandler {
	return &SystemHandler{systemService: systemService}
}

// Health reports database connectivity, schema version and build version.
//
// Endpoint: GET /api/system/health
// Response: 200 OK with model.SystemStatus
// Error: 503 Service Unavailable with the same body when any check fails
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	status := h.systemService.Status(r.Context())

	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
	}
	response.RespondJSON(w, code, status)
}
