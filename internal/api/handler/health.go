package handler

import (
	"net/http"

	"github.com/mcoot/bubble/internal/api/response"
)

// HealthHandler reports liveness
type HealthHandler struct {
	storageType string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(storageType string) *HealthHandler {
	return &HealthHandler{storageType: storageType}
}

// Health handles GET /api/v1/health
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	response.JSON(w, http.StatusOK, response.HealthResponse{Message: "Ok", Status: "ok", Storage: h.storageType})
}
