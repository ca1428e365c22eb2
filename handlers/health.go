package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"invoicely/utils"
)

// StatusSource reports the latest dependency snapshot.
type StatusSource interface {
	Status() utils.HealthStatus
}

type HealthHandler struct {
	Monitor StatusSource
}

func NewHealthHandler(monitor StatusSource) *HealthHandler {
	return &HealthHandler{Monitor: monitor}
}

// Health handles GET /health. It answers 503 while Postgres is unreachable.
func (h *HealthHandler) Health(c *gin.Context) {
	status := h.Monitor.Status()
	code := http.StatusOK
	state := "ok"
	if !status.Healthy() {
		code = http.StatusServiceUnavailable
		state = "degraded"
	}
	c.JSON(code, gin.H{"status": state, "services": status})
}
