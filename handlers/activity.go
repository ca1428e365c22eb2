package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"invoicely/services/audit"
)

type ActivityHandler struct {
	Audit audit.AuditService
}

func NewActivityHandler(svc audit.AuditService) *ActivityHandler {
	return &ActivityHandler{Audit: svc}
}

// List handles GET /api/activity?limit=. The service clamps the limit.
func (h *ActivityHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	events, err := h.Audit.List(c.Request.Context(), ownerID(c), limit)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, events)
}
