package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoicely/models"
	"invoicely/services/settings"
	"invoicely/utils"
)

const maxLogoBytes = 2 << 20

type SettingsHandler struct {
	Settings settings.SettingsService
}

func NewSettingsHandler(svc settings.SettingsService) *SettingsHandler {
	return &SettingsHandler{Settings: svc}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	st, err := h.Settings.Get(c.Request.Context(), ownerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, st)
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var in models.SettingsInput
	if !bindJSON(c, &in) {
		return
	}
	st, err := h.Settings.Update(c.Request.Context(), ownerID(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, st)
}

// UploadLogo handles POST /api/settings/logo as multipart form field "logo".
func (h *SettingsHandler) UploadLogo(c *gin.Context) {
	logger := getLogger(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxLogoBytes+(64<<10))

	header, err := c.FormFile("logo")
	if err != nil {
		respondError(c, utils.NewValidationError("logo", "Logo file is required"))
		return
	}
	if header.Size > maxLogoBytes {
		respondError(c, utils.NewValidationError("logo", "Logo must be 2MB or smaller"))
		return
	}
	if ct := header.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "image/") {
		respondError(c, utils.NewValidationError("logo", "Logo must be an image"))
		return
	}

	file, err := header.Open()
	if err != nil {
		logger.Error("Failed to open uploaded logo", zap.Error(err))
		respondError(c, err)
		return
	}
	defer file.Close()

	st, err := h.Settings.UploadLogo(c.Request.Context(), ownerID(c), file)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, st)
}

func (h *SettingsHandler) RemoveLogo(c *gin.Context) {
	st, err := h.Settings.RemoveLogo(c.Request.Context(), ownerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, st)
}
