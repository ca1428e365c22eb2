package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoicely/middleware"
	"invoicely/utils"
)

// SuccessResponse is the body of every successful request.
type SuccessResponse struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

func respondOK(c *gin.Context, status int, data any) {
	c.JSON(status, SuccessResponse{Success: true, Data: data})
}

// respondError maps err to a status code. Internal failures are logged and
// reported generically.
func respondError(c *gin.Context, err error) {
	status := utils.StatusFor(err)
	if status == http.StatusInternalServerError {
		getLogger(c).Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.AbortWithStatusJSON(status, utils.ErrorResponse{Error: "Internal server error"})
		return
	}

	body := utils.ErrorResponse{Error: err.Error()}
	var appErr *utils.AppError
	if errors.As(err, &appErr) {
		body.Error = appErr.Error()
		body.Field = appErr.Field
	}
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes the body into v and reports malformed input as a
// validation error.
func bindJSON(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		getLogger(c).Debug("Invalid request body", zap.Error(err))
		respondError(c, utils.NewError(utils.ErrValidation, "Invalid request body"))
		return false
	}
	return true
}

// ownerID is the authenticated user. Routes using it sit behind middleware.Auth.
func ownerID(c *gin.Context) string {
	return c.GetString(middleware.UserIDKey)
}

func currentClaims(c *gin.Context) *utils.Claims {
	claims, _ := middleware.ClaimsFrom(c)
	return claims
}
