package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoicely/middleware"
	"invoicely/models"
	"invoicely/services/auth"
	"invoicely/utils"
)

type AuthHandler struct {
	Auth    auth.AuthService
	Cookies utils.CookieConfig
}

func NewAuthHandler(svc auth.AuthService, cookies utils.CookieConfig) *AuthHandler {
	return &AuthHandler{Auth: svc, Cookies: cookies}
}

// sessionPayload is returned by login and refresh. The access token is
// repeated in the body for clients that use the Authorization header.
type sessionPayload struct {
	User            *models.User `json:"user"`
	AccessToken     string       `json:"access_token"`
	AccessExpiresAt time.Time    `json:"access_expires_at"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *gin.Context) {
	logger := getLogger(c)
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, utils.NewValidationError("email", "Email and password are required"))
		return
	}

	res, err := h.Auth.Login(c.Request.Context(), req.Email, req.Password, middleware.ClientIP(c), c.Request.UserAgent())
	if err != nil {
		logger.Info("Login failed", zap.String("ip", middleware.ClientIP(c)), zap.Error(err))
		utils.ClearAuthCookies(c, h.Cookies)
		respondError(c, err)
		return
	}

	utils.SetAuthCookies(c, h.Cookies, res.Tokens)
	respondOK(c, http.StatusOK, sessionPayload{
		User:            res.User,
		AccessToken:     res.Tokens.AccessToken,
		AccessExpiresAt: res.Tokens.AccessExpiresAt,
	})
}

// Refresh handles POST /api/auth/refresh. The refresh token comes from the
// cookie or, failing that, a JSON body.
func (h *AuthHandler) Refresh(c *gin.Context) {
	token, _ := c.Cookie(utils.RefreshTokenCookie)
	if token == "" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = c.ShouldBindJSON(&body)
		token = body.RefreshToken
	}
	if token == "" {
		utils.ClearAuthCookies(c, h.Cookies)
		respondError(c, utils.NewError(utils.ErrUnauthorized, "Refresh token missing"))
		return
	}

	res, err := h.Auth.Refresh(c.Request.Context(), token)
	if err != nil {
		getLogger(c).Debug("Refresh rejected", zap.Error(err))
		utils.ClearAuthCookies(c, h.Cookies)
		respondError(c, err)
		return
	}

	utils.SetAuthCookies(c, h.Cookies, res.Tokens)
	respondOK(c, http.StatusOK, sessionPayload{
		User:            res.User,
		AccessToken:     res.Tokens.AccessToken,
		AccessExpiresAt: res.Tokens.AccessExpiresAt,
	})
}

// Logout handles POST /api/auth/logout. It always succeeds.
func (h *AuthHandler) Logout(c *gin.Context) {
	refresh, _ := c.Cookie(utils.RefreshTokenCookie)
	h.Auth.Logout(c.Request.Context(), middleware.AccessToken(c), refresh)
	utils.ClearAuthCookies(c, h.Cookies)
	respondOK(c, http.StatusOK, gin.H{"message": "Logged out"})
}

func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.Auth.Me(c.Request.Context(), ownerID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, user)
}

// ChangePassword handles POST/PUT /api/auth/change-password.
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req models.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, utils.NewValidationError("new_password", "Current and new password are required"))
		return
	}
	if err := h.Auth.ChangePassword(c.Request.Context(), currentClaims(c), req.CurrentPassword, req.NewPassword); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": "Password updated"})
}

func (h *AuthHandler) Sessions(c *gin.Context) {
	sessions, err := h.Auth.ListSessions(c.Request.Context(), ownerID(c), c.GetString(middleware.SessionIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, sessions)
}

// RevokeOtherSessions handles DELETE /api/auth/sessions/others.
func (h *AuthHandler) RevokeOtherSessions(c *gin.Context) {
	n, err := h.Auth.RevokeOtherSessions(c.Request.Context(), ownerID(c), c.GetString(middleware.SessionIDKey))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"revoked": n})
}
