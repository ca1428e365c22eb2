package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoicely/models"
	"invoicely/services/auth"
	"invoicely/utils"
)

const (
	ClaimsKey    = "claims"
	UserIDKey    = "userID"
	SessionIDKey = "sessionID"

	// RenewedTokenHeader carries a re-issued access token for bearer clients.
	RenewedTokenHeader = "X-Access-Token"
)

// Auth accepts the access token from the access_token cookie or an
// Authorization: Bearer header. Any failure clears both auth cookies.
func Auth(authService auth.AuthService, cookies utils.CookieConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := loggerFrom(c)

		token := AccessToken(c)
		if token == "" {
			reject(c, cookies, "Authentication required")
			return
		}
		claims, err := authService.Authenticate(c.Request.Context(), token)
		if err != nil {
			// Store outages are not the client's fault; keep its cookies.
			if utils.StatusFor(err) == http.StatusInternalServerError {
				logger.Error("Session check failed", zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, utils.ErrorResponse{Error: "Internal server error"})
				return
			}
			logger.Debug("Access token rejected", zap.Error(err))
			reject(c, cookies, "Invalid or expired session")
			return
		}

		renewal, err := authService.Renew(claims)
		if err != nil {
			logger.Warn("Access token renewal failed", zap.String("userID", claims.Subject), zap.Error(err))
		} else if renewal != nil {
			utils.SetAccessCookie(c, cookies, renewal.Token, time.Until(renewal.ExpiresAt))
			c.Header(RenewedTokenHeader, renewal.Token)
		}

		c.Set(ClaimsKey, claims)
		c.Set(UserIDKey, claims.Subject)
		c.Set(SessionIDKey, claims.SessionID)
		c.Set(LoggerKey, logger.With(zap.String("userID", claims.Subject)))
		c.Next()
	}
}

// RequireAdmin must run after Auth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := ClaimsFrom(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Error: "Authentication required"})
			return
		}
		if claims.Role != string(models.RoleAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse{Error: "Admin access required"})
			return
		}
		c.Next()
	}
}

// AccessToken reads the bearer header first, then the cookie.
func AccessToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); token != "" {
			return token
		}
	}
	token, _ := c.Cookie(utils.AccessTokenCookie)
	return token
}

func ClaimsFrom(c *gin.Context) (*utils.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*utils.Claims)
	return claims, ok && claims != nil
}

func reject(c *gin.Context, cookies utils.CookieConfig, msg string) {
	utils.ClearAuthCookies(c, cookies)
	c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Error: msg})
}
