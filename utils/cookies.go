package utils

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	AccessTokenCookie  = "access_token"
	RefreshTokenCookie = "refresh_token"
)

// CookieConfig controls the attributes of the auth cookies.
type CookieConfig struct {
	Domain string
	Secure bool
}

// SetAuthCookies writes both token cookies.
func SetAuthCookies(c *gin.Context, cfg CookieConfig, pair *TokenPair) {
	now := time.Now()
	SetAccessCookie(c, cfg, pair.AccessToken, pair.AccessExpiresAt.Sub(now))
	setCookie(c, cfg, RefreshTokenCookie, pair.RefreshToken, "/api/auth", int(pair.RefreshExpiresAt.Sub(now).Seconds()))
}

// SetAccessCookie writes only the access token cookie.
func SetAccessCookie(c *gin.Context, cfg CookieConfig, token string, ttl time.Duration) {
	setCookie(c, cfg, AccessTokenCookie, token, "/", int(ttl.Seconds()))
}

// ClearAuthCookies expires both token cookies.
func ClearAuthCookies(c *gin.Context, cfg CookieConfig) {
	setCookie(c, cfg, AccessTokenCookie, "", "/", -1)
	setCookie(c, cfg, RefreshTokenCookie, "", "/api/auth", -1)
}

func setCookie(c *gin.Context, cfg CookieConfig, name, value, path string, maxAge int) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		Secure:   cfg.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
