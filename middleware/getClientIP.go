package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const clientIPKey = "clientIP"

// ClientIP returns the caller's address, preferring proxy headers. The
// result is memoised on the context.
func ClientIP(c *gin.Context) string {
	if v, ok := c.Get(clientIPKey); ok {
		if ip, ok := v.(string); ok {
			return ip
		}
	}
	ip := resolveClientIP(c)
	c.Set(clientIPKey, ip)
	return ip
}

func resolveClientIP(c *gin.Context) string {
	// X-Forwarded-For may hold a chain; the first hop is the client.
	if xff := c.GetHeader("X-Forwarded-For"); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	if xri := strings.TrimSpace(c.GetHeader("X-Real-IP")); xri != "" {
		return xri
	}
	addr := c.Request.RemoteAddr
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
