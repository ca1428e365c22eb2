package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"invoicely/middleware"
)

// getLogger returns the request-scoped logger set by middleware.RequestLogger.
func getLogger(c *gin.Context) *zap.Logger {
	if l, exists := c.Get(middleware.LoggerKey); exists {
		if logger, ok := l.(*zap.Logger); ok {
			return logger
		}
	}
	return zap.L()
}
