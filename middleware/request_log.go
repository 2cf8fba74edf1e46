package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TomerAmran/guess-the-performer-sub001/logger"
)

// RequestLogger writes one line per request, keyed by route template so
// quiz ids do not explode the path cardinality; the id goes in quiz_id.
// Health checks and websocket upgrades log at debug.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		if log == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		fields := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
		}
		if quizRoute(route) {
			fields = append(fields, "quiz_id", c.Param("id"))
		}
		if id, ok := UserID(c); ok {
			fields = append(fields, "user_id", id.String())
		}
		if err := c.Errors.Last(); err != nil {
			fields = append(fields, "error", err.Error())
		}

		switch {
		case status >= 500:
			log.Error("request failed", fields...)
		case status >= 400:
			log.Warn("request rejected", fields...)
		case route == "/health" || strings.HasPrefix(route, "/ws/"):
			log.Debug("request", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

func quizRoute(route string) bool {
	return strings.HasPrefix(route, "/api/quizzes/:id") || strings.HasPrefix(route, "/ws/quizzes/:id")
}
