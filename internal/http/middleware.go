package http

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/config"
)

// APIKeyHeader gates the /api prefix outside development environments.
const APIKeyHeader = "X-API-Key"

// CustomLoggerMiddleware logs HTTP requests with the request ID attached so
// log lines correlate with the X-Request-ID echoed to clients.
func CustomLoggerMiddleware(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		logger.Info("http request",
			slog.String("request_id", requestid.Get(c)),
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("duration", time.Since(start)),
		)
	}
}

// APIKeyMiddleware requires a matching X-API-Key header on every /api route
// outside development. The comparison is constant time.
func APIKeyMiddleware(cfg *config.Config, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.Environment == "development" {
			c.Next()
			return
		}

		provided := c.GetHeader(APIKeyHeader)
		if provided == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(cfg.APIKey)) != 1 {
			logger.Warn("api key check failed",
				slog.String("request_id", requestid.Get(c)),
				slog.String("path", c.Request.URL.Path),
			)
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "A valid API key is required",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
