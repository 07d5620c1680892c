package middleware

import (
	"net/http"
	"time"

	"confcheckin/internal/apierror"
	"confcheckin/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errInternal = apierror.WithCode(string(service.ReasonInternal), "internal server error")

// Logger attaches a request-scoped zerolog logger to the request context and
// writes one access line per request. Mount after RequestID.
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		l := log.With().
			Str("request_id", c.GetString(RequestIDKey)).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Logger()
		c.Request = c.Request.WithContext(l.WithContext(c.Request.Context()))

		c.Next()

		status := c.Writer.Status()
		var ev *zerolog.Event
		rl := requestLogger(c)
		switch {
		case status >= http.StatusInternalServerError:
			ev = rl.Error()
		case status >= http.StatusBadRequest:
			ev = rl.Warn()
		default:
			ev = rl.Info()
		}
		ev.Int("status", status).
			Str("client_ip", c.ClientIP()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}

// requestLogger returns the logger Logger attached, or the global one.
func requestLogger(c *gin.Context) *zerolog.Logger {
	if l := zerolog.Ctx(c.Request.Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &log.Logger
}

// ErrorHandler logs errors handlers attached with c.Error and answers 500
// if nothing was written yet. Internal messages never reach clients.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		requestLogger(c).Error().
			Err(c.Errors.Last().Err).
			Int("errors", len(c.Errors)).
			Msg("unhandled error")

		if !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, errInternal)
		}
	}
}

// Recovery turns a handler panic into a 500 envelope.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				requestLogger(c).Error().
					Interface("panic", r).
					Msg("panic recovered")
				c.AbortWithStatusJSON(http.StatusInternalServerError, errInternal)
			}
		}()
		c.Next()
	}
}
