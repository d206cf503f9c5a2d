package server

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	obsmetrics "github.com/paylanka/paylanka/internal/observability/metrics"
	"go.uber.org/zap"
)

const (
	headerUserID     = "X-User-ID"
	contextUserIDKey = "user_id"
)

// UserRequired resolves the caller identity set by the upstream payroll
// gateway. This service does not authenticate; it trusts the header the
// gateway injects after its own auth.
func UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := strings.TrimSpace(c.GetHeader(headerUserID))
		if userID == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

func userID(c *gin.Context) string {
	return c.GetString(contextUserIDKey)
}

// RequireActiveSubscription blocks write requests for users whose billing
// standing is BLOCKED. Reads stay open so a blocked user can still see their
// data and settle the invoice.
func (s *Server) RequireActiveSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		status, err := s.accessSvc.GetAccessStatus(c.Request.Context(), userID(c))
		if err != nil {
			AbortWithError(c, err)
			return
		}
		if status.Blocked() {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Error: errorPayload{
				Type:    "subscription_blocked",
				Message: status.Reason,
			}})
			return
		}
		c.Next()
	}
}

func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	log = log.Named("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	}
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		obsmetrics.HTTPRequests.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(c.Writer.Status()),
		).Inc()
		obsmetrics.HTTPDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
