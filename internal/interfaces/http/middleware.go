package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/garyjia/claim-lifecycle/internal/domain/apperror"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/infrastructure/identity"
)

// loggingMiddleware creates a logging middleware
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		s.logger.Info("HTTP request",
			"method", method,
			"path", path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}

// recoveryMiddleware logs a panic and answers with the standard envelope
func (s *Server) recoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		s.logger.Error("Panic while handling request", "path", c.Request.URL.Path, "panic", recovered)
		c.AbortWithStatusJSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "internal server error",
			Kind:    string(apperror.KindInternal),
		})
	})
}

// identityMiddleware attaches the actor named by the request headers, if any.
// Requests without a valid actor continue; operations that need one refuse them.
func identityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor, err := identity.FromHeaders(c.Request.Header); err == nil {
			c.Request = c.Request.WithContext(identity.WithActor(c.Request.Context(), actor))
		}
		c.Next()
	}
}

// requireRole rejects requests whose actor is missing or holds a different role
func requireRole(role entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := identity.ActorFromContext(c.Request.Context())
		if !ok {
			writeError(c, apperror.IdentityUnresolved(0, nil))
			c.Abort()
			return
		}
		if actor.Role != role {
			writeError(c, apperror.Forbidden(0, "role "+string(actor.Role)+" may not perform this operation"))
			c.Abort()
			return
		}
		c.Next()
	}
}

func rateLimitMiddleware(limiter *rate.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.Header("Retry-After", "60")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, Response{
				Success: false,
				Error:   "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}
