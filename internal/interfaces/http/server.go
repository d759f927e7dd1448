// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/garyjia/claim-lifecycle/internal/application/service"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// AutoApprovePerMinute throttles the automated approval endpoint; zero disables the limit
	AutoApprovePerMinute int
	AutoApproveBurst     int
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:                 "0.0.0.0",
		Port:                 8080,
		ReadTimeout:          30 * time.Second,
		WriteTimeout:         30 * time.Second,
		AutoApprovePerMinute: 60,
		AutoApproveBurst:     10,
	}
}

// Services groups the application services the HTTP surface exposes
type Services struct {
	Claims     service.ClaimService
	Lifecycle  service.LifecycleService
	Submitters service.SubmitterService
	Reports    service.ReportService
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	useDomainValidator()

	server := &Server{
		config:   config,
		router:   gin.New(),
		services: services,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(s.recoveryMiddleware())
	s.router.Use(s.loggingMiddleware())
	s.router.Use(identityMiddleware())
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.logger)

	s.router.GET("/health", h.HealthCheck)

	api := s.router.Group("/api")
	{
		api.POST("/claims", h.SubmitClaim)
		api.GET("/claims/:id", h.GetClaim)
		api.POST("/claims/:id/validate", h.ValidateClaim)
		api.GET("/claims/:id/auto-approval", h.EvaluateAutoApproval)
		api.POST("/claims/:id/auto-approve", s.autoApproveLimiter(), h.AutoApprove)
		api.GET("/submitters/:id/claims", h.ListSubmitterClaims)

		coordinator := api.Group("/coordinator")
		coordinator.GET("/claims", h.CoordinatorQueue)
		coordinator.POST("/claims/:id/approve", h.CoordinatorApprove)
		coordinator.POST("/claims/:id/reject", h.CoordinatorReject)

		manager := api.Group("/manager")
		manager.GET("/claims", h.ManagerQueue)
		manager.POST("/claims/:id/approve", h.ManagerApprove)
		manager.POST("/claims/:id/reject", h.ManagerReject)

		hr := api.Group("/hr", requireRole(entity.RoleHR))
		hr.GET("/dashboard", h.Dashboard)
		hr.POST("/submitters", h.CreateSubmitter)
		hr.PUT("/submitters/:id/rate", h.UpdateSubmitterRate)
		hr.GET("/invoices/:year/:month", h.MonthlyInvoice)
		hr.POST("/payment-reminders", h.PaymentReminders)
		hr.POST("/claims/:id/payment-processed", h.MarkPaymentProcessed)
	}
}

func (s *Server) autoApproveLimiter() gin.HandlerFunc {
	if s.config.AutoApprovePerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	burst := s.config.AutoApproveBurst
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.config.AutoApprovePerMinute)), burst)
	return rateLimitMiddleware(limiter)
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
