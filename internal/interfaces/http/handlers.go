package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claim-lifecycle/internal/application/service"
	"github.com/garyjia/claim-lifecycle/internal/domain/apperror"
	"github.com/garyjia/claim-lifecycle/internal/domain/entity"
	"github.com/garyjia/claim-lifecycle/internal/infrastructure/identity"
	"github.com/garyjia/claim-lifecycle/internal/report"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	services Services
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services Services, logger Logger) *Handlers {
	return &Handlers{
		services: services,
		logger:   logger,
	}
}

// Response represents a standard JSON response.
// Retryable marks failures the same request may overcome once re-issued.
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Kind      string      `json:"kind,omitempty"`
	Details   interface{} `json:"details,omitempty"`
	Retryable bool        `json:"retryable,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// TransitionDetails describes why a transition was refused
type TransitionDetails struct {
	ClaimID  int64    `json:"claim_id,omitempty"`
	Required []string `json:"required_status,omitempty"`
	Actual   string   `json:"actual_status,omitempty"`
}

// RejectRequest is the body of a reject call
type RejectRequest struct {
	Reason string `json:"reason"`
}

// UpdateRateRequest is the body of a contracted rate change
type UpdateRateRequest struct {
	RateCents int64 `json:"rate_cents" validate:"required,gt=0"`
}

// PaymentRemindersResponse reports the reminders logged by one run
type PaymentRemindersResponse struct {
	Count     int                       `json:"count"`
	Reminders []service.PaymentReminder `json:"reminders"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   "1.0.0",
		},
	})
}

// SubmitClaim handles POST /api/claims
func (h *Handlers) SubmitClaim(c *gin.Context) {
	var input service.SubmitClaimInput
	if !h.bindJSON(c, &input) {
		return
	}

	claim, err := h.services.Claims.Submit(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: claim})
}

// GetClaim handles GET /api/claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Claims.GetDetails(ctx, id)
	})
}

// ValidateClaim handles POST /api/claims/:id/validate
func (h *Handlers) ValidateClaim(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Claims.Validate(ctx, id)
	})
}

// ListSubmitterClaims handles GET /api/submitters/:id/claims
func (h *Handlers) ListSubmitterClaims(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Claims.ListBySubmitter(ctx, id)
	})
}

// CoordinatorQueue handles GET /api/coordinator/claims
func (h *Handlers) CoordinatorQueue(c *gin.Context) {
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Claims.CoordinatorQueue(ctx)
	})
}

// ManagerQueue handles GET /api/manager/claims
func (h *Handlers) ManagerQueue(c *gin.Context) {
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Claims.ManagerQueue(ctx)
	})
}

// CoordinatorApprove handles POST /api/coordinator/claims/:id/approve
func (h *Handlers) CoordinatorApprove(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Lifecycle.CoordinatorApprove(ctx, id, actorOf(ctx))
	})
}

// CoordinatorReject handles POST /api/coordinator/claims/:id/reject
func (h *Handlers) CoordinatorReject(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.badRequest(c, "invalid request body", err)
		return
	}
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Lifecycle.CoordinatorReject(ctx, id, actorOf(ctx), req.Reason)
	})
}

// ManagerApprove handles POST /api/manager/claims/:id/approve
func (h *Handlers) ManagerApprove(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Lifecycle.ManagerApprove(ctx, id, actorOf(ctx))
	})
}

// ManagerReject handles POST /api/manager/claims/:id/reject; the body is optional
func (h *Handlers) ManagerReject(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req RejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.badRequest(c, "invalid request body", err)
			return
		}
	}
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Lifecycle.ManagerReject(ctx, id, actorOf(ctx), req.Reason)
	})
}

// EvaluateAutoApproval handles GET /api/claims/:id/auto-approval
func (h *Handlers) EvaluateAutoApproval(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Lifecycle.EvaluateAutoApproval(ctx, id)
	})
}

// AutoApprove handles POST /api/claims/:id/auto-approve
func (h *Handlers) AutoApprove(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Lifecycle.AutoApprove(ctx, id)
	})
}

// Dashboard handles GET /api/hr/dashboard
func (h *Handlers) Dashboard(c *gin.Context) {
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Reports.Dashboard(ctx)
	})
}

// UpdateSubmitterRate handles PUT /api/hr/submitters/:id/rate
func (h *Handlers) UpdateSubmitterRate(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	var req UpdateRateRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Submitters.UpdateRate(ctx, id, req.RateCents)
	})
}

// CreateSubmitter handles POST /api/hr/submitters
func (h *Handlers) CreateSubmitter(c *gin.Context) {
	var input service.CreateSubmitterInput
	if !h.bindJSON(c, &input) {
		return
	}

	submitter, err := h.services.Submitters.Create(c.Request.Context(), &input)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, Response{Success: true, Data: submitter})
}

// PaymentReminders handles POST /api/hr/payment-reminders
func (h *Handlers) PaymentReminders(c *gin.Context) {
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		reminders, err := h.services.Reports.PaymentReminders(ctx)
		if err != nil {
			return nil, err
		}
		return PaymentRemindersResponse{Count: len(reminders), Reminders: reminders}, nil
	})
}

// MarkPaymentProcessed handles POST /api/hr/claims/:id/payment-processed
func (h *Handlers) MarkPaymentProcessed(c *gin.Context) {
	id, ok := h.pathID(c, "id")
	if !ok {
		return
	}
	h.respond(c, func(ctx context.Context) (interface{}, error) {
		return h.services.Reports.MarkPaymentProcessed(ctx, id)
	})
}

// MonthlyInvoice handles GET /api/hr/invoices/:year/:month
func (h *Handlers) MonthlyInvoice(c *gin.Context) {
	year, errYear := strconv.Atoi(c.Param("year"))
	month, errMonth := strconv.Atoi(c.Param("month"))
	if errYear != nil || errMonth != nil {
		h.badRequest(c, "year and month must be numbers", errors.Join(errYear, errMonth))
		return
	}

	data, err := h.services.Reports.MonthlyInvoice(c.Request.Context(), year, month)
	if err != nil {
		writeError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.InvoiceFileName(year, month)+`"`)
	c.Data(http.StatusOK, report.InvoiceContentType, data)
}

// respond runs fn and writes its result or error in the standard envelope
func (h *Handlers) respond(c *gin.Context, fn func(ctx context.Context) (interface{}, error)) {
	data, err := fn(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

// bindJSON decodes and validates the body. A body that decodes but fails validation
// is answered like any other validation error; one that does not decode is a 400.
func (h *Handlers) bindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}
	if apperror.Is(err, apperror.KindValidation) {
		h.logger.Info("Rejected invalid request", "path", c.Request.URL.Path, "error", err)
		writeError(c, err)
		return false
	}
	h.badRequest(c, "invalid request body", err)
	return false
}

func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.badRequest(c, "invalid "+name, err)
		return 0, false
	}
	return id, true
}

func (h *Handlers) badRequest(c *gin.Context, message string, err error) {
	h.logger.Info("Rejected malformed request", "path", c.Request.URL.Path, "reason", message, "error", err)
	c.JSON(http.StatusBadRequest, Response{
		Success: false,
		Error:   message,
		Kind:    string(apperror.KindValidation),
	})
}

func actorOf(ctx context.Context) entity.Actor {
	actor, _ := identity.ActorFromContext(ctx)
	return actor
}
