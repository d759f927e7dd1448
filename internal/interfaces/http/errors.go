package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/claim-lifecycle/internal/domain/apperror"
)

// retryAfterSeconds is advertised on conflicts a client may re-issue against fresh state
const retryAfterSeconds = "1"

var statusByKind = map[apperror.Kind]int{
	apperror.KindNotFound:            http.StatusNotFound,
	apperror.KindValidation:          http.StatusUnprocessableEntity,
	apperror.KindIllegalTransition:   http.StatusConflict,
	apperror.KindConcurrencyConflict: http.StatusConflict,
	apperror.KindIdentityUnresolved:  http.StatusUnauthorized,
	apperror.KindDependencyFailure:   http.StatusBadGateway,
	apperror.KindForbidden:           http.StatusForbidden,
}

// writeError maps err to a status code and the standard envelope.
// Causes of dependency failures are not exposed to the client.
func writeError(c *gin.Context, err error) {
	var appErr *apperror.Error
	switch {
	case errors.As(err, &appErr):
		status, ok := statusByKind[appErr.Kind]
		if !ok {
			status = http.StatusInternalServerError
		}
		resp := Response{
			Success: false,
			Error:   appErr.Message,
			Kind:    string(appErr.Kind),
		}
		if apperror.IsRetryable(err) {
			resp.Retryable = true
			c.Header("Retry-After", retryAfterSeconds)
		}
		if appErr.Kind == apperror.KindIllegalTransition || appErr.Kind == apperror.KindConcurrencyConflict {
			details := TransitionDetails{ClaimID: appErr.ClaimID, Actual: string(appErr.Actual)}
			for _, s := range appErr.Required {
				details.Required = append(details.Required, string(s))
			}
			resp.Details = details
		}
		c.JSON(status, resp)
	case errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, Response{Success: false, Error: "request timed out"})
	case errors.Is(err, context.Canceled):
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Error: "request cancelled"})
	default:
		c.JSON(http.StatusInternalServerError, Response{
			Success: false,
			Error:   "internal server error",
			Kind:    string(apperror.KindInternal),
		})
	}
}
