package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	accessdomain "github.com/paylanka/paylanka/internal/access/domain"
	invoicedomain "github.com/paylanka/paylanka/internal/invoice/domain"
	paymentdomain "github.com/paylanka/paylanka/internal/payment/domain"
	payrollratesdomain "github.com/paylanka/paylanka/internal/payrollrates/domain"
	plandomain "github.com/paylanka/paylanka/internal/plan/domain"
	subscriptiondomain "github.com/paylanka/paylanka/internal/subscription/domain"
	taxdomain "github.com/paylanka/paylanka/internal/tax/domain"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidRequest = errors.New("invalid_request")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized, errorPayload{
			Type:    "unauthorized",
			Message: "unauthorized",
		}
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "forbidden",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Message: err.Error(),
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: err.Error(),
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isValidationError(err error) bool {
	for _, candidate := range []error{
		ErrInvalidRequest,
		plandomain.ErrInvalidID,
		plandomain.ErrInvalidName,
		plandomain.ErrInvalidPrice,
		plandomain.ErrInvalidLimits,
		subscriptiondomain.ErrInvalidID,
		subscriptiondomain.ErrEmailNotVerified,
		subscriptiondomain.ErrPasswordNotSet,
		subscriptiondomain.ErrInvalidAddonType,
		subscriptiondomain.ErrInvalidAddonValue,
		invoicedomain.ErrInvalidID,
		invoicedomain.ErrInvalidAmount,
		invoicedomain.ErrInvalidBillingMonth,
		paymentdomain.ErrInvalidID,
		paymentdomain.ErrInvalidProvider,
		paymentdomain.ErrInvalidPayload,
		paymentdomain.ErrInvalidEvent,
		paymentdomain.ErrInvalidSignature,
		paymentdomain.ErrWrongGateway,
		payrollratesdomain.ErrInvalidID,
		payrollratesdomain.ErrInvalidEffectiveFrom,
		payrollratesdomain.ErrInvalidRates,
		accessdomain.ErrInvalidID,
		taxdomain.ErrInvalidGross,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func isConflictError(err error) bool {
	for _, candidate := range []error{
		plandomain.ErrDuplicateName,
		subscriptiondomain.ErrActiveExists,
		subscriptiondomain.ErrInvalidTransition,
		subscriptiondomain.ErrSamePlan,
		invoicedomain.ErrAlreadyPaid,
		invoicedomain.ErrNotPending,
		paymentdomain.ErrInvoiceNotPayable,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}

func isNotFoundError(err error) bool {
	for _, candidate := range []error{
		plandomain.ErrNotFound,
		subscriptiondomain.ErrNotFound,
		subscriptiondomain.ErrUserNotFound,
		subscriptiondomain.ErrPlanNotFound,
		subscriptiondomain.ErrNoActiveSubscription,
		invoicedomain.ErrNotFound,
		paymentdomain.ErrIntentNotFound,
		paymentdomain.ErrProviderNotFound,
		payrollratesdomain.ErrNotFound,
		payrollratesdomain.ErrNoActiveTable,
	} {
		if errors.Is(err, candidate) {
			return true
		}
	}
	return false
}
