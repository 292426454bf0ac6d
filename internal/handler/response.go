package handler

import (
	"errors"
	"net/http"

	"github.com/bingovintage/loan-engine/internal/domain"
	"github.com/bingovintage/loan-engine/internal/middleware"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// ProblemDetails represents an RFC 7807 Problem Details response.
// Code carries the stable error kind so clients need not parse the title.
type ProblemDetails struct {
	Type      string            `json:"type"`
	Title     string            `json:"title"`
	Status    int               `json:"status"`
	Code      domain.ErrorKind  `json:"code,omitempty"`
	Detail    string            `json:"detail,omitempty"`
	Instance  string            `json:"instance,omitempty"`
	Retriable bool              `json:"retriable,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation   = "https://bingovintage.ug/errors/validation"
	ErrorTypeNotFound     = "https://bingovintage.ug/errors/not-found"
	ErrorTypeUnauthorized = "https://bingovintage.ug/errors/unauthorized"
	ErrorTypeForbidden    = "https://bingovintage.ug/errors/forbidden"
	ErrorTypeConflict     = "https://bingovintage.ug/errors/conflict"
	ErrorTypeTransition   = "https://bingovintage.ug/errors/illegal-transition"
	ErrorTypeUnavailable  = "https://bingovintage.ug/errors/unavailable"
	ErrorTypeInternal     = "https://bingovintage.ug/errors/internal"
)

// NewValidationError creates a validation error response
func NewValidationError(c echo.Context, detail string, errors []ValidationError) error {
	return c.JSON(http.StatusBadRequest, ProblemDetails{
		Type:     ErrorTypeValidation,
		Title:    "Validation Error",
		Status:   http.StatusBadRequest,
		Detail:   detail,
		Instance: c.Request().URL.Path,
		Errors:   errors,
	})
}

// NewNotFoundError creates a not found error response
func NewNotFoundError(c echo.Context, detail string) error {
	return c.JSON(http.StatusNotFound, ProblemDetails{
		Type:     ErrorTypeNotFound,
		Title:    "Not Found",
		Status:   http.StatusNotFound,
		Code:     domain.KindNotFound,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewUnauthorizedError creates an unauthorized error response
func NewUnauthorizedError(c echo.Context, detail string) error {
	return c.JSON(http.StatusUnauthorized, ProblemDetails{
		Type:     ErrorTypeUnauthorized,
		Title:    "Unauthorized",
		Status:   http.StatusUnauthorized,
		Detail:   detail,
		Instance: c.Request().URL.Path,
	})
}

// NewInternalError creates an internal error response
func NewInternalError(c echo.Context, detail string) error {
	return c.JSON(http.StatusInternalServerError, ProblemDetails{
		Type:      ErrorTypeInternal,
		Title:     "Internal Server Error",
		Status:    http.StatusInternalServerError,
		Code:      domain.KindInternalFailure,
		Detail:    detail,
		Instance:  c.Request().URL.Path,
		Retriable: true,
	})
}

// problemFor maps an error kind to its HTTP status, type and title
func problemFor(kind domain.ErrorKind) (int, string, string) {
	switch kind {
	case domain.KindInvalidTerms:
		return http.StatusBadRequest, ErrorTypeValidation, "Invalid Loan Terms"
	case domain.KindInvalidPayment:
		return http.StatusBadRequest, ErrorTypeValidation, "Invalid Payment"
	case domain.KindMissingJustification:
		return http.StatusBadRequest, ErrorTypeValidation, "Missing Justification"
	case domain.KindAccessDenied:
		return http.StatusForbidden, ErrorTypeForbidden, "Forbidden"
	case domain.KindIllegalTransition:
		return http.StatusConflict, ErrorTypeTransition, "Illegal Transition"
	case domain.KindConflict:
		return http.StatusConflict, ErrorTypeConflict, "Conflict"
	case domain.KindNotFound:
		return http.StatusNotFound, ErrorTypeNotFound, "Not Found"
	default:
		return http.StatusInternalServerError, ErrorTypeInternal, "Internal Server Error"
	}
}

// respondError writes the problem details for a service error. Internal
// failures are logged and their detail withheld.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidClient), errors.Is(err, domain.ErrInvalidDocument):
		return NewValidationError(c, err.Error(), nil)
	case errors.Is(err, domain.ErrStorageNotConfigured):
		return c.JSON(http.StatusServiceUnavailable, ProblemDetails{
			Type:     ErrorTypeUnavailable,
			Title:    "Service Unavailable",
			Status:   http.StatusServiceUnavailable,
			Detail:   err.Error(),
			Instance: c.Request().URL.Path,
		})
	}

	kind := domain.KindOf(err)
	status, problemType, title := problemFor(kind)
	detail := err.Error()
	if kind == domain.KindInternalFailure {
		actor, _ := middleware.GetActor(c)
		log.Error().
			Err(err).
			Str("path", c.Request().URL.Path).
			Str("actor_id", actor.ID).
			Msg("Request failed")
		detail = "An unexpected error occurred"
	}

	return c.JSON(status, ProblemDetails{
		Type:      problemType,
		Title:     title,
		Status:    status,
		Code:      kind,
		Detail:    detail,
		Instance:  c.Request().URL.Path,
		Retriable: domain.IsRetriable(err),
	})
}
