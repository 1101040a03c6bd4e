package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mikepea/foodshare/pkg/foodshare/logger"
	"gorm.io/gorm"
)

// Kind is the error category reported in the "error" field of responses
type Kind string

const (
	KindValidation     Kind = "ValidationError"
	KindAuthentication Kind = "AuthenticationFailed"
	KindRateLimited    Kind = "RateLimited"
	KindForbidden      Kind = "Forbidden"
	KindNotFound       Kind = "NotFound"
	KindConflict       Kind = "Conflict"
	KindInternal       Kind = "InternalError"
)

// AppError is an error that knows how it should be reported to clients
type AppError struct {
	Kind    Kind
	Message string
	// Status overrides the kind's default HTTP status when non-zero
	Status int
	Err    error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the status code the error is reported with
func (e *AppError) HTTPStatus() int {
	if e.Status != 0 {
		return e.Status
	}
	return StatusFor(e.Kind)
}

// StatusFor returns the default HTTP status for a kind
func StatusFor(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message}
}

func Wrap(err error, kind Kind, message string) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func Validation(format string, args ...interface{}) *AppError {
	return New(KindValidation, fmt.Sprintf(format, args...))
}

func Unauthenticated(message string) *AppError {
	return New(KindAuthentication, message)
}

func RateLimited(message string) *AppError {
	return New(KindRateLimited, message)
}

func Forbidden(message string) *AppError {
	return New(KindForbidden, message)
}

func NotFound(message string) *AppError {
	return New(KindNotFound, message)
}

// Conflict reports a duplicate resource (409)
func Conflict(message string) *AppError {
	return New(KindConflict, message)
}

// StateConflict reports an invalid state transition or a duplicate claim (400)
func StateConflict(message string) *AppError {
	return &AppError{Kind: KindConflict, Message: message, Status: http.StatusBadRequest}
}

// Internal wraps an unexpected failure; the message is what clients see
func Internal(err error, message string) *AppError {
	return Wrap(err, KindInternal, message)
}

// IsUniqueViolation reports whether err is a unique constraint failure
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value")
}

// IsNotFound reports whether err is gorm's record-not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Body is the JSON error envelope
type Body struct {
	Error   Kind   `json:"error"`
	Message string `json:"message"`
}

// Respond writes err as a JSON error envelope and aborts the request.
// Errors that are not AppErrors are logged and reported as InternalError.
func Respond(c *gin.Context, err error) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Internal(err, "An unexpected error occurred")
	}

	status := appErr.HTTPStatus()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err,
		)
		_ = c.Error(err)
	}

	c.AbortWithStatusJSON(status, Body{Error: appErr.Kind, Message: appErr.Message})
}

// Recovery converts panics into an InternalError envelope
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		Respond(c, fmt.Errorf("panic: %v", recovered))
	})
}

// NotFoundHandler answers unknown routes with the error envelope
func NotFoundHandler(c *gin.Context) {
	Respond(c, NotFound("Route not found"))
}
