package models

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"siliconflow-balance-plugin/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Balance query failures, reported inside a command outcome
	ErrorCodeMissingAPIKey     ErrorCode = "MISSING_API_KEY"
	ErrorCodeInvalidAPIKey     ErrorCode = "INVALID_API_KEY"
	ErrorCodeUpstreamError     ErrorCode = "UPSTREAM_ERROR"
	ErrorCodeMalformedResponse ErrorCode = "MALFORMED_RESPONSE"
	ErrorCodeQueryException    ErrorCode = "QUERY_EXCEPTION"

	// Inbound authentication errors
	ErrorCodeMissingToken ErrorCode = "MISSING_TOKEN"
	ErrorCodeInvalidToken ErrorCode = "INVALID_TOKEN"

	// Command dispatch errors
	ErrorCodeUnknownCommand     ErrorCode = "UNKNOWN_COMMAND"
	ErrorCodePermissionDenied   ErrorCode = "PERMISSION_DENIED"
	ErrorCodeChatTypeNotAllowed ErrorCode = "CHAT_TYPE_NOT_ALLOWED"

	// Validation errors
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrorCodeMalformedJSON  ErrorCode = "MALFORMED_JSON"

	// Internal errors
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatusCode returns the status code used when the error is served over HTTP.
// Query failures map to 200 because the command itself ran.
func (e ErrorCode) HTTPStatusCode() int {
	switch e {
	case ErrorCodeMissingAPIKey, ErrorCodeInvalidAPIKey, ErrorCodeUpstreamError,
		ErrorCodeMalformedResponse, ErrorCodeQueryException:
		return http.StatusOK
	case ErrorCodeMissingToken, ErrorCodeInvalidToken:
		return http.StatusUnauthorized
	case ErrorCodePermissionDenied, ErrorCodeChatTypeNotAllowed:
		return http.StatusForbidden
	case ErrorCodeUnknownCommand:
		return http.StatusNotFound
	case ErrorCodeInvalidRequest, ErrorCodeMalformedJSON:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// ErrorDetail represents detailed error information
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Error         ErrorDetail `json:"error"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// NewErrorResponse creates a new error response with timestamp
func NewErrorResponse(code ErrorCode, message, details, correlationID string) *ErrorResponse {
	return &ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
	}
}

// AppError represents an application error with context
type AppError struct {
	Code       ErrorCode
	Message    string
	Details    string
	Cause      error
	Context    map[string]interface{}
	StatusCode int
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: code.HTTPStatusCode(),
		Context:    make(map[string]interface{}),
	}
}

// NewAppErrorWithCause creates a new application error with underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	appErr := NewAppError(code, message)
	appErr.Cause = cause
	return appErr
}

// NewAppErrorWithDetails creates a new application error with details
func NewAppErrorWithDetails(code ErrorCode, message, details string) *AppError {
	appErr := NewAppError(code, message)
	appErr.Details = details
	return appErr
}

// HandleError logs err and writes the JSON error envelope.
// Errors that are not an *AppError become INTERNAL_ERROR.
func HandleError(c *gin.Context, err error, log *logger.Logger) {
	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = NewAppErrorWithCause(ErrorCodeInternalError, "Internal server error", err)
	}

	appErr.WithContext("method", c.Request.Method).
		WithContext("path", c.Request.URL.Path).
		WithContext("client_ip", c.ClientIP())

	if log == nil {
		log = logger.GetLogger()
	}
	contextLogger := log.WithContext(c.Request.Context())

	logFields := []zap.Field{
		zap.String("error_code", string(appErr.Code)),
		zap.String("error_message", appErr.Message),
		zap.Any("error_context", appErr.Context),
	}
	if appErr.Cause != nil {
		logFields = append(logFields, zap.Error(appErr.Cause))
	}

	if appErr.StatusCode >= 500 {
		contextLogger.Error("Application error", logFields...)
	} else {
		contextLogger.Warn("Client error", logFields...)
	}

	correlationID := logger.GetCorrelationIDFromContext(c.Request.Context())
	c.JSON(appErr.StatusCode, NewErrorResponse(appErr.Code, appErr.Message, appErr.Details, correlationID))
}

// NewValidationError creates a validation error
func NewValidationError(message, details string) *AppError {
	return NewAppErrorWithDetails(ErrorCodeInvalidRequest, message, details)
}
