package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	// Ensure this is the correct import used by Gin for binding
	"github.com/go-playground/validator/v10"
)

// APIError represents a standard structure for API errors.
// Detail carries the human-readable message rendered to clients.
type APIError struct {
	StatusCode int               `json:"-"`
	Code       string            `json:"code"`
	Detail     string            `json:"detail"`
	Fields     map[string]string `json:"fields,omitempty"`
	Headers    map[string]string `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("APIError: StatusCode=%d, Code=%s, Detail=%s", e.StatusCode, e.Code, e.Detail)
}

// Is matches API errors by code so that errors.Is works against the
// predefined values even after WithDetail produced a copy.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.StatusCode == t.StatusCode
}

func NewAPIError(statusCode int, code, detail string) *APIError {
	return &APIError{StatusCode: statusCode, Code: code, Detail: detail}
}

// WithDetail returns a copy of e carrying detail. The predefined errors below
// are shared, so they must never be mutated in place.
func (e *APIError) WithDetail(detail string) *APIError {
	cp := *e
	cp.Detail = detail
	return &cp
}

// WithHeader returns a copy of e that sets an extra response header.
func (e *APIError) WithHeader(key, value string) *APIError {
	cp := *e
	cp.Headers = make(map[string]string, len(e.Headers)+1)
	for k, v := range e.Headers {
		cp.Headers[k] = v
	}
	cp.Headers[key] = value
	return &cp
}

var (
	ErrBadRequest         = NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "The request is invalid.")
	ErrUnauthorized       = NewAPIError(http.StatusUnauthorized, "UNAUTHORIZED", "Authentication is required and has failed or has not yet been provided.")
	ErrNotFound           = NewAPIError(http.StatusNotFound, "NOT_FOUND", "The requested resource could not be found.")
	ErrMethodNotAllowed   = NewAPIError(http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "The method is not allowed for the requested URL.")
	ErrConflict           = NewAPIError(http.StatusConflict, "CONFLICT", "A conflict occurred with the current state of the resource.")
	ErrConsistency        = NewAPIError(http.StatusConflict, "CONSISTENCY_ERROR", "Stored account data does not match the identity provider.")
	ErrPayloadTooLarge    = NewAPIError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "The request body is too large.")
	ErrInternalServer     = NewAPIError(http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An unexpected error occurred on the server.")
	ErrServiceUnavailable = NewAPIError(http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "The server is currently unable to handle the request.")
)

func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

func NewValidationAPIError(fields map[string]string) *APIError {
	return &APIError{
		StatusCode: http.StatusUnprocessableEntity,
		Code:       "VALIDATION_ERROR",
		Detail:     "Input validation failed.",
		Fields:     fields,
	}
}

// FormatValidationErrors converts validator.ValidationErrors into a map.
func FormatValidationErrors(errs validator.ValidationErrors) map[string]string {
	errorMap := make(map[string]string)
	for _, e := range errs {
		field := e.Field()
		var message string
		switch e.Tag() {
		case "required":
			message = fmt.Sprintf("The %s field is required.", strings.ToLower(field))
		case "email":
			message = fmt.Sprintf("The %s field must be a valid email address.", strings.ToLower(field))
		case "min":
			message = fmt.Sprintf("The %s field must be at least %s characters long.", strings.ToLower(field), e.Param())
		case "max":
			message = fmt.Sprintf("The %s field may not be greater than %s characters.", strings.ToLower(field), e.Param())
		case "oneof":
			message = fmt.Sprintf("The %s field must be one of the following values: %s.", strings.ToLower(field), e.Param())
		case "datetime":
			message = fmt.Sprintf("The %s field must be a valid date in the format %s.", strings.ToLower(field), e.Param())
		default:
			message = fmt.Sprintf("Field validation for '%s' failed on the '%s' tag.", field, e.Tag())
		}
		errorMap[field] = message
	}
	return errorMap
}
