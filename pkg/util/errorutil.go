package util

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes scoped to the operations that can fail. Validation and
// not-found are raised client-side before any network call; the rest map
// gateway rejections. AUDIT_FAILED marks the partial-failure case where a
// ticket mutation committed but the paired audit append did not.
const (
	CodeValidationFailed = "VALIDATION_FAILED"
	CodeAuthFailed       = "AUTH_FAILED"
	CodeNotFound         = "NOT_FOUND"
	CodeFetchFailed      = "FETCH_FAILED"
	CodeCreateFailed     = "CREATE_FAILED"
	CodeUpdateFailed     = "UPDATE_FAILED"
	CodeActivityFailed   = "ACTIVITY_FAILED"
	CodeAuditFailed      = "AUDIT_FAILED"
	CodeInternalError    = "INTERNAL_ERROR"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidationFailed, message, http.StatusBadRequest, details)
}

func NewAuthError(message string, err error) error {
	return &DomainError{
		Code:       CodeAuthFailed,
		Message:    message,
		HTTPStatus: http.StatusUnauthorized,
		Err:        err,
	}
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewFetchError(message string, err error) error {
	return operationError(CodeFetchFailed, message, err)
}

func NewCreateError(message string, err error) error {
	return operationError(CodeCreateFailed, message, err)
}

func NewUpdateError(message string, err error) error {
	return operationError(CodeUpdateFailed, message, err)
}

func NewActivityError(message string, err error) error {
	return operationError(CodeActivityFailed, message, err)
}

// NewAuditError wraps an activity-append failure that happened after the
// primary mutation was already persisted by the gateway.
func NewAuditError(message string, err error) error {
	return operationError(CodeAuditFailed, message, err)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func operationError(code, message string, err error) error {
	return &DomainError{
		Code:       code,
		Message:    message,
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       CodeInternalError,
		Message:    "internal error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// HasCode reports whether err carries the given error code anywhere in its
// chain.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	if domainErr.Code == code {
		return true
	}
	return HasCode(domainErr.Err, code)
}
