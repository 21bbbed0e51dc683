package types

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode is a typed string for categorizing application errors.
type ErrorCode string

// Complete error code constants.
// All components MUST use these constants instead of hardcoded strings.
const (
	// Decode
	ErrCodeDecodeMalformedPayload ErrorCode = "decode_malformed_payload"
	ErrCodeDecodeMissingField     ErrorCode = "decode_missing_required_field"

	// Not Found
	ErrCodeNotFoundCustomer       ErrorCode = "not_found_customer"
	ErrCodeNotFoundMaintenanceJob ErrorCode = "not_found_maintenance_job"

	// Internal
	ErrCodeInternalDB         ErrorCode = "internal_database_error"
	ErrCodeInternalUnexpected ErrorCode = "internal_unexpected_error"

	// Upstream (mail delivery)
	ErrCodeUpstreamEmailProvider ErrorCode = "upstream_email_provider_unavailable"
	ErrCodeUpstreamUnavailable   ErrorCode = "upstream_unavailable"
	ErrCodeUpstreamRateLimited   ErrorCode = "upstream_rate_limited"
	ErrCodeEmailBlocked          ErrorCode = "email_blocked"
	ErrCodeEmailNoRecipient      ErrorCode = "email_no_recipient"
)

// ErrorKind is the coarse failure category used in logs and metrics.
type ErrorKind string

const (
	KindDecode        ErrorKind = "decode"
	KindMissingEntity ErrorKind = "missing_entity"
	KindStore         ErrorKind = "store"
	KindDelivery      ErrorKind = "delivery"
	KindInternal      ErrorKind = "internal"
)

// Kind maps an ErrorCode to its ErrorKind by prefix.
// Returns KindInternal for unrecognized codes.
func (c ErrorCode) Kind() ErrorKind {
	s := string(c)
	switch {
	case strings.HasPrefix(s, "decode_"):
		return KindDecode
	case strings.HasPrefix(s, "not_found_"):
		return KindMissingEntity
	case c == ErrCodeInternalDB:
		return KindStore
	case strings.HasPrefix(s, "upstream_"), strings.HasPrefix(s, "email_"):
		return KindDelivery
	default:
		return KindInternal
	}
}

// AppError is the standard application error type used throughout the worker.
type AppError struct {
	Code    ErrorCode      `json:"code"`
	Message string         `json:"message"`
	Err     error          `json:"-"`
	Details map[string]any `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Kind returns the failure category of this error.
func (e *AppError) Kind() ErrorKind {
	return e.Code.Kind()
}

// NewAppError creates a new AppError with the given code, message, and optional
// underlying error. This is the standard constructor for domain errors.
func NewAppError(code ErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// NewAppErrorWithDetails creates a new AppError with the given code, message,
// underlying error, and structured details.
func NewAppErrorWithDetails(code ErrorCode, message string, err error, details map[string]any) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
		Details: details,
	}
}

// KindOf returns the kind of the first AppError found in err's chain.
// Errors that carry no AppError are internal.
func KindOf(err error) ErrorKind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind()
	}
	return KindInternal
}

// HasCode reports whether any AppError in err's chain carries code.
// Joined errors are searched as well.
func HasCode(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Code == code {
		return true
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range joined.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
	}
	if wrapped := errors.Unwrap(err); wrapped != nil {
		return HasCode(wrapped, code)
	}
	return false
}
