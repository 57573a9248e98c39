package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// RetryableError indicates an error that might be resolved by retrying.
type RetryableError struct {
	Err error
}

// Error implements the error interface.
func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryable wraps the given error as a RetryableError, adding a message.
func NewRetryable(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &RetryableError{Err: fmt.Errorf(format, allArgs...)}
}

// FatalError indicates an error that is unlikely to be resolved by retrying.
type FatalError struct {
	Err error
}

// Error implements the error interface.
func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal: %v", e.Err)
}

// Unwrap returns the wrapped error.
func (e *FatalError) Unwrap() error {
	return e.Err
}

// NewFatal wraps the given error as a FatalError, adding a message.
func NewFatal(err error, message string, args ...interface{}) error {
	format := message + ": %w"
	allArgs := append(args, err)
	return &FatalError{Err: fmt.Errorf(format, allArgs...)}
}

// --- Standard Error Definitions ---

// These sentinel errors define common application-level error conditions.
// They can be checked using errors.Is and wrapped by RetryableError or FatalError
// depending on the context where they are handled.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")
	// ErrValidation indicates bad or missing required input.
	ErrValidation = errors.New("validation failed")
	// ErrDatabase indicates the datastore is unavailable or rejected the operation.
	ErrDatabase = errors.New("database error")
	// ErrNATS indicates a general NATS communication error.
	ErrNATS = errors.New("nats communication error")
	// ErrDuplicate indicates a conflict due to duplicate data (e.g., unique constraint).
	ErrDuplicate = errors.New("duplicate resource")
	// ErrBadRequest indicates a malformed request from the client/caller.
	ErrBadRequest = errors.New("bad request")
	// ErrUpstream indicates the external webhook was unreachable, answered non-2xx,
	// or returned a body that could not be used.
	ErrUpstream = errors.New("upstream error")
	// ErrUpstreamTimeout indicates the external webhook did not answer in time.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)

// --- Helper functions for checking ---

// IsRetryable checks if the error is a RetryableError or wraps one.
func IsRetryable(err error) bool {
	var target *RetryableError
	return errors.As(err, &target)
}

// IsFatal checks if the error is a FatalError or wraps one.
func IsFatal(err error) bool {
	var target *FatalError
	return errors.As(err, &target)
}

// IsNotFoundError checks if the error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if the error is or wraps ErrValidation.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsDatabaseError checks if the error is or wraps ErrDatabase.
func IsDatabaseError(err error) bool {
	return errors.Is(err, ErrDatabase)
}

// IsNATSError checks if the error is or wraps ErrNATS.
func IsNATSError(err error) bool {
	return errors.Is(err, ErrNATS)
}

// IsDuplicateError checks if the error is or wraps ErrDuplicate.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsBadRequestError checks if the error is or wraps ErrBadRequest.
func IsBadRequestError(err error) bool {
	return errors.Is(err, ErrBadRequest)
}

// IsUpstreamError checks if the error is or wraps ErrUpstream.
func IsUpstreamError(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsUpstreamTimeoutError checks if the error is or wraps ErrUpstreamTimeout.
func IsUpstreamTimeoutError(err error) bool {
	return errors.Is(err, ErrUpstreamTimeout)
}

// HTTPStatus maps an error chain to the status code reported to API callers.
// Order matters: a timeout is checked before the generic upstream error, and
// validation before database so a rejected constraint reads as bad input.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsValidationError(err), IsBadRequestError(err):
		return http.StatusBadRequest
	case IsNotFoundError(err):
		return http.StatusNotFound
	case IsDuplicateError(err):
		return http.StatusConflict
	case IsUpstreamTimeoutError(err):
		return http.StatusGatewayTimeout
	case IsUpstreamError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Kind returns a short stable name for the error category, used in API error
// bodies and metric labels.
func Kind(err error) string {
	switch {
	case err == nil:
		return "none"
	case IsValidationError(err), IsBadRequestError(err):
		return "validation_error"
	case IsNotFoundError(err):
		return "not_found"
	case IsDuplicateError(err):
		return "duplicate"
	case IsUpstreamTimeoutError(err):
		return "upstream_timeout"
	case IsUpstreamError(err):
		return "upstream_error"
	case IsDatabaseError(err):
		return "persistence_error"
	case IsNATSError(err):
		return "nats_error"
	default:
		return "internal_error"
	}
}
