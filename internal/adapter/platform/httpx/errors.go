package httpx

import (
	"fmt"

	"github.com/bkyoung/review-gateway/internal/domain"
)

// ErrorType categorizes a connector failure.
type ErrorType int

const (
	ErrTypeAuthentication ErrorType = iota
	ErrTypeAuthorization
	ErrTypeNotFound
	ErrTypeRateLimit
	ErrTypeValidation
	ErrTypeUnavailable
	ErrTypeTimeout
	ErrTypeContract
	ErrTypeUnknown
)

// String returns a human-readable description of the error type.
func (e ErrorType) String() string {
	switch e {
	case ErrTypeAuthentication:
		return "authentication failed"
	case ErrTypeAuthorization:
		return "permission denied"
	case ErrTypeNotFound:
		return "resource not found"
	case ErrTypeRateLimit:
		return "rate limit exceeded"
	case ErrTypeValidation:
		return "invalid request"
	case ErrTypeUnavailable:
		return "service unavailable"
	case ErrTypeTimeout:
		return "timeout"
	case ErrTypeContract:
		return "connector contract violation"
	default:
		return "unknown error"
	}
}

// Error is a typed connector failure carrying the platform and HTTP status
// it originated from.
type Error struct {
	Type       ErrorType
	Platform   domain.Platform
	Message    string
	StatusCode int
	Retryable  bool
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s: %s", e.Platform, e.Type, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s (status %d)", e.Platform, e.Type, e.Message, e.StatusCode)
}

// Is matches on error type, so errors.Is(err, &Error{Type: ...}) and the
// exported sentinels below work across platforms.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsRetryable reports whether retrying the operation could succeed.
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// ErrNotValidated is returned when a connector operation is invoked before
// a successful Validate call. Match with errors.Is.
var ErrNotValidated = &Error{
	Type:    ErrTypeContract,
	Message: "operation invoked before Validate",
}

// NewNotValidatedError builds the fail-fast error for a connector used
// before its credential preflight succeeded.
func NewNotValidatedError(platform domain.Platform) *Error {
	return &Error{
		Type:     ErrTypeContract,
		Platform: platform,
		Message:  "operation invoked before Validate",
	}
}

// NewTimeoutError wraps a request that exceeded its deadline.
func NewTimeoutError(platform domain.Platform, message string) *Error {
	return &Error{
		Type:      ErrTypeTimeout,
		Platform:  platform,
		Message:   message,
		Retryable: true,
	}
}

// MapStatus translates a non-2xx HTTP status into a typed Error. The message
// should already be extracted from the platform's error body by the caller,
// since every platform shapes that body differently.
func MapStatus(platform domain.Platform, statusCode int, message string) *Error {
	if message == "" {
		message = fmt.Sprintf("HTTP %d", statusCode)
	}
	err := &Error{
		Platform:   platform,
		Message:    message,
		StatusCode: statusCode,
	}

	switch statusCode {
	case 401:
		err.Type = ErrTypeAuthentication
	case 403:
		err.Type = ErrTypeAuthorization
	case 404:
		err.Type = ErrTypeNotFound
	case 408:
		err.Type = ErrTypeTimeout
		err.Retryable = true
	case 429:
		err.Type = ErrTypeRateLimit
		err.Retryable = true
	case 400, 422:
		err.Type = ErrTypeValidation
	case 500, 502, 503, 504:
		err.Type = ErrTypeUnavailable
		err.Retryable = true
	default:
		err.Type = ErrTypeUnknown
	}
	return err
}
