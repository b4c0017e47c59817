package publish

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MissingEnvError is returned when required configuration is missing.
type MissingEnvError struct {
	Provider  string
	Variables []string
}

func (e MissingEnvError) Error() string {
	if len(e.Variables) == 0 {
		return fmt.Sprintf("%s credentials not configured", e.Provider)
	}
	return fmt.Sprintf("%s credentials not configured (missing %s)", e.Provider, strings.Join(e.Variables, ", "))
}

// Kind classifies a publish failure.
type Kind string

const (
	KindAPI                Kind = "api"
	KindMissingCredentials Kind = "missing_credentials"
	KindCredentialLookup   Kind = "credential_lookup"
	KindValidation         Kind = "validation"
	KindResolution         Kind = "resolution"
	KindNotImplemented     Kind = "not_implemented"
	KindUnsupported        Kind = "unsupported"
	KindRetryExhausted     Kind = "retry_exhausted"
)

// Error is a failure tied to one platform. Retryable is decided where the
// error is raised; only KindAPI errors are ever retryable.
type Error struct {
	Kind       Kind
	Platform   Platform
	Message    string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// MissingCredentials reports that no token is stored for the platform.
func MissingCredentials(p Platform) *Error {
	return &Error{
		Kind:       KindMissingCredentials,
		Platform:   p,
		Message:    fmt.Sprintf("No OAuth credentials found for %s", p),
		StatusCode: http.StatusUnauthorized,
	}
}

// CredentialLookupFailed wraps a credential store failure.
func CredentialLookupFailed(p Platform, err error) *Error {
	return &Error{
		Kind:       KindCredentialLookup,
		Platform:   p,
		Message:    fmt.Sprintf("credential lookup for %s failed: %v", p, err),
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

// Validation captures platform-specific input issues found before any
// network call.
func Validation(p Platform, reason string) *Error {
	return &Error{
		Kind:       KindValidation,
		Platform:   p,
		Message:    fmt.Sprintf("%s validation failed: %s", p, reason),
		StatusCode: http.StatusBadRequest,
	}
}

// ResolutionFailed reports that a page, account or organization could not
// be discovered.
func ResolutionFailed(p Platform, status int, message string) *Error {
	if status == 0 {
		status = http.StatusNotFound
	}
	return &Error{
		Kind:       KindResolution,
		Platform:   p,
		Message:    message,
		StatusCode: status,
	}
}

// NotImplemented is the fixed failure of stub platforms.
func NotImplemented(p Platform) *Error {
	return &Error{
		Kind:       KindNotImplemented,
		Platform:   p,
		Message:    fmt.Sprintf("%s auto-post not implemented. Connect a %s publisher to enable it.", p.Title(), p.Title()),
		StatusCode: http.StatusNotImplemented,
	}
}

// UnsupportedPlatform reports a platform with no registered publisher.
func UnsupportedPlatform(p Platform) *Error {
	return &Error{
		Kind:       KindUnsupported,
		Platform:   p,
		Message:    fmt.Sprintf("Unsupported platform: %s", p),
		StatusCode: http.StatusBadRequest,
	}
}

// APIError wraps a failed publish call.
func APIError(p Platform, status int, message string, retryable bool, err error) *Error {
	return &Error{
		Kind:       KindAPI,
		Platform:   p,
		Message:    message,
		StatusCode: status,
		Retryable:  retryable,
		Err:        err,
	}
}

// RetryableStatus reports whether an HTTP status is worth another attempt.
// Authentication, permission and not-found responses never are.
func RetryableStatus(status int) bool {
	switch {
	case status == 0:
		return true
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests:
		return true
	case status >= 500:
		return true
	}
	return false
}

// IsRetryable applies the default policy: retry unless the error is a
// *Error explicitly flagged otherwise.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	return true
}

// StatusCode extracts the HTTP-equivalent status of err, or 0.
func StatusCode(err error) int {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.StatusCode
	}
	return 0
}
