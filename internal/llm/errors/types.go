// Package errors defines typed errors for LLM gateway operations, with
// classification that distinguishes configuration faults (surfaced to the
// user before any network round-trip) from provider-side failures.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorType categorizes gateway failures.
type ErrorType string

const (
	// ErrorTypeConfiguration indicates a misconfigured prompt or provider:
	// bad key prefix, missing base URL, unknown provider. Fails fast.
	ErrorTypeConfiguration ErrorType = "configuration"

	// ErrorTypeAuth indicates the provider rejected the credentials.
	ErrorTypeAuth ErrorType = "authentication"

	// ErrorTypePermission indicates the key lacks access to the resource.
	ErrorTypePermission ErrorType = "permission_denied"

	// ErrorTypeNotFound indicates a wrong model or endpoint.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeRateLimit indicates the provider throttled the request.
	ErrorTypeRateLimit ErrorType = "rate_limit"

	// ErrorTypeProvider indicates a provider-side failure (5xx).
	ErrorTypeProvider ErrorType = "provider_unavailable"

	// ErrorTypeNetwork indicates transport-level connectivity problems.
	ErrorTypeNetwork ErrorType = "network"

	// ErrorTypeUnknown indicates an unclassified error.
	ErrorTypeUnknown ErrorType = "unknown"
)

// Common gateway errors.
var (
	// ErrMissingAPIKey indicates no API key was available for the call.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrMissingBaseURL indicates a custom provider without an explicit base URL.
	ErrMissingBaseURL = errors.New("custom provider requires an explicit base URL")

	// ErrInvalidKeyFormat indicates a key that does not match the vendor's
	// expected prefix. Caught before any network round-trip.
	ErrInvalidKeyFormat = errors.New("API key does not match the provider's expected format")

	// ErrEmptyResponse indicates the provider returned no usable content.
	ErrEmptyResponse = errors.New("provider returned an empty response")
)

// ProviderError is an error returned by a provider's HTTP endpoint, carrying
// enough context to produce a user-facing message and to classify the failure.
type ProviderError struct {
	Provider   string    `json:"provider"`
	StatusCode int       `json:"status_code"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	Type       ErrorType `json:"type"`
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider error (HTTP %d, %s): %s",
		e.Provider, e.StatusCode, e.Type, e.Message)
}

// ConfigError is a configuration fault detected before issuing any request.
// The message is user-facing: it names what to fix, not internals.
type ConfigError struct {
	Provider string `json:"provider"`
	Message  string `json:"message"`

	cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s configuration error: %s", e.Provider, e.Message)
}

// Unwrap exposes the sentinel cause, when one was attached, for errors.Is.
func (e *ConfigError) Unwrap() error { return e.cause }

// NewConfigError creates a configuration error for the given provider.
func NewConfigError(provider, format string, args ...any) *ConfigError {
	return &ConfigError{Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// WrapConfigError is NewConfigError with a sentinel cause attached.
func WrapConfigError(provider string, cause error, format string, args ...any) *ConfigError {
	return &ConfigError{
		Provider: provider,
		Message:  fmt.Sprintf(format, args...),
		cause:    cause,
	}
}

// Classify maps an HTTP status code to an ErrorType.
func Classify(statusCode int) ErrorType {
	switch {
	case statusCode == http.StatusUnauthorized:
		return ErrorTypeAuth
	case statusCode == http.StatusForbidden:
		return ErrorTypePermission
	case statusCode == http.StatusNotFound:
		return ErrorTypeNotFound
	case statusCode == http.StatusTooManyRequests:
		return ErrorTypeRateLimit
	case statusCode >= 500:
		return ErrorTypeProvider
	case statusCode >= 400:
		return ErrorTypeUnknown
	default:
		return ErrorTypeUnknown
	}
}

// IsConfiguration reports whether the error is a fail-fast configuration fault.
func IsConfiguration(err error) bool {
	var cfgErr *ConfigError
	return errors.As(err, &cfgErr)
}
