package ai

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	KindRateLimitExceeded    ErrorKind = "rate_limit_exceeded"
	KindInvalidRequest       ErrorKind = "invalid_request"
	KindServerError          ErrorKind = "server_error"
	KindHTTPError            ErrorKind = "http_error"
	KindNetworkError         ErrorKind = "network_error"
	KindTimeout              ErrorKind = "timeout"
	KindDecodingError        ErrorKind = "decoding_error"
	KindEncodingError        ErrorKind = "encoding_error"
	KindUnknownError         ErrorKind = "unknown_error"
	KindInvalidConfiguration ErrorKind = "invalid_configuration"
)

// Sentinels for errors.Is matching on kind alone:
//
//	if errors.Is(err, ai.ErrRateLimitExceeded) { ... }
var (
	ErrAuthenticationFailed = &ProviderError{Kind: KindAuthenticationFailed}
	ErrRateLimitExceeded    = &ProviderError{Kind: KindRateLimitExceeded}
	ErrInvalidRequest       = &ProviderError{Kind: KindInvalidRequest}
	ErrServerError          = &ProviderError{Kind: KindServerError}
	ErrHTTPError            = &ProviderError{Kind: KindHTTPError}
	ErrNetworkError         = &ProviderError{Kind: KindNetworkError}
	ErrTimeout              = &ProviderError{Kind: KindTimeout}
	ErrDecodingError        = &ProviderError{Kind: KindDecodingError}
	ErrEncodingError        = &ProviderError{Kind: KindEncodingError}
	ErrUnknownError         = &ProviderError{Kind: KindUnknownError}
	ErrInvalidConfiguration = &ProviderError{Kind: KindInvalidConfiguration}
)

// ProviderError is the single error type surfaced by adapters. Provider and
// StatusCode are set only for the kinds that carry them; Err holds the
// underlying cause for network, decoding, encoding and unknown errors.
type ProviderError struct {
	Kind       ErrorKind
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	switch e.Kind {
	case KindAuthenticationFailed:
		return fmt.Sprintf("%s: authentication failed: %s", e.Provider, e.Message)
	case KindRateLimitExceeded:
		return fmt.Sprintf("%s: rate limit exceeded: %s", e.Provider, e.Message)
	case KindInvalidRequest:
		return "invalid request: " + e.Message
	case KindServerError:
		return fmt.Sprintf("server error (status %d): %s", e.StatusCode, e.Message)
	case KindHTTPError:
		return fmt.Sprintf("http error (status %d): %s", e.StatusCode, e.Message)
	case KindNetworkError:
		return "network error: " + e.causeText()
	case KindTimeout:
		return "request timed out"
	case KindDecodingError:
		return "failed to decode response: " + e.causeText()
	case KindEncodingError:
		return "failed to encode request: " + e.causeText()
	case KindInvalidConfiguration:
		return fmt.Sprintf("%s: invalid configuration: %s", e.Provider, e.Message)
	}
	return "unknown error: " + e.causeText()
}

func (e *ProviderError) causeText() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return "no details"
}

// Unwrap exposes the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Err }

// Is matches another *ProviderError by kind, so the package sentinels work
// with errors.Is regardless of provider, status or message.
func (e *ProviderError) Is(target error) bool {
	other, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return other.Kind == e.Kind
}

// AsProviderError extracts a *ProviderError from the error chain.
func AsProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}

// KindOf returns the kind of err, or KindUnknownError when err carries none.
func KindOf(err error) ErrorKind {
	if providerErr, ok := AsProviderError(err); ok {
		return providerErr.Kind
	}
	return KindUnknownError
}

func NewAuthenticationFailed(provider, message string) *ProviderError {
	return &ProviderError{Kind: KindAuthenticationFailed, Provider: provider, StatusCode: http.StatusUnauthorized, Message: message}
}

func NewRateLimitExceeded(provider, message string) *ProviderError {
	return &ProviderError{Kind: KindRateLimitExceeded, Provider: provider, StatusCode: http.StatusTooManyRequests, Message: message}
}

func NewInvalidRequest(message string) *ProviderError {
	return &ProviderError{Kind: KindInvalidRequest, Message: message}
}

func NewServerError(status int, message string) *ProviderError {
	return &ProviderError{Kind: KindServerError, StatusCode: status, Message: message}
}

func NewHTTPError(status int, message string) *ProviderError {
	return &ProviderError{Kind: KindHTTPError, StatusCode: status, Message: message}
}

func NewNetworkError(cause error) *ProviderError {
	return &ProviderError{Kind: KindNetworkError, Err: cause}
}

func NewTimeout(cause error) *ProviderError {
	return &ProviderError{Kind: KindTimeout, Err: cause}
}

func NewDecodingError(cause error) *ProviderError {
	return &ProviderError{Kind: KindDecodingError, Err: cause}
}

func NewEncodingError(cause error) *ProviderError {
	return &ProviderError{Kind: KindEncodingError, Err: cause}
}

func NewUnknownError(cause error) *ProviderError {
	return &ProviderError{Kind: KindUnknownError, Err: cause}
}

func NewInvalidConfiguration(provider, message string) *ProviderError {
	return &ProviderError{Kind: KindInvalidConfiguration, Provider: provider, Message: message}
}

// ErrorFromStatus maps an HTTP failure onto the taxonomy:
// 401 → authentication failed, 429 → rate limit exceeded, 400 → invalid
// request, 5xx → server error, any other status ≥ 400 → http error.
// The message is extracted from the vendor body with ParseErrorMessage.
func ErrorFromStatus(provider string, status int, body []byte) *ProviderError {
	message := ParseErrorMessage(body)
	switch {
	case status == http.StatusUnauthorized:
		return NewAuthenticationFailed(provider, message)
	case status == http.StatusTooManyRequests:
		return NewRateLimitExceeded(provider, message)
	case status == http.StatusBadRequest:
		return NewInvalidRequest(message)
	case status >= 500 && status <= 599:
		return NewServerError(status, message)
	}
	return NewHTTPError(status, message)
}
