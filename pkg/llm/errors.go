package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrAuthentication    = errors.New("authentication failed")
	ErrRateLimited       = errors.New("rate limit exceeded")
	ErrAccessDenied      = errors.New("access denied")
	ErrNetwork           = errors.New("network error")
	ErrFallbackExhausted = errors.New("all backends failed")
	ErrNoCapableBackend  = errors.New("no backend supports the request")
)

type ErrorKind string

const (
	KindAuthentication ErrorKind = "authentication"
	KindRateLimited    ErrorKind = "rate_limited"
	KindAccessDenied   ErrorKind = "access_denied"
	KindNetwork        ErrorKind = "network"
	KindTimeout        ErrorKind = "timeout"
	KindUnknown        ErrorKind = "unknown"
)

// Guidance is the user-facing hint for a kind of failure.
func (k ErrorKind) Guidance() string {
	switch k {
	case KindAuthentication:
		return "Check the API key configured for the model provider."
	case KindRateLimited:
		return "The model provider is rate limiting requests. Retry the analysis later."
	case KindAccessDenied:
		return "The configured account cannot use this model."
	case KindNetwork:
		return "The model provider could not be reached. Retry when connectivity is restored."
	case KindTimeout:
		return "The model took too long to respond. Retry the analysis."
	default:
		return "The analysis failed. Retry the session."
	}
}

// FromStatus maps an HTTP status code from a provider to a categorized error.
func FromStatus(provider string, code int, body string) error {
	var kind error
	switch {
	case code == http.StatusUnauthorized:
		kind = ErrAuthentication
	case code == http.StatusForbidden:
		kind = ErrAccessDenied
	case code == http.StatusTooManyRequests:
		kind = ErrRateLimited
	case code >= 500:
		kind = ErrNetwork
	default:
		return fmt.Errorf("%s error: status %d, body: %s", provider, code, body)
	}
	return fmt.Errorf("%s: %w: status %d, body: %s", provider, kind, code, body)
}

// Classify reports the category of err; wrapped sentinels and transport errors are recognized.
func Classify(err error) ErrorKind {
	var netErr net.Error
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrAuthentication):
		return KindAuthentication
	case errors.Is(err, ErrRateLimited):
		return KindRateLimited
	case errors.Is(err, ErrAccessDenied):
		return KindAccessDenied
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrNetwork), errors.As(err, &netErr):
		return KindNetwork
	default:
		return KindUnknown
	}
}
