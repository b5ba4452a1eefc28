package providers

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrorKind identifies the class of a provider failure.
// The kind drives retry policy: see Error.Retryable.
type ErrorKind int

const (
	// KindUnknown is any failure that matched no classification rule.
	KindUnknown ErrorKind = iota

	// KindRateLimited is a request rejected for exceeding the provider's
	// rate limit (HTTP 429 or equivalent message).
	KindRateLimited

	// KindAuthentication is a rejected credential (HTTP 401/403).
	KindAuthentication

	// KindQuotaExceeded is an exhausted account budget or billing problem
	// (HTTP 402). It aborts the whole fallback walk: the account cannot
	// serve more requests regardless of provider.
	KindQuotaExceeded

	// KindModelUnavailable is an unknown or unsupported model (HTTP 404).
	KindModelUnavailable

	// KindTimeout is a request that exceeded its deadline (HTTP 408 or a
	// context deadline).
	KindTimeout

	// KindNetworkError is a transport-level failure (DNS, connection).
	KindNetworkError

	// KindInvalidRequest is a malformed request (HTTP 400).
	KindInvalidRequest

	// KindServerError is a backend-side failure (HTTP 5xx).
	KindServerError

	// KindServiceUnavailable marks a request rejected locally, before any
	// network attempt: the pipeline is paused or the provider's circuit is
	// open. The classifier never produces it.
	KindServiceUnavailable
)

// String returns the kind's stable name.
func (k ErrorKind) String() string {
	switch k {
	case KindRateLimited:
		return "rate_limited"
	case KindAuthentication:
		return "authentication"
	case KindQuotaExceeded:
		return "quota_exceeded"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindTimeout:
		return "timeout"
	case KindNetworkError:
		return "network_error"
	case KindInvalidRequest:
		return "invalid_request"
	case KindServerError:
		return "server_error"
	case KindServiceUnavailable:
		return "service_unavailable"
	default:
		return "unknown"
	}
}

// Error is a classified provider failure. It is the only error shape the
// rest of the runtime handles; raw transport errors never cross the
// provider boundary.
type Error struct {
	// Kind is the failure class.
	Kind ErrorKind

	// Provider is the name of the provider where the failure originated.
	Provider string

	// StatusCode is the raw HTTP status, 0 when not applicable.
	StatusCode int

	// Message is the failure description.
	Message string

	// RetryAfter is the wait the provider asked for, 0 when unknown.
	// Only meaningful for KindRateLimited.
	RetryAfter time.Duration

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %q %s (status %d): %s",
			e.Provider, e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %q %s: %s", e.Provider, e.Kind, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the failure may resolve by retrying against
// the same provider. Authentication, invalid-request, model and quota
// failures will not self-resolve by waiting.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimited, KindTimeout, KindServerError, KindNetworkError:
		return true
	default:
		return false
	}
}

// IsKind reports whether err is (or wraps) a classified *Error of the
// given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind == kind
	}
	return false
}

// AllProvidersFailed aggregates one classified error per attempted
// provider, in try order. It is the single user-visible failure shape
// when fallback is exhausted.
type AllProvidersFailed struct {
	// Errors holds each provider's last classified error, insertion-ordered.
	Errors []*Error
}

// Error implements the error interface.
func (e *AllProvidersFailed) Error() string {
	if len(e.Errors) == 0 {
		return "all providers failed: no providers attempted"
	}

	parts := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", pe.Provider, pe.Kind))
	}
	return fmt.Sprintf("all %d providers failed: %s",
		len(e.Errors), strings.Join(parts, "; "))
}

// ByProvider returns the classified error for a given provider name,
// or nil if that provider was not attempted.
func (e *AllProvidersFailed) ByProvider(name string) *Error {
	for _, pe := range e.Errors {
		if pe.Provider == name {
			return pe
		}
	}
	return nil
}

// Providers returns the attempted provider names in try order.
func (e *AllProvidersFailed) Providers() []string {
	names := make([]string, 0, len(e.Errors))
	for _, pe := range e.Errors {
		names = append(names, pe.Provider)
	}
	return names
}
