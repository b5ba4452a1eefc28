package providers

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// StatusCoder is implemented by raw errors that carry an HTTP status code.
// Adapters wrap transport failures in such errors so Classify can use the
// status instead of guessing from message text.
type StatusCoder interface {
	StatusCode() int
}

// retryAfterPattern matches a "retry-after: <seconds>" hint embedded in an
// error message.
var retryAfterPattern = regexp.MustCompile(`retry-after:?\s*(\d+)`)

// Classify maps an arbitrary failure into a classified *Error for the
// given provider. It is a pure function: the same input always yields the
// same kind.
//
// Classification precedence (first match wins), using the status code when
// one is known and substring matching over the lowercased message:
//
//  1. 429, "rate limit", "too many requests", or "quota exceeded" without
//     a billing signal -> RateLimited (with parsed retry-after if present)
//  2. 401/403, "unauthorized", "authentication", "invalid api key",
//     "forbidden" -> Authentication
//  3. 402, "quota", "billing", "payment required", "insufficient credits"
//     -> QuotaExceeded
//  4. 404, "model not found", "invalid model" -> ModelUnavailable
//  5. 408, "timeout", "timed out" -> Timeout
//  6. "connection", "network", "unreachable", "dns" -> NetworkError
//  7. 400, "validation", "invalid request", "bad request" -> InvalidRequest
//  8. status >= 500 -> ServerError
//  9. otherwise -> Unknown
func Classify(err error, provider string) *Error {
	if err == nil {
		return nil
	}

	// Already classified: keep it, filling in the provider if missing.
	// The caller's error may be shared across requests, so never write
	// through it; return a copy instead.
	var pe *Error
	if errors.As(err, &pe) {
		if pe.Provider == "" {
			filled := *pe
			filled.Provider = provider
			return &filled
		}
		return pe
	}

	status := 0
	var sc StatusCoder
	if errors.As(err, &sc) {
		status = sc.StatusCode()
	}

	// Context deadline failures are timeouts regardless of message text.
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{
			Kind:     KindTimeout,
			Provider: provider,
			Message:  err.Error(),
			Cause:    err,
		}
	}

	msg := strings.ToLower(err.Error())
	kind := classifyMessage(status, msg)

	classified := &Error{
		Kind:       kind,
		Provider:   provider,
		StatusCode: status,
		Message:    err.Error(),
		Cause:      err,
	}

	if kind == KindRateLimited {
		classified.RetryAfter = parseRetryAfter(msg)
	}

	return classified
}

// classifyMessage applies the precedence rules to a status code and a
// lowercased message.
func classifyMessage(status int, msg string) ErrorKind {
	// Rule 1: rate limiting. "quota exceeded" counts only when the message
	// carries no billing signal; with one, rule 3 is the stronger match.
	if status == 429 ||
		strings.Contains(msg, "rate limit") ||
		strings.Contains(msg, "too many requests") ||
		(strings.Contains(msg, "quota exceeded") && !hasBillingSignal(msg)) {
		return KindRateLimited
	}

	// Rule 2: authentication.
	if status == 401 || status == 403 ||
		strings.Contains(msg, "unauthorized") ||
		strings.Contains(msg, "authentication") ||
		strings.Contains(msg, "invalid api key") ||
		strings.Contains(msg, "forbidden") {
		return KindAuthentication
	}

	// Rule 3: exhausted account quota / billing.
	if status == 402 ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "billing") ||
		strings.Contains(msg, "payment required") ||
		strings.Contains(msg, "insufficient credits") {
		return KindQuotaExceeded
	}

	// Rule 4: unknown model.
	if status == 404 ||
		strings.Contains(msg, "model not found") ||
		strings.Contains(msg, "invalid model") {
		return KindModelUnavailable
	}

	// Rule 5: timeout.
	if status == 408 ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") {
		return KindTimeout
	}

	// Rule 6: transport failure.
	if strings.Contains(msg, "connection") ||
		strings.Contains(msg, "network") ||
		strings.Contains(msg, "unreachable") ||
		strings.Contains(msg, "dns") {
		return KindNetworkError
	}

	// Rule 7: malformed request.
	if status == 400 ||
		strings.Contains(msg, "validation") ||
		strings.Contains(msg, "invalid request") ||
		strings.Contains(msg, "bad request") {
		return KindInvalidRequest
	}

	// Rule 8: backend failure.
	if status >= 500 {
		return KindServerError
	}

	return KindUnknown
}

// hasBillingSignal reports whether the message reads as an account-level
// billing problem rather than a transient rate limit.
func hasBillingSignal(msg string) bool {
	return strings.Contains(msg, "billing") ||
		strings.Contains(msg, "payment") ||
		strings.Contains(msg, "credit")
}

// parseRetryAfter extracts a "retry-after: <seconds>" hint from a
// lowercased message. Returns 0 when no hint is present.
func parseRetryAfter(msg string) time.Duration {
	m := retryAfterPattern.FindStringSubmatch(msg)
	if m == nil {
		return 0
	}

	seconds, err := strconv.Atoi(m[1])
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}
