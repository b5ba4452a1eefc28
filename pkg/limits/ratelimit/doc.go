// Package ratelimit provides per-provider sliding-window admission control.
//
// # Overview
//
// Each provider gets one Limiter enforcing two independent dimensions over
// the trailing 60 seconds:
//
//   - Requests per minute (RPM): timestamped request window
//   - Tokens per minute (TPM): timestamped token-count window
//
// # Cooperative admission
//
// Admit is an advisory pre-flight gate, not a hard block. When a dimension
// is saturated the Decision carries the wait until the oldest entry leaves
// the window; the caller chooses to sleep, skip the provider, or fail fast.
// The remote provider's real limit remains the ultimate authority — this
// package only avoids wasted round trips against a backend already known
// to be saturated.
//
//	limiter := ratelimit.NewLimiter(ratelimit.Config{
//	    RequestsPerMinute: 60,
//	    TokensPerMinute:   90000,
//	})
//	if d := limiter.Admit(estimatedTokens); !d.Allowed {
//	    time.Sleep(d.Wait)
//	}
//	limiter.Record(actualTokens)
//
// # Thread Safety
//
// All limiter operations are safe for concurrent use.
package ratelimit
