// Package fallback routes generation requests across the registered
// providers.
//
// # Walk
//
// A request computes a provider try-order for the configured strategy,
// then walks it: providers with an open circuit are skipped, rate limits
// gate admission with a bounded wait, and transient errors are retried
// against the same provider with exponential backoff before the walk
// moves on. The first success wins; exhausting every provider yields a
// single aggregate error carrying each provider's classified failure.
//
// # Strategies
//
//   - fail-fast: only the primary provider, no fallback.
//   - retry-primary: fixed priority order, primary first.
//   - round-robin: priority order rotated by requests served so far.
//   - cost-optimized: ascending average realized cost per request,
//     falling back to the provider's local estimate when it has no
//     history.
//   - smart-fallback (default): free or self-hosted providers first,
//     then the rest in priority order.
//
// # Pipeline pause
//
// When enabled, a walk that exhausts every provider pauses the whole
// pipeline: subsequent requests fail immediately with a
// service-unavailable error instead of hammering dead backends. A
// background recovery loop re-probes the providers and resumes the
// pipeline once any of them answers; ResumePipeline resumes it manually.
package fallback
