// Package health implements the provider health monitor.
//
// # Overview
//
// The monitor probes registered providers on demand (CheckProvider,
// CheckAll) and on a background interval. Every probe runs under an
// explicit timeout; a hung or panicking probe becomes a Critical result,
// never an error to the caller.
//
// A successful probe distinguishes "working" from "working but slow":
// response time at or under the configured threshold is Healthy, over it
// is Degraded. That distinction lets the monitor alert on degraded
// performance independently of hard failures.
//
// # Metrics
//
// Per-provider metrics are moving aggregates, mutated incrementally after
// every check rather than recomputed from history: check counters, uptime
// percentage, a consecutive-failure streak, and a bounded rolling
// response-time window.
//
// # Alerts
//
// Two alert conditions exist per provider:
//
//   - consecutive_failures: Error severity, opened at the failure
//     threshold, resolved automatically on recovery.
//   - slow_response: Warning severity, opened when a probe exceeds twice
//     the response-time threshold, resolved only by a subsequent healthy
//     and fast check.
//
// One alert may be open per (provider, condition) pair; duplicate
// triggers are suppressed while it stays open. Resolved alerts are kept
// for a day and then pruned.
package health
