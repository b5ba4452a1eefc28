// Package breaker implements the per-provider circuit breaker and runtime
// state tracking.
//
// # State machine
//
// Each provider moves through three states:
//
//	Healthy ──failure──▶ Degraded ──failures ≥ threshold──▶ CircuitOpen
//	   ▲                     │ ▲                                 │
//	   └──────success────────┘ └────────timeout elapsed──────────┘
//
// Degraded doubles as the half-open trial state: when the open timeout
// elapses, exactly one trial request is admitted in Degraded, and its
// outcome decides between Healthy and a renewed CircuitOpen. This avoids a
// fourth state for what is operationally the same "let one request through
// and observe" behavior.
//
// # Runtime stats
//
// Alongside the state machine, each breaker tracks the provider's runtime
// counters: consecutive failures, last failure time, a bounded rolling
// latency window, cumulative requests, and cumulative cost.
//
// # Thread Safety
//
// All breaker operations are safe for concurrent use.
package breaker
