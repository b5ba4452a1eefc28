// Package client is the public entry point to the relay.
//
// A Client owns the whole runtime: the fallback manager and its provider
// registry, the cost monitor (optionally backed by the durable ledger),
// the health monitor, and the telemetry stack. Construct one with New,
// register providers, then call Start to launch the background loops.
//
// For programs that want a process-wide instance, Initialize and
// Shutdown manage a single lazily-cached default client; Default
// returns it.
package client
