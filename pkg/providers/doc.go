// Package providers defines the provider capability boundary for relay.
//
// A Provider is one interchangeable text-generation backend. The package
// contains the interface every backend adapter must implement, the
// provider-agnostic request/response envelopes, the classified error
// taxonomy shared by the whole runtime, and the local token/cost
// estimation heuristics used for pre-flight budget checks.
//
// # Error Classification
//
// Every failure leaving a provider is classified into an ErrorKind by
// Classify. Classification uses the HTTP status code when one is known
// and falls back to substring matching over the lowercased message,
// because not every backend surfaces a structured status. The precedence
// order matters: "quota exceeded" without a billing signal reads as a
// rate limit (the common transient case) rather than an exhausted
// account, so it does not abort fallback.
//
// # Concrete adapters
//
// Wire-level HTTP adapters for specific backends live outside this
// module; anything implementing Provider participates in routing. The
// providertest subpackage has a scriptable in-memory implementation for
// tests.
package providers
