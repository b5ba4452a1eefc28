package providers

import "context"

// Provider is the capability interface every backend adapter must
// implement to participate in fallback routing.
//
// All methods that touch the network accept a context.Context and must
// respect cancellation. Implementations must be safe for concurrent use.
type Provider interface {
	// Generate sends a generation request to the backend and returns the
	// response. On any problem it returns a classified *Error (see
	// Classify); callers never see raw transport errors.
	//
	// Implementations must update their cached health snapshot on both the
	// success and failure path, so LastHealth reflects real traffic
	// without forcing a probe.
	Generate(ctx context.Context, req *Request) (*Response, error)

	// CheckHealth performs one lightweight round-trip to the backend and
	// reports reachability and latency. It never returns an error: all
	// failures become a snapshot with IsHealthy=false and a message.
	CheckHealth(ctx context.Context) HealthSnapshot

	// EstimateCost returns a local, pure cost estimate in USD for the
	// request. No network call is made. When exact tokenization is not
	// available implementations use the EstimateTokens heuristic.
	// The result is never negative.
	EstimateCost(req *Request) float64

	// SupportedModels returns the model identifiers this provider serves.
	SupportedModels() []string

	// Name returns the provider's configured name.
	Name() string

	// LastHealth returns the cached health snapshot from the most recent
	// Generate or CheckHealth call, without performing a probe.
	LastHealth() HealthSnapshot
}
