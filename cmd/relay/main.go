// Relay is a multi-provider LLM routing and resilience runtime.
//
// It selects among interchangeable backend providers, applies fallback
// ordering, enforces cost budgets, tracks provider health via a
// circuit-breaker state machine, and classifies failures into a stable
// error taxonomy.
//
// Usage:
//
//	# Start the runtime with default configuration
//	relay run
//
//	# Start with a custom configuration file
//	relay run --config /etc/relay/config.yaml
//
//	# Validate a configuration file
//	relay validate --config /etc/relay/config.yaml
//
//	# Show version information
//	relay version
package main

func main() {
	Execute()
}
