package fallback

import (
	"context"
	"sync"

	"helmsman-ai/relay/pkg/providers"
)

// defaultBatchConcurrency bounds batch fan-out when no limit is
// configured.
const defaultBatchConcurrency = 5

// BatchResult is the outcome of one request in a batch. Exactly one of
// Response and Err is set.
type BatchResult struct {
	// Index is the request's position in the submitted batch.
	Index int `json:"index"`

	// Response is the successful response, nil on failure.
	Response *providers.Response `json:"response,omitempty"`

	// Err is the request's failure, nil on success.
	Err error `json:"-"`
}

// BatchGenerate routes many independent requests concurrently, bounded
// by the configured batch concurrency. Each request runs the full
// fallback walk on its own; one request's failure is captured in its
// result and never aborts the rest.
//
// Results are returned in submission order.
func (m *Manager) BatchGenerate(ctx context.Context, reqs []*providers.Request) []BatchResult {
	results := make([]BatchResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}

	concurrency := m.routing.BatchConcurrency
	if concurrency <= 0 {
		concurrency = defaultBatchConcurrency
	}
	if concurrency > len(reqs) {
		concurrency = len(reqs)
	}

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, req := range reqs {
		wg.Add(1)
		go func(i int, req *providers.Request) {
			defer wg.Done()

			sem <- struct{}{}
			defer func() { <-sem }()

			resp, err := m.Generate(ctx, req)
			results[i] = BatchResult{Index: i, Response: resp, Err: err}
		}(i, req)
	}
	wg.Wait()

	return results
}
