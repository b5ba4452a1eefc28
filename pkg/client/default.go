package client

import (
	"context"
	"errors"
	"sync"

	"helmsman-ai/relay/pkg/config"
)

var (
	defaultMu     sync.Mutex
	defaultClient *Client
)

// ErrNotInitialized is returned by Default before Initialize succeeds.
var ErrNotInitialized = errors.New("client: not initialized")

// Initialize constructs the process-wide default client and starts its
// background loops. It fails if a default client already exists;
// Shutdown the old one first.
func Initialize(ctx context.Context, cfg *config.Config) (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultClient != nil {
		return nil, errors.New("client: already initialized")
	}

	c, err := New(cfg)
	if err != nil {
		return nil, err
	}
	if err := c.Start(ctx); err != nil {
		_ = c.Close(ctx)
		return nil, err
	}

	defaultClient = c
	return c, nil
}

// Default returns the process-wide client created by Initialize.
func Default() (*Client, error) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if defaultClient == nil {
		return nil, ErrNotInitialized
	}
	return defaultClient, nil
}

// Shutdown closes the default client and clears it. Calling Shutdown
// without a default client is a no-op.
func Shutdown(ctx context.Context) error {
	defaultMu.Lock()
	c := defaultClient
	defaultClient = nil
	defaultMu.Unlock()

	if c == nil {
		return nil
	}
	return c.Close(ctx)
}
