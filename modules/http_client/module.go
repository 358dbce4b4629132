// Package http_client gives function code a shared, pooled HTTP client
// through the fetch function.
package http_client

import (
	"context"
	"time"

	"github.com/vk/burstfn/internal/handlers"
	"github.com/zclconf/go-cty/cty/function"
)

// DefaultTimeout applies to requests that do not set their own.
const DefaultTimeout = 30 * time.Second

// Module implements the handlers.Module interface. It owns the pooled client
// shared by every fetch call.
type Module struct {
	// Timeout overrides DefaultTimeout.
	Timeout time.Duration

	client *client
}

// Register creates the shared client and registers fetch.
func (m *Module) Register(h *handlers.Handlers) {
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	m.client = createHTTPClient(timeout)
	h.RegisterFunction("fetch", &handlers.RegisteredFunction{
		New: func(ctx context.Context) function.Function {
			return newFetch(ctx, m.client)
		},
	})
}

// Close releases idle connections held by the shared client.
func (m *Module) Close() error {
	if m.client == nil {
		return nil
	}
	return destroyHTTPClient(m.client)
}
