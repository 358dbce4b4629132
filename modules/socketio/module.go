// Package socketio lets function code call a remote socket.io server.
package socketio

import (
	"context"

	"github.com/vk/burstfn/internal/handlers"
	"github.com/zclconf/go-cty/cty/function"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Register registers socketio_request.
func (m *Module) Register(h *handlers.Handlers) {
	h.RegisterFunction("socketio_request", &handlers.RegisteredFunction{
		New: func(ctx context.Context) function.Function {
			return newRequest(ctx)
		},
	})
}
