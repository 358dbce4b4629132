// Package s3 moves objects to and from S3-compatible storage through
// pre-signed URLs, so function code never handles bucket credentials.
package s3

import (
	"context"
	"net/http"
	"time"

	"github.com/vk/burstfn/internal/handlers"
	"github.com/zclconf/go-cty/cty/function"
)

// DefaultTimeout bounds a single transfer.
const DefaultTimeout = 60 * time.Second

// Module implements the handlers.Module interface for this package.
type Module struct {
	// Client overrides the module's own client. Tests point it at a fake
	// bucket.
	Client *http.Client
}

// Register registers s3_upload and s3_download.
func (m *Module) Register(h *handlers.Handlers) {
	if m.Client == nil {
		m.Client = &http.Client{Timeout: DefaultTimeout}
	}
	h.RegisterFunction("s3_upload", &handlers.RegisteredFunction{
		New: func(ctx context.Context) function.Function { return newUpload(ctx, m.Client) },
	})
	h.RegisterFunction("s3_download", &handlers.RegisteredFunction{
		New: func(ctx context.Context) function.Function { return newDownload(ctx, m.Client) },
	})
}

// Close releases idle connections.
func (m *Module) Close() error {
	if m.Client != nil {
		m.Client.CloseIdleConnections()
	}
	return nil
}
