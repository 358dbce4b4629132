// Package server exposes functions over HTTP and socket.io.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/vk/burstfn/internal/auth"
	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/model"
	"github.com/zclconf/go-cty/cty"
	"github.com/zishang520/socket.io/v2/socket"
)

// DefaultRequestLimit caps request bodies when no limit is configured.
const DefaultRequestLimit int64 = 10 << 20

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Invoker runs a function by name.
type Invoker interface {
	Invoke(ctx context.Context, name string, ec *model.ExecutionContext) (cty.Value, error)
}

// Catalog lists the loaded functions.
type Catalog interface {
	GetAll() []*model.FunctionRecord
}

// Options configures a Server.
type Options struct {
	Addr         string
	RequestLimit int64
	Invoker      Invoker
	Catalog      Catalog
	Tokens       auth.Parser
	// DisableSocketIO turns off the /socket.io/ endpoint.
	DisableSocketIO bool
}

// Server is the public face of the runtime.
type Server struct {
	opts   Options
	logger *slog.Logger
	http   *http.Server
	io     *socket.Server
}

// New builds a server. Nothing listens until Run is called.
func New(ctx context.Context, opts Options) *Server {
	if opts.RequestLimit <= 0 {
		opts.RequestLimit = DefaultRequestLimit
	}
	s := &Server{
		opts:   opts,
		logger: ctxlog.FromContext(ctx),
	}
	s.http = &http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctxlog.WithLogger(context.Background(), s.logger) },
	}
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /_/health", s.healthHandler)
	mux.HandleFunc("GET /_/functions", s.functionsHandler)
	if !s.opts.DisableSocketIO {
		s.io = s.newSocketServer()
		mux.Handle("/socket.io/", s.io.ServeHandler(nil))
	}
	mux.Handle("/{name...}", auth.Middleware(s.opts.Tokens)(http.HandlerFunc(s.invokeHandler)))
	return withCORS(mux)
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.opts.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("🚀 Function server starting", "address", ln.Addr().String())
		errCh <- s.http.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops accepting connections and closes socket.io clients.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down function server...")
	if s.io != nil {
		s.io.Close(nil)
	}
	if err := s.http.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.logger.Error("Function server shutdown failed", "error", err)
		return err
	}
	s.logger.Debug("Function server shut down gracefully.")
	return nil
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		if origin := r.Header.Get("Origin"); origin != "" {
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			h.Set("Access-Control-Allow-Methods", "*")
			h.Set("Access-Control-Allow-Headers", "*")
			h.Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
