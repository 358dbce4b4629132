package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/handlers"
	"github.com/vk/burstfn/internal/server"
	"github.com/vk/burstfn/internal/session"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	logger     *slog.Logger
	config     *Config
	session    *session.Session
	server     *server.Server
	httpServer *http.Server // health check listener
}

// NewApp is the constructor for the main application. It returns an App with
// its own isolated logger and session. Passing no modules selects the core
// modules.
func NewApp(outW io.Writer, cfg *Config, modules ...handlers.Module) (*App, error) {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	logger.Debug("Logger configured successfully.")

	if len(modules) == 0 {
		modules = coreModules()
	}

	sess, err := session.New(ctx, session.Options{
		Root:               cfg.WorkspacePath,
		Watch:              !cfg.Production,
		Debounce:           cfg.Debounce,
		MaxDepth:           cfg.MaxDepth,
		DisableModuleCache: cfg.DisableModuleCache,
		DataPath:           cfg.DataPath,
		TokenSecret:        cfg.TokenSecret,
		Modules:            modules,
	})
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	logger.Debug("Session created.", "modules", len(modules))

	srv := server.New(ctx, server.Options{
		Addr:         cfg.Addr(),
		RequestLimit: cfg.RequestLimit,
		Invoker:      sess,
		Catalog:      sess.Registry,
		Tokens:       sess.SDK,
	})

	return &App{
		ctx:     ctx,
		logger:  logger,
		config:  cfg,
		session: sess,
		server:  srv,
	}, nil
}

// Session returns the application's session. This is primarily for testing.
func (a *App) Session() *session.Session {
	return a.session
}

// Handler returns the function server's root handler. This is primarily for
// testing.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}
