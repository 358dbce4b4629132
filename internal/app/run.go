package app

import (
	"context"
	"fmt"
	"net"

	"github.com/vk/burstfn/internal/ctxlog"
	"golang.org/x/sync/errgroup"
)

// Run loads the workspace and serves on the configured address until ctx is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	return a.run(ctx, func() (net.Listener, error) {
		ln, err := net.Listen("tcp", a.config.Addr())
		if err != nil {
			return nil, fmt.Errorf("listening on %s: %w", a.config.Addr(), err)
		}
		return ln, nil
	})
}

// Serve is Run on an existing listener. The listener is closed even when the
// workspace fails to load.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	used := false
	err := a.run(ctx, func() (net.Listener, error) {
		used = true
		return ln, nil
	})
	if !used {
		ln.Close()
	}
	return err
}

// run starts the session, then serves. The session is closed before it
// returns.
func (a *App) run(ctx context.Context, listen func() (net.Listener, error)) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	a.logger.Debug("App.run method started.")

	defer func() {
		if cerr := a.session.Close(ctx); cerr != nil {
			a.logger.Error("Session close failed", "error", cerr)
			if err == nil {
				err = cerr
			}
		}
	}()

	if err := a.session.Start(ctx); err != nil {
		return fmt.Errorf("loading workspace: %w", err)
	}
	a.logger.Info("Workspace loaded.",
		"path", a.config.WorkspacePath,
		"functions", a.session.Registry.Size(),
		"watch", !a.config.Production,
	)

	ln, err := listen()
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.server.Serve(gctx, ln)
	})
	if a.config.HealthcheckPort > 0 {
		a.healthCheckServer()
		g.Go(func() error {
			<-gctx.Done()
			return a.closeHealthCheckServer()
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("serving: %w", err)
	}
	a.logger.Info("🏁 Shutdown complete.")
	return nil
}
