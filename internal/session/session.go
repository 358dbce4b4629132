package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/vk/burstfn/internal/cloud"
	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/datastore"
	"github.com/vk/burstfn/internal/engine"
	"github.com/vk/burstfn/internal/executor"
	"github.com/vk/burstfn/internal/handlers"
	"github.com/vk/burstfn/internal/model"
	"github.com/vk/burstfn/internal/modulecache"
	"github.com/vk/burstfn/internal/registry"
	"github.com/vk/burstfn/internal/token"
	"github.com/vk/burstfn/internal/watcher"
	"github.com/zclconf/go-cty/cty"
)

// InitFunction is invoked once, with method "init", after the registry is
// first loaded.
const InitFunction = "__init__"

// InitMethod is the method stamped on the init hook invocation.
const InitMethod = "init"

// Options configures a Session.
type Options struct {
	// Root is the workspace directory.
	Root string
	// Watch enables hot reload.
	Watch bool
	// Debounce is passed to the watcher.
	Debounce time.Duration
	// MaxDepth bounds nested invocations. Zero means unlimited.
	MaxDepth int
	// DisableModuleCache instantiates on every invocation.
	DisableModuleCache bool
	// DataPath is the bbolt file. Empty disables the database.
	DataPath string
	// TokenSecret signs tokens. Empty disables token issuance.
	TokenSecret string
	// Modules contribute extension functions.
	Modules []handlers.Module
}

// Session is a running runtime.
type Session struct {
	Registry *registry.Registry
	Cache    *modulecache.Cache
	Executor *executor.Executor
	SDK      *cloud.SDK
	Handlers *handlers.Handlers
	Shared   *model.SharedState

	store   *datastore.Store
	modules []handlers.Module
}

// New builds a session. Nothing is loaded until Start.
func New(ctx context.Context, opts Options) (*Session, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Creating session.", "root", opts.Root, "watch", opts.Watch)

	s := &Session{
		Handlers: handlers.New(),
		Shared:   model.NewSharedState(),
		modules:  opts.Modules,
	}
	for _, m := range opts.Modules {
		m.Register(s.Handlers)
	}
	logger.Debug("Extension modules registered.", "count", len(opts.Modules), "functions", s.Handlers.Names())

	var tokens *token.Issuer
	if opts.TokenSecret != "" {
		var err error
		if tokens, err = token.NewIssuer([]byte(opts.TokenSecret)); err != nil {
			return nil, fmt.Errorf("creating token issuer: %w", err)
		}
	} else {
		logger.Warn("No token secret configured; get_token and parse_token are disabled.")
	}

	if opts.DataPath != "" {
		store, err := datastore.Open(opts.DataPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		s.store = store
		logger.Debug("Database opened.", "path", opts.DataPath)
	}

	reg, err := registry.New(registry.Options{
		Root:  opts.Root,
		Watch: opts.Watch,
		NewWatcher: func(ctx context.Context, root string) (registry.EventSource, error) {
			return watcher.New(ctx, root, watcher.Options{Debounce: opts.Debounce})
		},
		OnReady: s.runInit,
	})
	if err != nil {
		s.closeStore()
		return nil, err
	}
	s.Registry = reg

	s.SDK = cloud.New(func() (cloud.Environment, error) {
		return &cloud.DefaultEnvironment{
			Tokens:   tokens,
			Store:    s.store,
			State:    s.Shared,
			Executor: s.Executor,
		}, nil
	})
	s.Cache = modulecache.New(reg, engine.Instantiator(s.SDK, s.Handlers), modulecache.Options{
		DisableCache: opts.DisableModuleCache,
	})
	reg.SetInvalidator(s.Cache)
	s.Executor = executor.New(s.Cache, executor.Options{MaxDepth: opts.MaxDepth})

	return s, nil
}

// Start loads the workspace, starts the watcher and runs the init hook.
func (s *Session) Start(ctx context.Context) error {
	return s.Registry.Initialize(ctx)
}

// Invoke runs a function.
func (s *Session) Invoke(ctx context.Context, name string, ec *model.ExecutionContext) (cty.Value, error) {
	return s.Executor.Invoke(ctx, name, ec)
}

// Close stops the watcher and releases the database and module resources.
func (s *Session) Close(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Closing session.")

	var errs []error
	if err := s.Registry.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing watcher: %w", err))
	}
	for _, m := range s.modules {
		if c, ok := m.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := s.closeStore(); err != nil {
		errs = append(errs, fmt.Errorf("closing database: %w", err))
	}
	return errors.Join(errs...)
}

func (s *Session) closeStore() error {
	if s.store == nil {
		return nil
	}
	err := s.store.Close()
	s.store = nil
	return err
}

// runInit invokes the init function, if the workspace has one. Failures are
// logged and otherwise ignored.
func (s *Session) runInit(ctx context.Context) {
	logger := ctxlog.FromContext(ctx)
	if !s.Registry.Has(InitFunction) {
		logger.Debug("No init function found.")
		return
	}
	logger.Info("Running init function.", "function", InitFunction)
	_, err := s.Executor.Invoke(ctx, InitFunction, &model.ExecutionContext{
		RequestID: InitMethod,
		Method:    InitMethod,
	})
	if err != nil {
		logger.Error("Init function failed.", "function", InitFunction, "error", err)
		return
	}
	logger.Debug("Init function finished.", "function", InitFunction)
}
