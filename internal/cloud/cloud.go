// Package cloud is the SDK facade function code talks to. It binds lazily,
// exactly once, to an Environment supplied by the host and exposes tokens,
// the document store, the shared state and a bridge back into the
// dispatcher.
package cloud

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/burstfn/internal/datastore"
	"github.com/vk/burstfn/internal/engine"
	"github.com/vk/burstfn/internal/model"
	"github.com/zclconf/go-cty/cty"
	bolt "go.etcd.io/bbolt"
)

// ErrNoProvider is returned when the SDK is used before any provider was
// registered.
var ErrNoProvider = errors.New("cloud: no environment provider registered")

// Driver is the raw handle pair for direct store access.
type Driver struct {
	Client *bolt.DB
	DB     datastore.Database
}

// Environment is the concrete implementation behind the SDK.
type Environment interface {
	GetToken(subject string, expiresIn time.Duration, claims map[string]any) (string, error)
	ParseToken(token string) (*model.Identity, bool)
	Database() (datastore.Database, error)
	Driver() Driver
	Invoke(ctx context.Context, name string, ec *model.ExecutionContext) (cty.Value, error)
	Shared() *model.SharedState
}

// Provider builds the environment on first use.
type Provider func() (Environment, error)

// SDK is the facade. The zero value is usable once a provider is registered.
type SDK struct {
	mu       sync.Mutex
	provider Provider
	env      Environment
}

var _ engine.Host = (*SDK)(nil)

// New creates an SDK that will bind to p on first use.
func New(p Provider) *SDK {
	return &SDK{provider: p}
}

// Register sets the provider. It reports false, and changes nothing, once
// the SDK has bound to an environment.
func (s *SDK) Register(p Provider) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.env != nil {
		return false
	}
	s.provider = p
	return true
}

// Bound reports whether the SDK has bound to an environment.
func (s *SDK) Bound() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.env != nil
}

// Environment returns the bound environment, binding it on first call. A
// failed bind is not remembered; the next call tries again.
func (s *SDK) Environment() (Environment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.env != nil {
		return s.env, nil
	}
	if s.provider == nil {
		return nil, ErrNoProvider
	}
	env, err := s.provider()
	if err != nil {
		return nil, err
	}
	s.env = env
	return env, nil
}

// GetToken issues a signed token for subject.
func (s *SDK) GetToken(subject string, expiresIn time.Duration, claims map[string]any) (string, error) {
	env, err := s.Environment()
	if err != nil {
		return "", err
	}
	return env.GetToken(subject, expiresIn, claims)
}

// ParseToken verifies a token. It never panics: any failure, including a
// missing environment, yields (nil, false).
func (s *SDK) ParseToken(token string) (id *model.Identity, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("Token verification panicked.", "panic", r)
			id, ok = nil, false
		}
	}()
	env, err := s.Environment()
	if err != nil {
		return nil, false
	}
	return env.ParseToken(token)
}

// Database returns the document store handle.
func (s *SDK) Database() (datastore.Database, error) {
	env, err := s.Environment()
	if err != nil {
		return nil, err
	}
	return env.Database()
}

// Driver returns the raw store handles.
func (s *SDK) Driver() (Driver, error) {
	env, err := s.Environment()
	if err != nil {
		return Driver{}, err
	}
	return env.Driver(), nil
}

// Invoke calls another function through the dispatcher.
func (s *SDK) Invoke(ctx context.Context, name string, ec *model.ExecutionContext) (cty.Value, error) {
	env, err := s.Environment()
	if err != nil {
		return cty.NilVal, err
	}
	return env.Invoke(ctx, name, ec)
}

// Shared returns the process-wide shared state, or nil if no environment
// could be bound.
func (s *SDK) Shared() *model.SharedState {
	env, err := s.Environment()
	if err != nil {
		return nil
	}
	return env.Shared()
}
