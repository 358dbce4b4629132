package cloud

import (
	"context"
	"errors"
	"time"

	"github.com/vk/burstfn/internal/datastore"
	"github.com/vk/burstfn/internal/executor"
	"github.com/vk/burstfn/internal/model"
	"github.com/vk/burstfn/internal/token"
	"github.com/zclconf/go-cty/cty"
)

var (
	// ErrNoDatabase is returned when the environment has no store.
	ErrNoDatabase = errors.New("cloud: no database configured")
	// ErrNoTokens is returned when the environment has no token issuer.
	ErrNoTokens = errors.New("cloud: no token secret configured")
)

// DefaultEnvironment is the standard Environment: JWT tokens, the bbolt
// store, process-wide shared state and the executor.
type DefaultEnvironment struct {
	Tokens   *token.Issuer
	Store    *datastore.Store
	State    *model.SharedState
	Executor executor.Invoker
}

var _ Environment = (*DefaultEnvironment)(nil)

// GetToken implements Environment.
func (e *DefaultEnvironment) GetToken(subject string, expiresIn time.Duration, claims map[string]any) (string, error) {
	if e.Tokens == nil {
		return "", ErrNoTokens
	}
	return e.Tokens.Sign(subject, expiresIn, claims)
}

// ParseToken implements Environment.
func (e *DefaultEnvironment) ParseToken(tok string) (*model.Identity, bool) {
	if e.Tokens == nil {
		return nil, false
	}
	return e.Tokens.Verify(tok)
}

// Database implements Environment.
func (e *DefaultEnvironment) Database() (datastore.Database, error) {
	if e.Store == nil {
		return nil, ErrNoDatabase
	}
	return e.Store, nil
}

// Driver implements Environment.
func (e *DefaultEnvironment) Driver() Driver {
	if e.Store == nil {
		return Driver{}
	}
	return Driver{Client: e.Store.Client(), DB: e.Store}
}

// Invoke implements Environment.
func (e *DefaultEnvironment) Invoke(ctx context.Context, name string, ec *model.ExecutionContext) (cty.Value, error) {
	return e.Executor.Invoke(ctx, name, ec)
}

// Shared implements Environment.
func (e *DefaultEnvironment) Shared() *model.SharedState {
	return e.State
}
