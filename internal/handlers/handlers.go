// Package handlers holds the functions that extension modules make available
// to function code, on top of the built-in function table.
package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/zclconf/go-cty/cty/function"
)

// Module is the interface every extension module implements to contribute
// functions.
type Module interface {
	Register(h *Handlers)
}

// RegisteredFunction describes one contributed function.
type RegisteredFunction struct {
	// Pure functions have no side effects and may be called from module
	// locals, which are evaluated outside of any invocation.
	Pure bool
	// New builds the function for one invocation. ctx is the invocation's
	// context and carries its logger and cancellation.
	New func(ctx context.Context) function.Function
}

// Handlers holds all the registered functions.
type Handlers struct {
	mu  sync.RWMutex
	all map[string]*RegisteredFunction
}

// New creates and initializes a new Handlers instance.
func New() *Handlers {
	return &Handlers{
		all: make(map[string]*RegisteredFunction),
	}
}

// RegisterFunction registers a function under name. Registering the same name
// twice is a programming error and panics.
func (h *Handlers) RegisterFunction(name string, fn *RegisteredFunction) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, exists := h.all[name]; exists {
		panic(fmt.Sprintf("function with name '%s' already registered", name))
	}
	slog.Debug("Registering function.", "name", name, "pure", fn.Pure)
	h.all[name] = fn
}

// Names returns the registered function names, sorted.
func (h *Handlers) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.all))
	for n := range h.all {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Functions builds every registered function for one invocation.
func (h *Handlers) Functions(ctx context.Context) map[string]function.Function {
	return h.build(ctx, false)
}

// PureFunctions builds only the pure functions.
func (h *Handlers) PureFunctions(ctx context.Context) map[string]function.Function {
	return h.build(ctx, true)
}

func (h *Handlers) build(ctx context.Context, pureOnly bool) map[string]function.Function {
	if h == nil {
		return nil
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]function.Function, len(h.all))
	for name, fn := range h.all {
		if pureOnly && !fn.Pure {
			continue
		}
		out[name] = fn.New(ctx)
	}
	return out
}
