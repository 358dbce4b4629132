// Package executor is the invocation dispatcher: it resolves a function name
// to an instance, stamps the execution context and runs the entry point.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/model"
	"github.com/vk/burstfn/internal/modulecache"
	"github.com/zclconf/go-cty/cty"
)

// DefaultMaxDepth is the nesting limit used by the application config.
const DefaultMaxDepth = 64

// ErrMaxDepth is the cause of an InvocationError raised when nested
// invocations exceed the configured depth.
var ErrMaxDepth = errors.New("maximum invocation depth exceeded")

// Resolver returns a ready instance for a function name.
type Resolver interface {
	GetOrCreate(ctx context.Context, name string) (*modulecache.Instance, error)
}

// Invoker is the dispatch surface used by transports and the SDK.
type Invoker interface {
	Invoke(ctx context.Context, name string, ec *model.ExecutionContext) (cty.Value, error)
}

// Options configures an Executor.
type Options struct {
	// MaxDepth limits nested invocations. Zero means unlimited.
	MaxDepth int
}

// Executor dispatches invocations.
type Executor struct {
	resolver Resolver
	maxDepth int
}

var _ Invoker = (*Executor)(nil)

// New creates an Executor.
func New(resolver Resolver, opts Options) *Executor {
	return &Executor{resolver: resolver, maxDepth: opts.MaxDepth}
}

// Invoke runs the function called name. The caller's context is copied,
// never modified: FunctionName is always set to name, RequestID and Method
// are defaulted when empty and every other field is kept.
//
// Resolution failures (*model.MissingFunctionError,
// *model.MissingEntryPointError, *model.CompileError) are returned as they
// are. A failure raised by the function body is returned as
// *model.InvocationError.
func (e *Executor) Invoke(ctx context.Context, name string, ec *model.ExecutionContext) (cty.Value, error) {
	depth := Depth(ctx) + 1
	if e.maxDepth > 0 && depth > e.maxDepth {
		return cty.NilVal, &model.InvocationError{Name: name, Cause: fmt.Errorf("%w (%d)", ErrMaxDepth, e.maxDepth)}
	}

	inst, err := e.resolver.GetOrCreate(ctx, name)
	if err != nil {
		return cty.NilVal, err
	}

	call := Stamp(ec, name)
	ctx = ctxlog.With(withDepth(ctx, depth), "function", name, "request_id", call.RequestID)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Invoking function.", "method", call.Method, "depth", depth, "generation", inst.Generation)

	start := time.Now()
	out, err := inst.Entry.Execute(ctx, call)
	if err != nil {
		logger.Debug("Function failed.", "duration", time.Since(start), "error", err)
		return cty.NilVal, &model.InvocationError{Name: name, Cause: err}
	}
	logger.Debug("Function completed.", "duration", time.Since(start))
	return out, nil
}

// Stamp returns the context a function called name runs with.
func Stamp(ec *model.ExecutionContext, name string) *model.ExecutionContext {
	call := ec.Clone()
	call.FunctionName = name
	if call.RequestID == "" {
		call.RequestID = model.DefaultRequestID
	}
	if call.Method == "" {
		call.Method = model.DefaultMethod
	}
	return call
}
