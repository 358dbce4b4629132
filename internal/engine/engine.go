package engine

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/burstfn/internal/compiler"
	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/ctyconv"
	"github.com/vk/burstfn/internal/datastore"
	"github.com/vk/burstfn/internal/handlers"
	"github.com/vk/burstfn/internal/hclutil"
	"github.com/vk/burstfn/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// Host is the runtime surface function code reaches through SDK functions.
type Host interface {
	Invoke(ctx context.Context, name string, ec *model.ExecutionContext) (cty.Value, error)
	GetToken(subject string, expiresIn time.Duration, claims map[string]any) (string, error)
	ParseToken(token string) (*model.Identity, bool)
	Database() (datastore.Database, error)
	Shared() *model.SharedState
}

// InstantiateFunc builds an executable instance from a function record.
type InstantiateFunc func(ctx context.Context, rec *model.FunctionRecord) (model.Executable, error)

// Instantiator returns an InstantiateFunc bound to a host and a function
// library. Either may be nil: without a host the SDK functions are absent,
// without a library only built-ins are available.
func Instantiator(host Host, lib *handlers.Handlers) InstantiateFunc {
	return func(ctx context.Context, rec *model.FunctionRecord) (model.Executable, error) {
		return Instantiate(ctx, rec, host, lib)
	}
}

// Instance is an instantiated function module. It is immutable after
// Instantiate returns and safe for concurrent Execute calls.
type Instance struct {
	name   string
	entry  *compiler.Export
	locals map[string]cty.Value
	base   *hcl.EvalContext
	host   Host
	lib    *handlers.Handlers
}

var _ model.Executable = (*Instance)(nil)

// Instantiate parses the record's artifact, selects its entry point and
// evaluates the module locals.
func Instantiate(ctx context.Context, rec *model.FunctionRecord, host Host, lib *handlers.Handlers) (*Instance, error) {
	if rec == nil || rec.Artifact == nil {
		return nil, fmt.Errorf("instantiate: record has no artifact")
	}
	logger := ctxlog.FromContext(ctx)

	mod, err := compiler.Parse(rec.Artifact.Code, rec.Name)
	if err != nil {
		return nil, err
	}
	entry, err := mod.Entry()
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		name:   rec.Name,
		entry:  entry,
		locals: make(map[string]cty.Value, len(mod.Locals)),
		base:   &hcl.EvalContext{Functions: pureFunctions(ctx, lib)},
		host:   host,
		lib:    lib,
	}

	for _, attr := range mod.Locals {
		evalCtx := inst.base.NewChild()
		evalCtx.Variables = map[string]cty.Value{compiler.VarLocal: cty.ObjectVal(inst.locals)}
		v, diags := attr.Expr.Value(evalCtx)
		if err := hclutil.CallError(diags); err != nil {
			return nil, &model.InvocationError{Name: rec.Name, Cause: fmt.Errorf("module local %q: %w", attr.Name, err)}
		}
		inst.locals[attr.Name] = v
	}

	logger.Debug("Instantiated function.", "name", rec.Name, "entry", entry.Name, "generation", rec.Generation)
	return inst, nil
}

// EntryPoint implements model.Executable.
func (i *Instance) EntryPoint() string {
	return i.entry.Name
}

// Execute implements model.Executable.
func (i *Instance) Execute(ctx context.Context, ec *model.ExecutionContext) (cty.Value, error) {
	evalCtx := i.base.NewChild()
	evalCtx.Functions = callFunctions(ctx, i.host, i.lib)

	locals := maps.Clone(i.locals)
	evalCtx.Variables = map[string]cty.Value{
		compiler.VarContext: ContextValue(ec),
		compiler.VarLocal:   cty.ObjectVal(locals),
	}

	for _, attr := range i.entry.Locals {
		v, diags := attr.Expr.Value(evalCtx)
		if err := hclutil.CallError(diags); err != nil {
			return cty.NilVal, err
		}
		locals[attr.Name] = v
		evalCtx.Variables[compiler.VarLocal] = cty.ObjectVal(locals)
	}

	if i.entry.Error != nil {
		v, diags := i.entry.Error.Value(evalCtx)
		if err := hclutil.CallError(diags); err != nil {
			return cty.NilVal, err
		}
		if !v.IsNull() {
			return cty.NilVal, &model.RuntimeError{Message: errorMessage(v)}
		}
	}

	if i.entry.Result == nil {
		return ctyconv.Null, nil
	}
	v, diags := i.entry.Result.Value(evalCtx)
	if err := hclutil.CallError(diags); err != nil {
		return cty.NilVal, err
	}
	if !v.IsWhollyKnown() {
		return cty.NilVal, fmt.Errorf("result of %q could not be determined", i.name)
	}
	return v, nil
}

func errorMessage(v cty.Value) string {
	if v.Type() == cty.String && v.IsKnown() {
		return v.AsString()
	}
	if b, err := ctyconv.ToJSON(v); err == nil {
		return string(b)
	}
	return v.GoString()
}
