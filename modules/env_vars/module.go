// Package env_vars exposes process environment variables to function code.
package env_vars

import (
	"context"
	"os"

	"github.com/vk/burstfn/internal/ctyconv"
	"github.com/vk/burstfn/internal/handlers"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Module implements the handlers.Module interface for this package.
type Module struct {
	// Lookup reads a variable. Defaults to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Register registers env(name, [default]). It is pure so module locals may
// read configuration at instantiation time.
func (m *Module) Register(h *handlers.Handlers) {
	lookup := m.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	h.RegisterFunction("env", &handlers.RegisteredFunction{
		Pure: true,
		New: func(context.Context) function.Function {
			return newEnv(lookup)
		},
	})
}

func newEnv(lookup func(string) (string, bool)) function.Function {
	return function.New(&function.Spec{
		Description: "Returns an environment variable, the default, or null.",
		Params:      []function.Parameter{{Name: "name", Type: cty.String}},
		VarParam: &function.Parameter{
			Name:             "default",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if len(args) > 2 {
				return cty.NilVal, function.NewArgErrorf(2, "env takes at most one default")
			}
			if v, ok := lookup(args[0].AsString()); ok {
				return cty.StringVal(v), nil
			}
			if len(args) == 2 {
				return args[1], nil
			}
			return ctyconv.Null, nil
		},
	})
}
