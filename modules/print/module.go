// Package print lets function code write to the runtime log.
package print

import (
	"context"

	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/ctyconv"
	"github.com/vk/burstfn/internal/handlers"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Module implements the handlers.Module interface for this package.
type Module struct{}

// Register registers the print function.
func (m *Module) Register(h *handlers.Handlers) {
	h.RegisterFunction("print", &handlers.RegisteredFunction{New: newPrint})
}

// newPrint builds print(message, [value]). It logs at info level on the
// invocation's logger and returns value, or message when no value is given.
func newPrint(ctx context.Context) function.Function {
	return function.New(&function.Spec{
		Description: "Writes a message, and optionally a value, to the runtime log.",
		Params:      []function.Parameter{{Name: "message", Type: cty.String, AllowNull: true}},
		VarParam: &function.Parameter{
			Name:             "value",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			message := "(null)"
			if !args[0].IsNull() {
				message = args[0].AsString()
			}
			logger := ctxlog.FromContext(ctx)
			if len(args) < 2 {
				logger.Info("🖨️ "+message, "source", "print")
				return args[0], nil
			}
			value := args[1]
			printable, err := ctyconv.ToGo(value)
			if err != nil {
				printable = value.GoString()
			}
			logger.Info("🖨️ "+message, "source", "print", "value", printable)
			return value, nil
		},
	})
}
