package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

type ctxKey struct{}

func constFunc(v cty.Value) func(context.Context) function.Function {
	return func(context.Context) function.Function {
		return function.New(&function.Spec{
			Type: function.StaticReturnType(v.Type()),
			Impl: func([]cty.Value, cty.Type) (cty.Value, error) { return v, nil },
		})
	}
}

func TestRegisterFunction_PanicsOnDuplicate(t *testing.T) {
	h := New()
	h.RegisterFunction("a", &RegisteredFunction{New: constFunc(cty.True)})

	assert.Panics(t, func() {
		h.RegisterFunction("a", &RegisteredFunction{New: constFunc(cty.False)})
	})
}

func TestFunctions_FiltersPure(t *testing.T) {
	h := New()
	h.RegisterFunction("pure", &RegisteredFunction{Pure: true, New: constFunc(cty.True)})
	h.RegisterFunction("effect", &RegisteredFunction{New: constFunc(cty.False)})

	assert.Equal(t, []string{"effect", "pure"}, h.Names())
	assert.Len(t, h.Functions(context.Background()), 2)

	pure := h.PureFunctions(context.Background())
	require.Len(t, pure, 1)
	assert.Contains(t, pure, "pure")
}

func TestFunctions_BindsContext(t *testing.T) {
	h := New()
	h.RegisterFunction("who", &RegisteredFunction{New: func(ctx context.Context) function.Function {
		return function.New(&function.Spec{
			Type: function.StaticReturnType(cty.String),
			Impl: func([]cty.Value, cty.Type) (cty.Value, error) {
				return cty.StringVal(ctx.Value(ctxKey{}).(string)), nil
			},
		})
	}})

	ctx := context.WithValue(context.Background(), ctxKey{}, "caller")
	got, err := h.Functions(ctx)["who"].Call(nil)

	require.NoError(t, err)
	assert.Equal(t, "caller", got.AsString())
}
