package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/burstfn/internal/compiler"
	"github.com/vk/burstfn/internal/datastore"
	"github.com/vk/burstfn/internal/handlers"
	"github.com/vk/burstfn/internal/model"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

type fakeHost struct {
	shared  *model.SharedState
	invoked []*model.ExecutionContext
	invoke  func(name string, ec *model.ExecutionContext) (cty.Value, error)
}

func newFakeHost() *fakeHost {
	return &fakeHost{shared: model.NewSharedState()}
}

func (h *fakeHost) Invoke(_ context.Context, name string, ec *model.ExecutionContext) (cty.Value, error) {
	h.invoked = append(h.invoked, ec)
	if h.invoke != nil {
		return h.invoke(name, ec)
	}
	return cty.StringVal("invoked " + name), nil
}

func (h *fakeHost) GetToken(subject string, _ time.Duration, _ map[string]any) (string, error) {
	return "token-for-" + subject, nil
}

func (h *fakeHost) ParseToken(tok string) (*model.Identity, bool) {
	if tok != "good" {
		return nil, false
	}
	return &model.Identity{Subject: "u1", Claims: map[string]any{"role": "admin"}}, true
}

func (h *fakeHost) Database() (datastore.Database, error) {
	return nil, errors.New("no database")
}

func (h *fakeHost) Shared() *model.SharedState { return h.shared }

func record(t *testing.T, name, src string) *model.FunctionRecord {
	t.Helper()
	art, err := compiler.New().Transpile([]byte(src), name)
	require.NoError(t, err)
	return &model.FunctionRecord{Name: name, Source: src, Artifact: art, Generation: 1}
}

func instantiate(t *testing.T, host Host, lib *handlers.Handlers, name, src string) *Instance {
	t.Helper()
	inst, err := Instantiate(context.Background(), record(t, name, src), host, lib)
	require.NoError(t, err)
	return inst
}

func TestExecute_ResultUsesContextAndLocals(t *testing.T) {
	// --- Arrange ---
	inst := instantiate(t, nil, nil, "hello", `
locals {
  greeting = "hello"
  loud     = upper(local.greeting)
}

export "default" {
  locals {
    name    = ctx.payload.name
    message = "${local.greeting} ${local.name}"
  }
  result = {
    message  = local.message
    loud     = local.loud
    function = ctx.function_name
    method   = ctx.method
  }
}
`)
	ec := &model.ExecutionContext{
		FunctionName: "hello",
		Method:       "call",
		Payload:      cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("ada")}),
	}

	// --- Act ---
	out, err := inst.Execute(context.Background(), ec)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "default", inst.EntryPoint())
	assert.Equal(t, "hello ada", out.GetAttr("message").AsString())
	assert.Equal(t, "HELLO", out.GetAttr("loud").AsString())
	assert.Equal(t, "hello", out.GetAttr("function").AsString())
	assert.Equal(t, "call", out.GetAttr("method").AsString())
}

func TestExecute_ModuleLocalsEvaluatedOncePerInstance(t *testing.T) {
	inst := instantiate(t, nil, nil, "id", "locals {\n  id = uuid()\n}\nexport \"main\" {\n  result = local.id\n}\n")

	first, err := inst.Execute(context.Background(), nil)
	require.NoError(t, err)
	second, err := inst.Execute(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, first.AsString(), second.AsString())
}

func TestExecute_NoResultIsNull(t *testing.T) {
	inst := instantiate(t, nil, nil, "noop", "export \"default\" {}\n")
	out, err := inst.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, out.IsNull())
}

func TestExecute_RuntimeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		msg  string
	}{
		{"error attribute", "export \"default\" {\n  error = \"bad input\"\n  result = 1\n}\n", "bad input"},
		{"fail function", "export \"default\" {\n  result = fail(\"boom\")\n}\n", "boom"},
		{"fail in locals", "export \"default\" {\n  locals {\n    x = fail(\"early\")\n  }\n}\n", "early"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := instantiate(t, nil, nil, "f", tt.src)
			_, err := inst.Execute(context.Background(), nil)

			var rt *model.RuntimeError
			require.ErrorAs(t, err, &rt)
			assert.Equal(t, tt.msg, rt.Message)
		})
	}
}

func TestExecute_ErrorAttributeNullDoesNotRaise(t *testing.T) {
	inst := instantiate(t, nil, nil, "f", "export \"default\" {\n  error = ctx.payload == null ? null : \"payload not allowed\"\n  result = \"ok\"\n}\n")
	out, err := inst.Execute(context.Background(), &model.ExecutionContext{})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.AsString())
}

func TestInstantiate_MissingEntryPoint(t *testing.T) {
	_, err := Instantiate(context.Background(), record(t, "lib", "export \"helper\" {}\n"), nil, nil)

	var missing *model.MissingEntryPointError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "lib", missing.Name)
}

func TestInstantiate_ModuleLocalFailure(t *testing.T) {
	_, err := Instantiate(context.Background(), record(t, "bad", "locals {\n  x = fail(\"nope\")\n}\nexport \"default\" {}\n"), nil, nil)

	var invErr *model.InvocationError
	require.ErrorAs(t, err, &invErr)
	var rt *model.RuntimeError
	assert.ErrorAs(t, err, &rt)
}

func TestExecute_InvokePassesContext(t *testing.T) {
	host := newFakeHost()
	inst := instantiate(t, host, nil, "a", `
export "default" {
  result = invoke("b", { payload = { n = 1 }, method = "custom" })
}
`)

	out, err := inst.Execute(context.Background(), &model.ExecutionContext{FunctionName: "a"})

	require.NoError(t, err)
	assert.Equal(t, "invoked b", out.AsString())
	require.Len(t, host.invoked, 1)
	assert.Equal(t, "custom", host.invoked[0].Method)
	assert.True(t, host.invoked[0].Payload.GetAttr("n").Equals(cty.NumberIntVal(1)).True())
}

func TestExecute_NestedErrorsSurviveEvaluation(t *testing.T) {
	host := newFakeHost()
	host.invoke = func(name string, _ *model.ExecutionContext) (cty.Value, error) {
		return cty.NilVal, &model.InvocationError{Name: name, Cause: errors.New("inner failure")}
	}
	inst := instantiate(t, host, nil, "a", "export \"default\" {\n  result = invoke(\"b\")\n}\n")

	_, err := inst.Execute(context.Background(), nil)

	var invErr *model.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "b", invErr.Name)
}

func TestExecute_TokensAndSharedState(t *testing.T) {
	host := newFakeHost()
	inst := instantiate(t, host, nil, "t", `
export "default" {
  locals {
    token = get_token("u1", 60)
    good  = parse_token("good")
    bad   = parse_token("not-a-token")
    set   = shared_set("counter", 41)
  }
  result = {
    token   = local.token
    subject = local.good.subject
    role    = local.good.claims.role
    bad     = local.bad == null
    counter = shared_get("counter") + 1
    missing = shared_get("missing") == null
  }
}
`)

	out, err := inst.Execute(context.Background(), nil)

	require.NoError(t, err)
	assert.Equal(t, "token-for-u1", out.GetAttr("token").AsString())
	assert.Equal(t, "u1", out.GetAttr("subject").AsString())
	assert.Equal(t, "admin", out.GetAttr("role").AsString())
	assert.True(t, out.GetAttr("bad").True())
	assert.True(t, out.GetAttr("counter").Equals(cty.NumberIntVal(42)).True())
	assert.True(t, out.GetAttr("missing").True())
}

func TestExecute_LibraryFunctions(t *testing.T) {
	lib := handlers.New()
	lib.RegisterFunction("double", &handlers.RegisteredFunction{
		Pure: true,
		New: func(context.Context) function.Function {
			return function.New(&function.Spec{
				Params: []function.Parameter{{Name: "n", Type: cty.Number}},
				Type:   function.StaticReturnType(cty.Number),
				Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
					return args[0].Multiply(cty.NumberIntVal(2)), nil
				},
			})
		},
	})
	inst := instantiate(t, nil, lib, "lib", "locals {\n  four = double(2)\n}\nexport \"default\" {\n  result = double(local.four)\n}\n")

	out, err := inst.Execute(context.Background(), nil)

	require.NoError(t, err)
	assert.True(t, out.Equals(cty.NumberIntVal(8)).True())
}

func TestContextFromValue_RoundTrip(t *testing.T) {
	ec := &model.ExecutionContext{
		RequestID:    "r1",
		Method:       "POST",
		FunctionName: "a",
		User:         &model.Identity{Subject: "u1", ExpiresAt: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC), Claims: map[string]any{}},
		Payload:      cty.StringVal("p"),
		Query:        map[string]string{"q": "1"},
		Headers:      map[string]string{"h": "2"},
	}

	got, err := ContextFromValue(ContextValue(ec))

	require.NoError(t, err)
	assert.Equal(t, "r1", got.RequestID)
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "a", got.FunctionName)
	assert.Equal(t, "p", got.Payload.AsString())
	assert.Equal(t, map[string]string{"q": "1"}, got.Query)
	assert.Equal(t, map[string]string{"h": "2"}, got.Headers)
	require.NotNil(t, got.User)
	assert.Equal(t, "u1", got.User.Subject)
	assert.True(t, ec.User.ExpiresAt.Equal(got.User.ExpiresAt))
}

func TestContextFromValue_NullAndInvalid(t *testing.T) {
	ec, err := ContextFromValue(cty.NullVal(cty.DynamicPseudoType))
	require.NoError(t, err)
	assert.Equal(t, &model.ExecutionContext{}, ec)

	_, err = ContextFromValue(cty.StringVal("nope"))
	assert.Error(t, err)
}
