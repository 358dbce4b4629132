package integration_tests

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/burstfn/internal/handlers"
	"github.com/vk/burstfn/internal/testutil"
	"github.com/vk/burstfn/modules/env_vars"
	"github.com/vk/burstfn/modules/http_client"
	prnt "github.com/vk/burstfn/modules/print"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

func TestExtensionModules_PrintAndEnv(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	env := &env_vars.Module{Lookup: func(k string) (string, bool) {
		if k == "GREETING" {
			return "howdy", true
		}
		return "", false
	}}
	files := map[string]string{
		"greet.hcl": `
			locals {
				greeting = env("GREETING", "hello")
				region   = env("REGION", "local")
			}
			export "default" {
				result = print("greeting computed", "${local.greeting} from ${local.region}")
			}
		`,
	}
	result := testutil.RunIntegrationTest(t, files, &prnt.Module{}, env)
	require.NoError(t, result.Err)

	// --- Act ---
	got, err := result.Invoke(t, "greet", cty.NilVal)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("howdy from local"), got)
	testutil.AssertLogged(t, result, "greeting computed")
	testutil.AssertLogged(t, result, "function=greet")
}

func TestExtensionModules_ImpureFunctionsAreNotAvailableToModuleLocals(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"bad.hcl": `
			locals {
				noisy = print("at load")
			}
			export "default" {
				result = local.noisy
			}
		`,
	}
	result := testutil.RunIntegrationTest(t, files, &prnt.Module{})
	require.NoError(t, result.Err)

	_, err := result.Invoke(t, "bad", cty.NilVal)

	testutil.RequireInvocationError(t, err, "bad")
}

func TestExtensionModules_Fetch(t *testing.T) {
	t.Parallel()

	// --- Arrange ---
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"echo":` + string(body) + `}`))
	}))
	t.Cleanup(upstream.Close)

	files := map[string]string{
		"proxy.hcl": `
			export "default" {
				locals {
					resp = fetch(ctx.payload.url, { method = "POST", body = { n = 7 } })
				}
				result = local.resp.json.echo.n
			}
		`,
	}
	result := testutil.RunIntegrationTest(t, files, &http_client.Module{})
	require.NoError(t, result.Err)

	// --- Act ---
	got, err := result.Invoke(t, "proxy", cty.ObjectVal(map[string]cty.Value{"url": cty.StringVal(upstream.URL)}))

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, got.Equals(cty.NumberIntVal(7)).True(), "got %#v", got)
}

func TestExtensionModules_CustomFunction(t *testing.T) {
	t.Parallel()

	double := &testutil.SimpleModule{
		Name: "double",
		Function: &handlers.RegisteredFunction{
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
		},
	}
	files := map[string]string{
		"math.hcl": `
			locals {
				base = double(21)
			}
			export "default" {
				result = local.base
			}
		`,
	}
	result := testutil.RunIntegrationTest(t, files, double)
	require.NoError(t, result.Err)

	got, err := result.Invoke(t, "math", cty.NilVal)

	require.NoError(t, err)
	assert.True(t, got.Equals(cty.NumberIntVal(42)).True())
}
