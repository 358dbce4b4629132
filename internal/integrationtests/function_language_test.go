package integration_tests

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/burstfn/internal/model"
	"github.com/vk/burstfn/internal/testutil"
	"github.com/zclconf/go-cty/cty"
)

func TestFunctionLanguage_Results(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		hcl     string
		payload cty.Value
		want    cty.Value
	}{
		{
			name: "module and export locals",
			hcl: `
			locals {
				prefix = "Hello"
			}
			export "default" {
				locals {
					who = upper(ctx.payload.name)
				}
				result = "${local.prefix}, ${local.who}!"
			}
			`,
			payload: cty.ObjectVal(map[string]cty.Value{"name": cty.StringVal("bob")}),
			want:    cty.StringVal("Hello, BOB!"),
		},
		{
			name: "main is the fallback entry point",
			hcl: `
			export "helper" {
				result = "wrong"
			}
			export "main" {
				result = "main"
			}
			`,
			want: cty.StringVal("main"),
		},
		{
			name: "default wins over main",
			hcl: `
			export "main" {
				result = "main"
			}
			export "default" {
				result = "default"
			}
			`,
			want: cty.StringVal("default"),
		},
		{
			name: "heredoc template with directives",
			hcl: `
			export "default" {
				result = <<-EOT
				%{ for n in ctx.payload.items }${n};%{ endfor }
				EOT
			}
			`,
			payload: cty.ObjectVal(map[string]cty.Value{
				"items": cty.TupleVal([]cty.Value{cty.StringVal("a"), cty.StringVal("b")}),
			}),
			want: cty.StringVal("a;b;\n"),
		},
		{
			name: "json round trip through stdlib",
			hcl: `
			export "default" {
				result = jsondecode(jsonencode({ n = 1 })).n
			}
			`,
			want: cty.NumberIntVal(1),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			result := testutil.RunIntegrationTest(t, map[string]string{"fn.hcl": tc.hcl})
			require.NoError(t, result.Err)

			// --- Act ---
			got, err := result.Invoke(t, "fn", tc.payload)

			// --- Assert ---
			require.NoError(t, err)
			assert.True(t, got.Equals(tc.want).True(), "got %#v", got)
		})
	}
}

func TestFunctionLanguage_Failures(t *testing.T) {
	t.Parallel()

	t.Run("error attribute raises", func(t *testing.T) {
		t.Parallel()
		result := testutil.RunIntegrationTest(t, map[string]string{"fn.hcl": `
			export "default" {
				error  = "quota exceeded"
				result = "unreachable"
			}
		`})

		_, err := result.Invoke(t, "fn", cty.NilVal)

		invocation := testutil.RequireInvocationError(t, err, "fn")
		var runtime *model.RuntimeError
		require.ErrorAs(t, invocation, &runtime)
		assert.Equal(t, "quota exceeded", runtime.Message)
	})

	t.Run("fail function raises", func(t *testing.T) {
		t.Parallel()
		result := testutil.RunIntegrationTest(t, map[string]string{"fn.hcl": `
			export "default" {
				result = fail("nope")
			}
		`})

		_, err := result.Invoke(t, "fn", cty.NilVal)

		testutil.RequireInvocationError(t, err, "fn")
		assert.Contains(t, err.Error(), "nope")
	})

	t.Run("no entry point", func(t *testing.T) {
		t.Parallel()
		result := testutil.RunIntegrationTest(t, map[string]string{"fn.hcl": `
			export "helper" {
				result = 1
			}
		`})

		_, err := result.Invoke(t, "fn", cty.NilVal)

		var missing *model.MissingEntryPointError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "fn", missing.Name)
	})

	t.Run("unknown function", func(t *testing.T) {
		t.Parallel()
		result := testutil.RunIntegrationTest(t, nil)

		_, err := result.Invoke(t, "ghost", cty.NilVal)

		var missing *model.MissingFunctionError
		require.ErrorAs(t, err, &missing)
	})

	t.Run("invalid source is skipped at load", func(t *testing.T) {
		t.Parallel()
		result := testutil.RunIntegrationTest(t, map[string]string{
			"broken.hcl": `export "default" {`,
			"ok.hcl":     `export "default" { result = "ok" }`,
		})
		require.NoError(t, result.Err)

		got, err := result.Invoke(t, "ok", cty.NilVal)
		require.NoError(t, err)
		assert.Equal(t, cty.StringVal("ok"), got)

		_, err = result.Invoke(t, "broken", cty.NilVal)
		var missing *model.MissingFunctionError
		require.ErrorAs(t, err, &missing)
	})

	t.Run("declaration files are not functions", func(t *testing.T) {
		t.Parallel()
		result := testutil.RunIntegrationTest(t, map[string]string{
			"types.d.hcl": `export "default" { result = "declared" }`,
		})

		_, err := result.Invoke(t, "types.d", cty.NilVal)
		var missing *model.MissingFunctionError
		require.ErrorAs(t, err, &missing)
		assert.Zero(t, result.Session.Registry.Size())
	})
}
