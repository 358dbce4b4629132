package env_vars

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/burstfn/internal/handlers"
	"github.com/zclconf/go-cty/cty"
)

func TestEnv(t *testing.T) {
	// --- Arrange ---
	vars := map[string]string{"REGION": "eu-west-1"}
	h := handlers.New()
	(&Module{Lookup: func(k string) (string, bool) { v, ok := vars[k]; return v, ok }}).Register(h)
	fn := h.PureFunctions(context.Background())["env"]
	require.NotNil(t, fn)

	testCases := []struct {
		name string
		args []cty.Value
		want cty.Value
	}{
		{name: "set", args: []cty.Value{cty.StringVal("REGION")}, want: cty.StringVal("eu-west-1")},
		{name: "set ignores default", args: []cty.Value{cty.StringVal("REGION"), cty.StringVal("x")}, want: cty.StringVal("eu-west-1")},
		{name: "default", args: []cty.Value{cty.StringVal("MISSING"), cty.StringVal("fallback")}, want: cty.StringVal("fallback")},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := fn.Call(tc.args)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	t.Run("unset without default is null", func(t *testing.T) {
		got, err := fn.Call([]cty.Value{cty.StringVal("MISSING")})
		require.NoError(t, err)
		assert.True(t, got.IsNull())
	})

	t.Run("too many arguments", func(t *testing.T) {
		_, err := fn.Call([]cty.Value{cty.StringVal("A"), cty.StringVal("b"), cty.StringVal("c")})
		assert.Error(t, err)
	})
}

func TestEnv_DefaultsToProcessEnvironment(t *testing.T) {
	t.Setenv("BURSTFN_TEST_ENV", "from-process")
	h := handlers.New()
	(&Module{}).Register(h)

	got, err := h.Functions(context.Background())["env"].Call([]cty.Value{cty.StringVal("BURSTFN_TEST_ENV")})

	require.NoError(t, err)
	assert.Equal(t, cty.StringVal("from-process"), got)
}
