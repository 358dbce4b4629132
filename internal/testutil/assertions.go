package testutil

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/burstfn/internal/model"
)

// AssertLogged checks that the harness log output contains substr.
func AssertLogged(t *testing.T, result *HarnessResult, substr string) {
	t.Helper()
	require.True(t,
		strings.Contains(result.LogOutput(), substr),
		"expected log output to contain %q", substr,
	)
}

// RequireInvocationError asserts err is an InvocationError attributed to
// name and returns it.
func RequireInvocationError(t *testing.T, err error, name string) *model.InvocationError {
	t.Helper()
	var invocation *model.InvocationError
	require.True(t, errors.As(err, &invocation), "expected an InvocationError, got %v", err)
	require.Equal(t, name, invocation.Name)
	return invocation
}
