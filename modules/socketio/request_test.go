package socketio

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/burstfn/internal/handlers"
	"github.com/zclconf/go-cty/cty"
)

func TestDecodeInput(t *testing.T) {
	// --- Arrange ---
	opts := cty.ObjectVal(map[string]cty.Value{
		"namespace":            cty.StringVal("/chat"),
		"emit_event":           cty.StringVal("ping"),
		"emit_data":            cty.ObjectVal(map[string]cty.Value{"n": cty.NumberIntVal(1)}),
		"on_event":             cty.StringVal("pong"),
		"timeout":              cty.StringVal("2s"),
		"insecure_skip_verify": cty.True,
	})

	// --- Act ---
	in, err := decodeInput("ws://localhost:3000/socket.io/", opts)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "/chat", in.Namespace)
	assert.Equal(t, "ping", in.EmitEvent)
	assert.Equal(t, "pong", in.OnEvent)
	assert.Equal(t, 2*time.Second, in.Timeout)
	assert.True(t, in.InsecureSkipVerify)
	assert.Equal(t, map[string]any{"n": int64(1)}, in.EmitData)
}

func TestDecodeInput_Defaults(t *testing.T) {
	in, err := decodeInput("ws://localhost:3000", cty.ObjectVal(map[string]cty.Value{"on_event": cty.StringVal("pong")}))

	require.NoError(t, err)
	assert.Equal(t, "/", in.Namespace)
	assert.Equal(t, DefaultTimeout, in.Timeout)
	assert.Nil(t, in.EmitData)
	assert.False(t, in.InsecureSkipVerify)
}

func TestDecodeInput_Errors(t *testing.T) {
	testCases := []struct {
		name string
		opts cty.Value
	}{
		{name: "missing on_event", opts: cty.EmptyObjectVal},
		{name: "bad timeout", opts: cty.ObjectVal(map[string]cty.Value{"on_event": cty.StringVal("x"), "timeout": cty.StringVal("later")})},
		{name: "non-bool skip verify", opts: cty.ObjectVal(map[string]cty.Value{"on_event": cty.StringVal("x"), "insecure_skip_verify": cty.StringVal("yes")})},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := decodeInput("ws://localhost", tc.opts)
			assert.Error(t, err)
		})
	}
}

func TestSocketIORequest_UnreachableServerFails(t *testing.T) {
	// --- Arrange ---
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	h := handlers.New()
	(&Module{}).Register(h)
	fn := h.Functions(context.Background())["socketio_request"]

	// --- Act ---
	_, err = fn.Call([]cty.Value{
		cty.StringVal("http://" + addr),
		cty.ObjectVal(map[string]cty.Value{
			"on_event": cty.StringVal("pong"),
			"timeout":  cty.StringVal("300ms"),
		}),
	})

	// --- Assert ---
	assert.Error(t, err)
}
