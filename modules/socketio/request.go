package socketio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/ctyconv"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// DefaultTimeout bounds a request that does not set its own timeout.
const DefaultTimeout = 10 * time.Second

// Input is the decoded options argument of socketio_request.
type Input struct {
	URL                string
	Namespace          string
	OnEvent            string
	EmitEvent          string
	EmitData           any
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// opResult is a private struct to safely pass results through the done channel.
type opResult struct {
	value any
	err   error
}

// newRequest builds socketio_request(url, options). It connects, emits
// options.emit_event with options.emit_data once connected, and returns
// {response_data} from the first options.on_event received.
func newRequest(ctx context.Context) function.Function {
	return function.New(&function.Spec{
		Description: "Emits an event to a socket.io server and waits for a reply event.",
		Params: []function.Parameter{
			{Name: "url", Type: cty.String},
			{Name: "options", Type: cty.DynamicPseudoType, AllowDynamicType: true},
		},
		Type: function.StaticReturnType(cty.DynamicPseudoType),
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			input, err := decodeInput(args[0].AsString(), args[1])
			if err != nil {
				return cty.NilVal, err
			}
			data, err := Request(ctx, input)
			if err != nil {
				return cty.NilVal, err
			}
			v, err := ctyconv.FromGo(data)
			if err != nil {
				return cty.NilVal, fmt.Errorf("converting response: %w", err)
			}
			return cty.ObjectVal(map[string]cty.Value{"response_data": v}), nil
		},
	})
}

func decodeInput(rawURL string, opts cty.Value) (*Input, error) {
	in := &Input{URL: rawURL, Timeout: DefaultTimeout}
	var err error
	if in.Namespace, err = ctyconv.AttrString(opts, "namespace", "/"); err != nil {
		return nil, err
	}
	if in.EmitEvent, err = ctyconv.AttrString(opts, "emit_event", ""); err != nil {
		return nil, err
	}
	if in.OnEvent, err = ctyconv.AttrString(opts, "on_event", ""); err != nil {
		return nil, err
	}
	if in.OnEvent == "" {
		return nil, errors.New("socketio_request: on_event is required")
	}
	if t, err := ctyconv.AttrString(opts, "timeout", ""); err != nil {
		return nil, err
	} else if t != "" {
		if in.Timeout, err = time.ParseDuration(t); err != nil {
			return nil, fmt.Errorf("socketio_request: invalid timeout %q: %w", t, err)
		}
	}
	if skip := ctyconv.Attr(opts, "insecure_skip_verify"); !skip.IsNull() {
		if skip.Type() != cty.Bool {
			return nil, errors.New("socketio_request: insecure_skip_verify must be a bool")
		}
		in.InsecureSkipVerify = skip.True()
	}
	if in.EmitData, err = ctyconv.ToGo(ctyconv.Attr(opts, "emit_data")); err != nil {
		return nil, fmt.Errorf("socketio_request: emit_data: %w", err)
	}
	return in, nil
}

// Request performs one round trip against a socket.io server.
func Request(ctx context.Context, input *Input) (any, error) {
	logger := ctxlog.FromContext(ctx).With("module", "socketio", "url", input.URL, "onEvent", input.OnEvent, "emitEvent", input.EmitEvent)
	logger.Debug("Request started")
	defer logger.Debug("Request finished")

	var isConnected atomic.Bool

	done := make(chan opResult, 1)
	opCtx, cancel := context.WithTimeout(ctx, input.Timeout)
	defer cancel()

	parsedURL, err := url.Parse(input.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse URL: %w", err)
	}

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	opts := socket.DefaultOptions()
	if parsedURL.Path != "" && parsedURL.Path != "/" {
		opts.SetPath(parsedURL.Path)
	}

	if input.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(input.Namespace, opts)
	defer func() {
		logger.Debug("Disconnecting socket client")
		io.Disconnect()
	}()

	send := func(r opResult) {
		select {
		case done <- r:
		default:
		}
	}

	io.On(types.EventName("connect"), func(...any) {
		isConnected.Store(true)
		logger.Debug("Connected", "namespace", input.Namespace, "sid", io.Id())
		if input.EmitEvent != "" {
			io.Emit(input.EmitEvent, input.EmitData)
		}
	})

	io.On(types.EventName("connect_error"), func(errs ...any) {
		send(opResult{err: connectError(errs)})
	})

	io.On(types.EventName(input.OnEvent), func(data ...any) {
		var responseData any
		if len(data) > 0 {
			responseData = data[0]
		}
		send(opResult{value: responseData})
	})

	io.Connect()

	select {
	case <-opCtx.Done():
		if isConnected.Load() {
			return nil, fmt.Errorf("timed out after connecting while waiting for event '%s'", input.OnEvent)
		}
		return nil, errors.New("timed out while waiting for initial connection")
	case res := <-done:
		return res.value, res.err
	}
}

func connectError(args []any) error {
	if len(args) > 0 {
		if err, ok := args[0].(error); ok {
			return fmt.Errorf("socket.io connection failed: %w", err)
		}
	}
	return errors.New("socket.io connection failed")
}
