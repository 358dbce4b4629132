package server

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/google/uuid"
	"github.com/vk/burstfn/internal/auth"
	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/ctyconv"
	"github.com/vk/burstfn/internal/model"
	"github.com/zishang520/socket.io/v2/socket"
)

// InvokeEvent is the socket.io event clients emit to call a function:
// emit("invoke", name, payload, ack) acks with (result, error).
const InvokeEvent = "invoke"

// SocketMethod is the method stamped on socket.io invocations.
const SocketMethod = "socket"

func (s *Server) newSocketServer() *socket.Server {
	io := socket.NewServer(nil, nil)
	io.On("connection", func(clients ...any) {
		client, ok := clients[0].(*socket.Socket)
		if !ok {
			return
		}
		s.onConnection(client)
	})
	return io
}

func (s *Server) onConnection(client *socket.Socket) {
	logger := s.logger.With("sid", string(client.Id()))
	logger.Debug("Socket client connected.")

	hs := client.Handshake()
	headers := headerMap(hs.Headers)
	user := auth.Resolve(s.opts.Tokens, handshakeAuthorization(headers, hs.Auth))

	client.On(InvokeEvent, func(args ...any) {
		reply := ackOf(args)
		if reply != nil {
			args = args[:len(args)-1]
		}
		name, raw, err := invokeArgs(args)
		if err != nil {
			logger.Debug("Malformed invoke event.", "error", err)
			reply.send(nil, errorBody{Message: err.Error()})
			return
		}
		payload, err := ctyconv.FromGo(raw)
		if err != nil {
			reply.send(nil, errorBody{Function: name, Message: err.Error()})
			return
		}

		ec := &model.ExecutionContext{
			RequestID: uuid.NewString(),
			Method:    SocketMethod,
			User:      user,
			Payload:   payload,
			Headers:   headers,
		}
		ctx := ctxlog.With(ctxlog.WithLogger(context.Background(), logger), "request_id", ec.RequestID)
		result, err := s.opts.Invoker.Invoke(ctx, name, ec)
		if err != nil {
			_, fn, msg := classify(name, err)
			logger.Debug("Socket invocation failed.", "function", name, "error", err)
			reply.send(nil, errorBody{Function: fn, Message: msg})
			return
		}
		out, err := ctyconv.ToGo(result)
		if err != nil {
			reply.send(nil, errorBody{Function: name, Message: err.Error()})
			return
		}
		reply.send(out, nil)
	})

	client.On("disconnect", func(reason ...any) {
		logger.Debug("Socket client disconnected.", "reason", reason)
	})
}

func invokeArgs(args []any) (string, any, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("missing function name")
	}
	name, ok := args[0].(string)
	if !ok || name == "" {
		return "", nil, fmt.Errorf("function name must be a non-empty string")
	}
	if len(args) < 2 {
		return name, nil, nil
	}
	return name, args[1], nil
}

// handshakeAuthorization finds a bearer credential in the Authorization
// header or in the handshake auth payload ({token: "..."}).
func handshakeAuthorization(headers map[string]string, authData any) string {
	if h := headers["authorization"]; h != "" {
		return h
	}
	if tok := headerMap(authData)["token"]; tok != "" {
		return "Bearer " + tok
	}
	return ""
}

// headerMap flattens any string-keyed map into lower-cased keys holding the
// first string value.
func headerMap(v any) map[string]string {
	out := map[string]string{}
	m := reflect.ValueOf(v)
	if m.Kind() != reflect.Map || m.Type().Key().Kind() != reflect.String {
		return out
	}
	iter := m.MapRange()
	for iter.Next() {
		if s, ok := firstString(iter.Value()); ok {
			out[strings.ToLower(iter.Key().String())] = s
		}
	}
	return out
}

func firstString(v reflect.Value) (string, bool) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return "", false
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.String:
		return v.String(), true
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return "", false
		}
		return firstString(v.Index(0))
	}
	return "", false
}

// ackFunc wraps the acknowledgement callback socket.io appends to an
// event's arguments.
type ackFunc struct {
	fn reflect.Value
}

func ackOf(args []any) *ackFunc {
	if len(args) == 0 || args[len(args)-1] == nil {
		return nil
	}
	fn := reflect.ValueOf(args[len(args)-1])
	if fn.Kind() != reflect.Func {
		return nil
	}
	return &ackFunc{fn: fn}
}

func (a *ackFunc) send(result any, failure any) {
	if a == nil {
		return
	}
	var errVal any
	if failure != nil {
		errVal = map[string]any{"error": failure}
	}
	values := []any{result, errVal}

	t := a.fn.Type()
	switch {
	case t.NumIn() == 2 && t.In(0).Kind() == reflect.Slice && !t.IsVariadic():
		// func([]any, error)
		a.fn.Call([]reflect.Value{reflect.ValueOf(values), reflect.Zero(t.In(1))})
	case t.IsVariadic() && t.NumIn() == 1:
		in := make([]reflect.Value, len(values))
		for i, v := range values {
			in[i] = valueOrZero(v, t.In(0).Elem())
		}
		a.fn.Call(in)
	}
}

func valueOrZero(v any, t reflect.Type) reflect.Value {
	if v == nil {
		return reflect.Zero(t)
	}
	return reflect.ValueOf(v)
}
