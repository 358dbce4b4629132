package server

import (
	"errors"
	"net/http"

	"github.com/vk/burstfn/internal/model"
)

// classify maps an invocation error to a status code, the function it is
// attributed to and a client-facing message. The outermost InvocationError
// wins so that a nested lookup failure is still reported as a failure of the
// function the client called.
func classify(name string, err error) (int, string, string) {
	var invocation *model.InvocationError
	if errors.As(err, &invocation) {
		return http.StatusInternalServerError, invocation.Name, rootMessage(invocation)
	}
	var missing *model.MissingFunctionError
	if errors.As(err, &missing) {
		return http.StatusNotFound, missing.Name, err.Error()
	}
	var entry *model.MissingEntryPointError
	if errors.As(err, &entry) {
		return http.StatusInternalServerError, entry.Name, err.Error()
	}
	var compile *model.CompileError
	if errors.As(err, &compile) {
		return http.StatusInternalServerError, compile.Name, err.Error()
	}
	return http.StatusInternalServerError, name, err.Error()
}

// rootMessage prefers the message raised by function code over the wrapped
// chain of invoke prefixes.
func rootMessage(err *model.InvocationError) string {
	var runtime *model.RuntimeError
	if errors.As(err, &runtime) {
		return runtime.Message
	}
	return err.Error()
}
