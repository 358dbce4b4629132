package testutil

import "github.com/vk/burstfn/internal/handlers"

// SimpleModule is a test helper for easily creating a mock module that
// registers a single function.
type SimpleModule struct {
	Name     string
	Function *handlers.RegisteredFunction
}

// Register implements the handlers.Module interface.
func (m *SimpleModule) Register(h *handlers.Handlers) {
	if m.Name != "" && m.Function != nil {
		h.RegisterFunction(m.Name, m.Function)
	}
}
