package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/vk/burstfn/internal/handlers"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// ExecutionRecord is the wall-clock span of one sleep call.
type ExecutionRecord struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the two spans ran at the same time.
func (r *ExecutionRecord) Overlaps(other *ExecutionRecord) bool {
	return r.Start.Before(other.End) && other.Start.Before(r.End)
}

// MockSleeperModule is a shared, self-contained module for concurrency tests.
// It registers sleep(id) and records when each call started and ended.
type MockSleeperModule struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockSleeperModule creates a new sleeper module for testing.
func NewMockSleeperModule(completionChan chan<- string, sleep time.Duration) *MockSleeperModule {
	return &MockSleeperModule{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Register registers the sleep function.
func (m *MockSleeperModule) Register(h *handlers.Handlers) {
	h.RegisterFunction("sleep", &handlers.RegisteredFunction{
		New: func(ctx context.Context) function.Function {
			return function.New(&function.Spec{
				Params: []function.Parameter{{Name: "id", Type: cty.String}},
				Type:   function.StaticReturnType(cty.String),
				Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
					id := args[0].AsString()

					startTime := time.Now()
					select {
					case <-time.After(m.sleepDuration):
					case <-ctx.Done():
						return cty.NilVal, ctx.Err()
					}
					endTime := time.Now()

					m.mu.Lock()
					m.ExecutionTimes[id] = &ExecutionRecord{Start: startTime, End: endTime}
					m.mu.Unlock()

					if m.completionChan != nil {
						m.completionChan <- id
					}
					return args[0], nil
				},
			})
		},
	})
}

// Record returns the execution record for id, if any.
func (m *MockSleeperModule) Record(id string) (*ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.ExecutionTimes[id]
	return r, ok
}
