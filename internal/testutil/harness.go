package testutil

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/handlers"
	"github.com/vk/burstfn/internal/model"
	"github.com/vk/burstfn/internal/session"
	"github.com/zclconf/go-cty/cty"
)

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds a started session over a temporary workspace.
type HarnessResult struct {
	Root    string
	Logs    *SafeBuffer
	Session *session.Session
	// Ctx carries the harness logger.
	Ctx context.Context
	Err error
}

// LogOutput returns everything logged so far.
func (h *HarnessResult) LogOutput() string {
	return h.Logs.String()
}

// Invoke runs name with the given payload.
func (h *HarnessResult) Invoke(t *testing.T, name string, payload cty.Value) (cty.Value, error) {
	t.Helper()
	require.NoError(t, h.Err, "session failed to start")
	ec := &model.ExecutionContext{Payload: payload}
	return h.Session.Invoke(h.Ctx, name, ec)
}

// WriteFile writes a workspace file relative to the root.
func (h *HarnessResult) WriteFile(t *testing.T, rel, content string) string {
	t.Helper()
	return writeFile(t, h.Root, rel, content)
}

// RunIntegrationTest provides a standardized harness for running integration
// tests using a default background context.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...handlers.Module) *HarnessResult {
	t.Helper()
	return RunIntegrationTestWithOptions(context.Background(), t, files, session.Options{Modules: modules})
}

// RunIntegrationTestWithOptions writes files into a fresh workspace, creates
// a session with opts over it and starts it. Root, DataPath and TokenSecret
// are filled in when empty.
func RunIntegrationTestWithOptions(ctx context.Context, t *testing.T, files map[string]string, opts session.Options) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		writeFile(t, root, name, content)
	}
	if opts.Root == "" {
		opts.Root = root
	}
	if opts.DataPath == "" {
		opts.DataPath = filepath.Join(t.TempDir(), "data.db")
	}
	if opts.TokenSecret == "" {
		opts.TokenSecret = "integration-test-secret"
	}

	logs := &SafeBuffer{}
	logger := slog.New(slog.NewTextHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx = ctxlog.WithLogger(ctx, logger)

	result := &HarnessResult{Root: root, Logs: logs, Ctx: ctx}
	t.Cleanup(func() {
		if os.Getenv("BURSTFN_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	s, err := session.New(ctx, opts)
	if err != nil {
		result.Err = fmt.Errorf("creating session: %w", err)
		return result
	}
	t.Cleanup(func() { _ = s.Close(ctx) })
	result.Session = s
	result.Err = s.Start(ctx)
	return result
}

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
