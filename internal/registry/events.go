package registry

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/model"
	"github.com/vk/burstfn/internal/watcher"
	"github.com/vk/burstfn/internal/workspace"
)

func (r *Registry) run(ctx context.Context) {
	defer close(r.done)
	logger := ctxlog.FromContext(ctx)
	events, errs := r.source.Events(), r.source.Errors()
	for events != nil || errs != nil {
		select {
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			// Failures are logged inside ApplyEvent.
			_ = r.ApplyEvent(ctx, ev)
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			logger.Error("Watcher error.", "error", err)
		case <-ctx.Done():
			return
		}
	}
	logger.Debug("Watcher event loop stopped.")
}

// ApplyEvent applies one filesystem event. Events are serialised, so callers
// and the watcher loop observe a single order. A read or compile failure
// leaves the previous record untouched and is returned after being logged.
func (r *Registry) ApplyEvent(ctx context.Context, ev watcher.Event) error {
	r.applyMu.Lock()
	defer r.applyMu.Unlock()

	logger := ctxlog.FromContext(ctx)
	if !workspace.Accepts(r.root, ev.Path) {
		logger.Debug("Ignoring event for non-function path.", "path", ev.Path, "op", ev.Op)
		return nil
	}
	name, err := workspace.CanonicalName(r.root, ev.Path)
	if err != nil {
		return err
	}
	logger = logger.With("name", name, "op", ev.Op)

	switch ev.Op {
	case watcher.Add, watcher.Change:
		raw, err := os.ReadFile(ev.Path)
		if err != nil {
			logger.Error("Reload failed to read file; keeping previous version.", "path", ev.Path, "error", err)
			return fmt.Errorf("reading %q: %w", ev.Path, err)
		}
		art, err := r.compiler.Transpile(raw, name)
		if err != nil {
			logger.Error("Reload failed to compile; keeping previous version.", "path", ev.Path, "error", err)
			return err
		}
		modTime := time.Now()
		if info, err := os.Stat(ev.Path); err == nil {
			modTime = info.ModTime()
		}
		rec := r.Set(name, &model.FunctionRecord{
			Source:        string(raw),
			Artifact:      art,
			LoadedAt:      time.Now(),
			FSInformation: model.NewFSInfo(ev.Path, modTime),
		})
		logger.Info("🔄 Function reloaded.", "generation", rec.Generation)
	case watcher.Remove:
		r.Delete(name)
		logger.Info("Function removed.")
	default:
		return fmt.Errorf("unknown event op %v", ev.Op)
	}
	return nil
}
