package registry

import (
	"context"
	"time"

	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/model"
	"github.com/vk/burstfn/internal/workspace"
)

func (r *Registry) load(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	sources, err := workspace.Scan(ctx, r.root)
	if err != nil {
		logger.Error("Failed to scan workspace.", "root", r.root, "error", err)
		return err
	}
	if len(sources) == 0 {
		logger.Warn("No function files found in workspace.", "root", r.root)
		return nil
	}

	loaded := 0
	for _, src := range sources {
		art, err := r.compiler.Transpile(src.Raw, src.Name)
		if err != nil {
			logger.Warn("Skipping function that failed to compile.", "name", src.Name, "path", src.Path, "error", err)
			continue
		}
		r.Set(src.Name, &model.FunctionRecord{
			Source:        string(src.Raw),
			Artifact:      art,
			LoadedAt:      time.Now(),
			FSInformation: model.NewFSInfo(src.Path, src.ModTime),
		})
		loaded++
	}

	logger.Info("Function registry loaded.", "functions_loaded", loaded, "skipped", len(sources)-loaded)
	return nil
}
