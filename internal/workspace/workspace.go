// Package workspace enumerates function source files under a workspace root
// and maps their paths to canonical function names.
package workspace

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vk/burstfn/internal/ctxlog"
	"github.com/vk/burstfn/internal/fsutil"
)

const (
	// SourceExt is the extension of a function source file.
	SourceExt = ".hcl"
	// DeclarationExt marks declaration-only files, which are never loaded.
	DeclarationExt = ".d.hcl"
)

// Source is one function file found in the workspace.
type Source struct {
	Name    string
	Path    string
	Raw     []byte
	ModTime time.Time
}

// Scan walks root and returns every loadable source, sorted by name. It is a
// pure function of the directory tree and can be re-run at any time.
func Scan(ctx context.Context, root string) ([]Source, error) {
	logger := ctxlog.FromContext(ctx)
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving workspace root %q: %w", root, err)
	}

	paths, err := fsutil.FindFiles(abs,
		func(path string, _ fs.DirEntry) bool { return Accepts(abs, path) },
		func(_ string, d fs.DirEntry) bool { return fsutil.IsHidden(d.Name()) },
	)
	if err != nil {
		return nil, fmt.Errorf("scanning workspace %q: %w", abs, err)
	}

	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", p, err)
		}
		name, _ := CanonicalName(abs, p)
		src := Source{Name: name, Path: p, Raw: raw}
		if info, err := os.Stat(p); err == nil {
			src.ModTime = info.ModTime()
		}
		logger.Debug("Found function source.", "name", name, "path", p)
		sources = append(sources, src)
	}

	sort.Slice(sources, func(i, j int) bool { return sources[i].Name < sources[j].Name })
	logger.Debug("Workspace scan complete.", "root", abs, "count", len(sources))
	return sources, nil
}

// Accepts reports whether path names a loadable source file under root: it
// must carry the source extension, must not be declaration-only and must not
// sit under a hidden path component.
func Accepts(root, path string) bool {
	base := filepath.Base(path)
	if !strings.HasSuffix(base, SourceExt) || strings.HasSuffix(base, DeclarationExt) {
		return false
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if fsutil.IsHidden(part) {
			return false
		}
	}
	return true
}

// CanonicalName converts a path under root to its canonical function name:
// root-relative, forward slashes, extension stripped.
func CanonicalName(root, path string) (string, error) {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return "", fmt.Errorf("path %q is not under %q: %w", path, root, err)
	}
	if strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %q is not under %q", path, root)
	}
	return strings.TrimSuffix(filepath.ToSlash(rel), SourceExt), nil
}
