// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// FindFilesByExtension recursively searches the given root path for all files ending
// with the specified extension. It returns a slice of their full paths.
func FindFilesByExtension(rootPath string, extension string) ([]string, error) {
	return FindFiles(rootPath, func(path string, d fs.DirEntry) bool {
		return strings.HasSuffix(d.Name(), extension)
	}, nil)
}

// FindFiles walks rootPath and returns every regular file accepted by keep.
// Directories for which skipDir returns true are not descended into; the root
// itself is never skipped. Either callback may be nil.
func FindFiles(rootPath string, keep func(path string, d fs.DirEntry) bool, skipDir func(path string, d fs.DirEntry) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootPath && skipDir != nil && skipDir(path, d) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if keep == nil || keep(path, d) {
			files = append(files, path)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	return files, nil
}

// IsHidden reports whether a path component starts with a dot.
func IsHidden(name string) bool {
	return len(name) > 1 && strings.HasPrefix(name, ".") && name != ".."
}
