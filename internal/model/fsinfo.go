// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the FSInfo struct, which stores file system metadata.
//
// Why store the file path?
//
// A function record is keyed by its canonical name, but operators think in
// files. Keeping the absolute path next to the record lets reload and compile
// errors point at the exact file on disk, and lets the watcher map a path back
// to the record it owns.
package model

import "time"

// FSInfo links an in-memory record back to its source file.
type FSInfo struct {
	FilePath string
	ModTime  time.Time
}

// NewFSInfo creates FSInfo for the given path.
func NewFSInfo(filePath string, modTime time.Time) *FSInfo {
	return &FSInfo{
		FilePath: filePath,
		ModTime:  modTime,
	}
}
