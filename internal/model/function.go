// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// This file defines the FunctionRecord and Artifact, the two values the
// function cache stores for every canonical name.
//
// Why is a record immutable?
//
// Readers never take a lock. The only way that is safe is if a published
// record is never touched again: a reload builds a complete new record and
// swaps the pointer. A reader therefore sees either the old source with the
// old artifact or the new source with the new artifact, never a mix.
package model

import (
	"context"
	"time"

	"github.com/zclconf/go-cty/cty"
)

// Artifact is the compiled, executable-code representation of a function.
type Artifact struct {
	// Name is the canonical name the artifact was compiled for.
	Name string
	// Code is the normalised source the engine instantiates from.
	Code []byte
	// Digest is the hex sha256 of Code.
	Digest string
	// Exports lists the export labels found in the source, sorted.
	Exports []string
}

// HasExport reports whether the artifact declares the given export.
func (a *Artifact) HasExport(name string) bool {
	for _, e := range a.Exports {
		if e == name {
			return true
		}
	}
	return false
}

// FunctionRecord is one entry of the function cache.
type FunctionRecord struct {
	Name          string
	Source        string
	Artifact      *Artifact
	LoadedAt      time.Time
	Generation    uint64
	FSInformation *FSInfo
}

// Executable is an instantiated function module. Implementations must be safe
// for concurrent use: one instance serves every concurrent invocation.
type Executable interface {
	// EntryPoint is the name of the export selected at instantiation.
	EntryPoint() string
	// Execute runs the entry point with the given context.
	Execute(ctx context.Context, ec *ExecutionContext) (cty.Value, error)
}
