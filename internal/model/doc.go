// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model holds the plain data types shared by every layer of the
// function runtime. It has no behaviour of its own beyond small helpers.
//
// # Core Concepts
//
//   - FunctionRecord: the cached pair of raw source and compiled artifact for
//     one canonical function name. Records are immutable once published; a
//     reload publishes a brand new record with a higher generation.
//
//   - Artifact: the output of the compiler bridge, i.e. the executable-code
//     representation of a function's source.
//
//   - ExecutionContext: the per-invocation context handed to a function body.
//
//   - Identity: the verified claims of a caller's bearer token.
//
//   - SharedState: the process-wide blackboard visible to every function.
//
// Why a separate model package?
//
// The registry, the module cache, the executor and the SDK facade all pass
// these values to each other. Keeping them in a leaf package lets each of those
// layers depend on the data without depending on one another, which is what
// allows the runtime to be wired by explicit injection instead of globals.
package model
