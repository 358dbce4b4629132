// Package registry is the function cache: it owns the mapping from canonical
// function name to the function's raw source and compiled artifact.
//
// The cache is populated by a full workspace scan at startup and kept current
// by filesystem events, which are applied one at a time in arrival order.
// Records are immutable; every change publishes a new record with a higher
// generation, so readers never lock and never see a half-updated record.
//
// A reload that fails to read or compile leaves the previous record in place.
// A stale function that still works is preferred over surfacing a reload
// error to callers.
package registry
