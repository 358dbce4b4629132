// Package modulecache holds the instantiated, directly executable form of
// each function, built lazily from the function cache's compiled artifact.
//
// # Validity
//
// An instance is valid while its generation equals the generation of the
// function record it was built from. A reload publishes a record with a new
// generation, so an instance can never be served against newer source, even
// in the window before Invalidate is called.
//
// # Concurrency Model
//
// Instances live in a sync.Map: lookups on the hot path never lock. Building
// an instance goes through a singleflight.Group keyed by name and
// generation, so concurrent first calls for one function share a single
// instantiation while different functions instantiate independently. The
// flight covers instantiation only. Execution happens after it has returned,
// which is what makes a function invoking itself safe.
package modulecache
