// Package engine instantiates compiled function artifacts and executes them.
//
// An instance is built once per artifact generation: the module's top-level
// locals are evaluated with pure functions only and kept for the life of the
// instance. Every call then evaluates the selected export in a child
// evaluation context that adds the `ctx` object, the export's own locals and
// the SDK functions bound to the caller's context.Context.
package engine
