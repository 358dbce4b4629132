// Package session wires the runtime together: the function registry and its
// watcher, the module instantiation cache, the dispatcher, the SDK and the
// extension functions. A Session is the unit the application starts and
// closes, and the unit tests build in isolation.
package session
