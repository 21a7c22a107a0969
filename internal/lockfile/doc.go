// Package lockfile persists the desired state of installed MCP servers.
//
// The on-disk document (anchor.lock) is JSON with deterministic
// serialization: sorted server names, sorted tool and env-key lists, 2-space
// indentation, trailing newline. Every mutation is a locked
// read-modify-write finished by an atomic rename, so concurrent callers in
// one process and concurrent processes both see either the old or the new
// file, never a torn one.
package lockfile
