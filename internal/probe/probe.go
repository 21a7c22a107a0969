// Package probe spawns a configured MCP server and checks that it answers
// the protocol handshake, reporting the tool names it advertises.
package probe

import (
	"context"
	"sort"
	"time"
)

// ServerConfig is everything needed to launch one server process.
type ServerConfig struct {
	Command string
	Args    []string
	Env     map[string]string
}

// Clone returns a deep copy so candidate fixes can rewrite a configuration
// without mutating the caller's copy.
func (c ServerConfig) Clone() ServerConfig {
	out := ServerConfig{Command: c.Command}
	out.Args = append([]string(nil), c.Args...)
	if c.Env != nil {
		out.Env = make(map[string]string, len(c.Env))
		for k, v := range c.Env {
			out.Env[k] = v
		}
	}
	return out
}

// EnvKeys returns the sorted environment-variable key names. Values never
// leave this struct.
func (c ServerConfig) EnvKeys() []string {
	keys := make([]string, 0, len(c.Env))
	for k := range c.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Result is the outcome of one probe.
type Result struct {
	Success   bool
	ToolNames []string
	ErrorText string
}

// Probe is the contract the healing engine and the verify pipeline consume.
type Probe interface {
	// Probe launches the server, performs the handshake, and tears the
	// process down. It never returns an error: failures are reported in
	// Result.ErrorText.
	Probe(ctx context.Context, serverName string, cfg ServerConfig, timeout time.Duration) Result
}
