// Package hostconfig reads and edits the client's live MCP server
// configuration: the .mcp.json file most clients share, or a servers.yaml
// variant. Only the pieces this tool reconciles (name, command, args, env)
// are modeled; unknown keys in the file are preserved on write.
package hostconfig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Server is one installed server entry as found in the host configuration.
type Server struct {
	Name    string
	Command string
	Args    []string
	Env     map[string]string
}

// File is a handle on one host configuration path.
type File struct {
	path string
}

// NewFile creates a handle for the configuration at path. The extension
// decides the format: .yaml/.yml is YAML, everything else JSON.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the configuration path.
func (f *File) Path() string { return f.path }

func (f *File) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(f.path))
	return ext == ".yaml" || ext == ".yml"
}

// jsonServer is the wire shape of one server in .mcp.json's mcpServers
// object (and the servers mapping of the YAML variant).
type jsonServer struct {
	Command string            `json:"command" yaml:"command"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Read returns the installed servers keyed by name. A missing file is an
// empty configuration, not an error.
func (f *File) Read() (map[string]Server, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]Server{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading host configuration: %w", err)
	}

	var raw map[string]jsonServer
	if f.isYAML() {
		raw, err = parseYAMLServers(data)
	} else {
		raw, err = parseJSONServers(data)
	}
	if err != nil {
		return nil, err
	}

	servers := make(map[string]Server, len(raw))
	for name, entry := range raw {
		servers[name] = Server{
			Name:    name,
			Command: entry.Command,
			Args:    entry.Args,
			Env:     entry.Env,
		}
	}
	return servers, nil
}

func parseJSONServers(data []byte) (map[string]jsonServer, error) {
	var doc struct {
		MCPServers map[string]jsonServer `json:"mcpServers"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing host configuration: %w", err)
	}
	return doc.MCPServers, nil
}

func parseYAMLServers(data []byte) (map[string]jsonServer, error) {
	var doc struct {
		Servers map[string]jsonServer `yaml:"servers"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing host configuration: %w", err)
	}
	return doc.Servers, nil
}

// Upsert writes or replaces one server entry, preserving every unrelated
// key already in the file.
func (f *File) Upsert(server Server) error {
	return f.rewrite(func(servers map[string]any) {
		entry := map[string]any{"command": server.Command}
		if len(server.Args) > 0 {
			entry["args"] = server.Args
		}
		if len(server.Env) > 0 {
			entry["env"] = server.Env
		}
		servers[server.Name] = entry
	})
}

// Remove deletes one server entry; removing an absent name is a no-op.
func (f *File) Remove(name string) error {
	return f.rewrite(func(servers map[string]any) {
		delete(servers, name)
	})
}

// rewrite performs a read-modify-write of the full document so unknown
// top-level keys survive the edit.
func (f *File) rewrite(apply func(servers map[string]any)) error {
	doc := map[string]any{}

	data, err := os.ReadFile(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading host configuration: %w", err)
	}
	if len(data) > 0 {
		if f.isYAML() {
			err = yaml.Unmarshal(data, &doc)
		} else {
			err = json.Unmarshal(data, &doc)
		}
		if err != nil {
			return fmt.Errorf("parsing host configuration: %w", err)
		}
	}

	serversKey := "mcpServers"
	if f.isYAML() {
		serversKey = "servers"
	}

	servers, _ := doc[serversKey].(map[string]any)
	if servers == nil {
		servers = map[string]any{}
	}
	apply(servers)
	doc[serversKey] = servers

	var out []byte
	if f.isYAML() {
		out, err = yaml.Marshal(doc)
	} else {
		out, err = json.MarshalIndent(doc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("serializing host configuration: %w", err)
	}
	if !f.isYAML() {
		out = append(out, '\n')
	}

	dir := filepath.Dir(f.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating host configuration directory: %w", err)
		}
	}

	// Temp-file+rename so a crash mid-write never truncates the file.
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp host configuration: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp host configuration: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp host configuration: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting host configuration permissions: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing host configuration: %w", err)
	}
	return nil
}

// Names returns the sorted server names in the configuration.
func Names(servers map[string]Server) []string {
	names := make([]string, 0, len(servers))
	for name := range servers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
