// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml in this package and rebuild; Go's //go:embed
// bakes it into the binary.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName      string `yaml:"cli_name"`
	DisplayName  string `yaml:"display_name"`
	Description  string `yaml:"description"`
	HomeDir      string `yaml:"home_dir"`
	EnvPrefix    string `yaml:"env_prefix"`
	GoModule     string `yaml:"go_module"`
	GitHubRepo   string `yaml:"github_repo"`
	LockfileName string `yaml:"lockfile_name"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:      "anchor",
			DisplayName:  "Anchor",
			Description:  "Discover, install, and reconcile MCP servers with a lockfile",
			HomeDir:      ".anchor",
			EnvPrefix:    "ANCHOR",
			GoModule:     "github.com/anchor-mcp/anchor",
			GitHubRepo:   "anchor-mcp/anchor",
			LockfileName: "anchor.lock",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "anchor").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name (e.g., "Anchor").
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".anchor").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "ANCHOR").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GoModule returns the Go module path.
func GoModule() string { load(); return defaults.GoModule }

// GitHubRepo returns the "owner/repo" string used for release lookups.
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// LockfileName returns the lockfile filename written into project roots.
func LockfileName() string { load(); return defaults.LockfileName }

// GeneratorTag returns the value written into a lockfile's generated_by field.
func GeneratorTag(version string) string {
	load()
	return defaults.CLIName + "@" + version
}

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "ANCHOR_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
