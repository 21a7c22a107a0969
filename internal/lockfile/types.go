package lockfile

import (
	"errors"
	"fmt"
	"time"
)

// Version is the schema version this build reads and writes.
const Version = 1

// RegistryNPM is the default registry kind assumed when a stored entry
// predates the registry_type field.
const RegistryNPM = "npm"

// ErrMalformed wraps any hard read failure caused by a present but
// unparseable or schema-invalid lockfile.
var ErrMalformed = errors.New("malformed lockfile")

// UnsupportedVersionError is returned when the stored schema version is not
// one this build understands.
type UnsupportedVersionError struct {
	Found int
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported lockfile version %d (supported: %d)", e.Found, Version)
}

// ServerConfig is the persisted launch configuration snapshot. Only
// environment-variable key names are recorded, never values.
type ServerConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args"`
	EnvKeys []string `json:"env_keys"`
}

// Entry is the durable desired-state record for one server name.
type Entry struct {
	Name              string       `json:"-"`
	PackageIdentifier string       `json:"package_identifier"`
	RegistryType      string       `json:"registry_type"`
	Version           string       `json:"version"`
	Integrity         *string      `json:"integrity"`
	RepositoryURL     string       `json:"repository_url"`
	Config            ServerConfig `json:"config"`
	Tools             []string     `json:"tools"`
	ToolsHash         *string      `json:"tools_hash"`
	InstalledAt       time.Time    `json:"installed_at"`
	VerifiedAt        *time.Time   `json:"verified_at"`
	VerifiedHealthy   bool         `json:"verified_healthy"`
}

// Document is the versioned lockfile container.
type Document struct {
	LockfileVersion int              `json:"lockfile_version"`
	GeneratedBy     string           `json:"generated_by"`
	GeneratedAt     time.Time        `json:"generated_at"`
	Servers         map[string]Entry `json:"servers"`
}

// NewDocument returns an empty document at the current schema version.
func NewDocument(generatedBy string) *Document {
	return &Document{
		LockfileVersion: Version,
		GeneratedBy:     generatedBy,
		Servers:         make(map[string]Entry),
	}
}
