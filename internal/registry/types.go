package registry

// Provenance records which catalog(s) contributed to a merged record.
type Provenance string

const (
	// ProvenanceBoth marks a record matched across the primary and a
	// secondary catalog.
	ProvenanceBoth Provenance = "both"
	// ProvenancePrimary marks a record found only in the primary catalog.
	ProvenancePrimary Provenance = "primary-only"
	// ProvenanceSecondary marks a record found only in a secondary catalog.
	ProvenanceSecondary Provenance = "secondary-only"
)

// rank orders provenance values for result sorting: "both" first, then
// "primary-only", then "secondary-only".
func (p Provenance) rank() int {
	switch p {
	case ProvenanceBoth:
		return 0
	case ProvenancePrimary:
		return 1
	default:
		return 2
	}
}

// Package describes one installable artifact attached to a catalog record.
type Package struct {
	Registry   string // "npm", "pypi", "docker"
	Identifier string // package name or image
	Version    string // may be empty or non-semver
}

// Record is one MCP server as known to one catalog (or merged across
// catalogs). Records are built per search and never persisted.
type Record struct {
	Name          string
	Description   string
	Version       string
	RepositoryURL string
	Packages      []Package
	Provenance    Provenance

	// Trust signals imported from secondary catalogs.
	UsageCount  int
	Verified    bool
	AlternateID string
}
