// Package installer turns a catalog record into a runnable server
// configuration. It does not download anything itself: npm packages run
// through npx, PyPI packages through uvx, and Docker images through
// docker run, so the package manager of the ecosystem does the fetching
// on first launch.
package installer

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/anchor-mcp/anchor/internal/probe"
	"github.com/anchor-mcp/anchor/internal/registry"
)

// registryPreference orders package ecosystems when a record carries
// more than one installable artifact.
var registryPreference = []string{"npm", "pypi", "docker"}

// Plan is a resolved installation: the package that was chosen and the
// command line that launches it over stdio.
type Plan struct {
	Package registry.Package
	Config  probe.ServerConfig
}

// Resolve picks the preferred installable package from a catalog record
// and builds its launch configuration.
func Resolve(rec registry.Record) (Plan, error) {
	pkg, err := pickPackage(rec)
	if err != nil {
		return Plan{}, err
	}
	cfg, err := configFor(pkg)
	if err != nil {
		return Plan{}, err
	}
	return Plan{Package: pkg, Config: cfg}, nil
}

func pickPackage(rec registry.Record) (registry.Package, error) {
	if len(rec.Packages) == 0 {
		return registry.Package{}, fmt.Errorf("record %q has no installable packages", rec.Name)
	}
	for _, wanted := range registryPreference {
		for _, pkg := range rec.Packages {
			if pkg.Registry == wanted && pkg.Identifier != "" {
				return pkg, nil
			}
		}
	}
	return registry.Package{}, fmt.Errorf("record %q has no package from a supported registry (npm, pypi, docker)", rec.Name)
}

// configFor maps one package descriptor to a stdio launch command.
func configFor(pkg registry.Package) (probe.ServerConfig, error) {
	version := pinnableVersion(pkg.Version)

	switch pkg.Registry {
	case "npm":
		spec := pkg.Identifier
		if version != "" {
			spec += "@" + version
		}
		return probe.ServerConfig{Command: "npx", Args: []string{"-y", spec}}, nil
	case "pypi":
		spec := pkg.Identifier
		if version != "" {
			spec += "==" + version
		}
		return probe.ServerConfig{Command: "uvx", Args: []string{spec}}, nil
	case "docker":
		image := pkg.Identifier
		if version != "" {
			image += ":" + version
		}
		return probe.ServerConfig{Command: "docker", Args: []string{"run", "--rm", "-i", image}}, nil
	default:
		return probe.ServerConfig{}, fmt.Errorf("unsupported package registry %q", pkg.Registry)
	}
}

// pinnableVersion returns the version if it parses as semver, otherwise
// empty. Catalogs carry values like "latest" or dates that would break a
// pinned install spec; those fall back to the ecosystem's default.
func pinnableVersion(version string) string {
	if version == "" {
		return ""
	}
	if _, err := semver.NewVersion(version); err != nil {
		return ""
	}
	return version
}
