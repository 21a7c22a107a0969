package cli

import (
	"net/http"
	"time"

	"github.com/anchor-mcp/anchor/internal/branding"
	"github.com/anchor-mcp/anchor/internal/config"
	"github.com/anchor-mcp/anchor/internal/healing"
	"github.com/anchor-mcp/anchor/internal/hostconfig"
	"github.com/anchor-mcp/anchor/internal/lockfile"
	"github.com/anchor-mcp/anchor/internal/probe"
	"github.com/anchor-mcp/anchor/internal/registry"
)

// newAggregator wires the configured catalogs: npm is the primary source
// of truth, PulseMCP contributes trust signals as a secondary.
func newAggregator() *registry.Aggregator {
	client := &http.Client{Timeout: 30 * time.Second}
	npm := registry.NewNPMSource(config.Get(config.KeyNPMRegistryURL), client)
	pulse := registry.NewPulseSource(config.Get(config.KeyPulseRegistryURL), client)
	cache := registry.NewSearchCache(config.GetDuration(config.KeySearchCacheTTL))
	return registry.NewAggregator(npm, cache, pulse)
}

// newLockStore opens the project lockfile in the working directory.
func newLockStore() (*lockfile.Store, error) {
	return lockfile.NewStore(branding.LockfileName(), branding.GeneratorTag(buildVersion))
}

// newHostFile opens the client configuration the lockfile reconciles against.
func newHostFile() *hostconfig.File {
	return hostconfig.NewFile(config.Get(config.KeyHostConfigPath))
}

func newProbe() probe.Probe {
	return probe.NewStdioProbe()
}

func newHealer() *healing.Orchestrator {
	return healing.New(newProbe(),
		config.GetInt(config.KeyHealMaxAttempts),
		config.GetDuration(config.KeyProbeTimeout))
}

func probeTimeout() time.Duration {
	return config.GetDuration(config.KeyProbeTimeout)
}
