package updater

import (
	"fmt"
	"io"
	"time"

	"github.com/anchor-mcp/anchor/internal/branding"
)

// CheckAndPrintBanner prints an upgrade banner when the cached check says
// a newer version exists. It never blocks the command: a stale cache is
// refreshed by a background goroutine for the next invocation.
func (u *Updater) CheckAndPrintBanner(w io.Writer, configDir string) {
	cache, err := LoadCache(configDir)
	if err != nil {
		return
	}

	if cache != nil && cache.UpdateAvailable {
		PrintUpdateBanner(w, cache.CurrentVersion, cache.LatestVersion)
	}

	if IsCacheStale(cache, DefaultCacheMaxAge) {
		go u.refreshCache(configDir)
	}
}

// PrintUpdateBanner writes the upgrade notification to w.
func PrintUpdateBanner(w io.Writer, current, latest string) {
	fmt.Fprintf(w, "\nUpdate available: %s -> %s\n", current, latest)
	fmt.Fprintf(w, "    https://github.com/%s/releases/latest\n\n", branding.GitHubRepo())
}

// refreshCache queries the release API and rewrites the cache file. It
// runs in a background goroutine and never fails loudly.
func (u *Updater) refreshCache(configDir string) {
	release, err := u.LatestRelease()
	if err != nil {
		return
	}
	available, err := IsUpdateAvailable(u.currentVersion, release.Version)
	if err != nil {
		return
	}
	_ = SaveCache(configDir, &VersionCache{
		LatestVersion:   release.Version,
		CurrentVersion:  u.currentVersion,
		CheckedAt:       time.Now(),
		UpdateAvailable: available,
	})
}
