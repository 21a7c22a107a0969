// Package registry aggregates MCP server catalogs.
//
// An Aggregator fans a search out to every configured catalog source
// concurrently, merges the per-source results by derived server identity
// (normalized owner/repo, falling back to alternate-id cross-references),
// and ranks merged records by provenance. A source failure never aborts the
// other sources; when every source comes back empty after at least one
// failure, a recent cached result for the same query is served instead.
package registry
