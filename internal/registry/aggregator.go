package registry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// SourceFailure records one catalog source that failed during a fan-out.
// Failures are warnings, never errors: the aggregator degrades to fewer or
// cached results instead of surfacing them.
type SourceFailure struct {
	Source string
	Err    error
}

// SearchResult is the outcome of one aggregated search.
type SearchResult struct {
	Records []Record
	// FromCache is true when the records were served from the search cache
	// because every source came back empty and at least one failed.
	FromCache bool
	// CacheAge is the age of the served cache entry; zero unless FromCache.
	CacheAge time.Duration
	Failures []SourceFailure
}

// Aggregator fans searches out to a primary catalog and any number of
// secondary catalogs, merging results by derived server identity.
type Aggregator struct {
	primary     Source
	secondaries []Source
	cache       *SearchCache
}

// NewAggregator builds an aggregator. The first source is the primary: its
// installable package descriptors win on a merge and its records rank ahead
// of secondary-only ones.
func NewAggregator(primary Source, cache *SearchCache, secondaries ...Source) *Aggregator {
	return &Aggregator{primary: primary, secondaries: secondaries, cache: cache}
}

// Search queries every source concurrently, merges and ranks the results,
// and truncates to limit. A failing source contributes an empty list; only
// when all sources produce nothing and at least one failed does the cache
// get consulted. An empty result is never an error.
func (a *Aggregator) Search(ctx context.Context, query string, limit int) SearchResult {
	sources := append([]Source{a.primary}, a.secondaries...)

	perSource := make([][]Record, len(sources))
	perErr := make([]error, len(sources))

	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			perSource[i], perErr[i] = src.Search(ctx, query, limit)
		}(i, src)
	}
	wg.Wait()

	var result SearchResult
	anyFailed := false
	for i, err := range perErr {
		if err != nil {
			anyFailed = true
			perSource[i] = nil
			result.Failures = append(result.Failures, SourceFailure{Source: sources[i].Name(), Err: err})
		}
	}

	merged := mergeRecords(perSource[0], perSource[1:])
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}

	if len(merged) > 0 {
		a.cache.Put(query, merged)
		result.Records = merged
		return result
	}

	if anyFailed {
		if cached, age, ok := a.cache.Lookup(query); ok {
			if limit > 0 && len(cached) > limit {
				cached = cached[:limit]
			}
			result.Records = cached
			result.FromCache = true
			result.CacheAge = age
			return result
		}
	}

	// A true "no results": every source answered and none matched.
	return result
}

// Get resolves one server by name: the primary source first, secondaries
// only if it knows nothing. First hit wins, no merging.
func (a *Aggregator) Get(ctx context.Context, name string) (*Record, error) {
	rec, err := a.primary.Get(ctx, name)
	if err == nil && rec != nil {
		return rec, nil
	}

	for _, src := range a.secondaries {
		rec, srcErr := src.Get(ctx, name)
		if srcErr == nil && rec != nil {
			return rec, nil
		}
	}

	// Report the primary's error only when nobody could answer.
	if err == nil {
		err = fmt.Errorf("server %q not found in any catalog", name)
	}
	return nil, err
}

// mergeRecords merges secondary-source records into the primary list by
// DedupKey. A secondary record matching a primary one (first by repository
// identity, then by alternate-id cross-reference against the primary's name
// and package identifiers) is folded in: the primary keeps its package
// descriptors and imports the secondary's trust signals. The merge is
// commutative over source arrival order because sources are merged in
// configuration order after the join, never in completion order.
func mergeRecords(primary []Record, secondaries [][]Record) []Record {
	merged := make([]Record, 0, len(primary))
	byKey := make(map[string]int)
	byAlt := make(map[string]int)
	mergedAlready := make(map[int]bool)

	// The primary list can itself contain duplicates: npm monorepo packages
	// share one repository URL. The first record per key is kept and later
	// ones collapse into it, contributing only their alias names.
	for _, rec := range primary {
		rec.Provenance = ProvenancePrimary
		key, hasKey := DedupKey(rec)

		if hasKey {
			if idx, dup := byKey[key]; dup {
				for _, name := range primaryAliases(rec) {
					if _, taken := byAlt[name]; !taken {
						byAlt[name] = idx
					}
				}
				continue
			}
		}

		idx := len(merged)
		merged = append(merged, rec)
		if hasKey {
			byKey[key] = idx
		}
		for _, name := range primaryAliases(rec) {
			if _, taken := byAlt[name]; !taken {
				byAlt[name] = idx
			}
		}
	}

	seen := make(map[string]bool)
	for key := range byKey {
		seen[key] = true
	}

	for _, records := range secondaries {
		for _, rec := range records {
			idx, matched := matchPrimary(rec, byKey, byAlt)
			if matched && !mergedAlready[idx] {
				mergedAlready[idx] = true
				merged[idx].Provenance = ProvenanceBoth
				merged[idx].UsageCount = rec.UsageCount
				merged[idx].Verified = rec.Verified
				merged[idx].AlternateID = rec.AlternateID
				continue
			}
			if matched {
				// Another record for an already-merged server; drop it to
				// keep the uniqueness invariant.
				continue
			}

			rec.Provenance = ProvenanceSecondary
			if key, ok := DedupKey(rec); ok {
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			merged = append(merged, rec)
		}
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Provenance.rank() < merged[j].Provenance.rank()
	})

	return merged
}

// matchPrimary finds the primary record a secondary record refers to:
// repository identity first, alternate-id cross-reference second.
func matchPrimary(rec Record, byKey, byAlt map[string]int) (int, bool) {
	if key, ok := RepoKey(rec.RepositoryURL); ok {
		if idx, hit := byKey["repo:"+key]; hit {
			return idx, true
		}
	}
	if rec.AlternateID != "" {
		if idx, hit := byAlt[strings.ToLower(rec.AlternateID)]; hit {
			return idx, true
		}
	}
	return 0, false
}

// primaryAliases lists the names a secondary alternate id may refer to:
// the record's own name plus each installable package identifier.
func primaryAliases(rec Record) []string {
	aliases := []string{strings.ToLower(rec.Name)}
	for _, pkg := range rec.Packages {
		aliases = append(aliases, strings.ToLower(pkg.Identifier))
	}
	return aliases
}
