package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// fakeSource is a scriptable Source for aggregator tests.
type fakeSource struct {
	name    string
	records []Record
	err     error
	delay   time.Duration
	byName  map[string]*Record

	searchCalls int
	getCalls    int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Search(ctx context.Context, query string, limit int) ([]Record, error) {
	f.searchCalls++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeSource) Get(ctx context.Context, name string) (*Record, error) {
	f.getCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.byName[name], nil
}

func newTestAggregator(primary, secondary *fakeSource, ttl time.Duration) (*Aggregator, *SearchCache) {
	cache := NewSearchCache(ttl)
	return NewAggregator(primary, cache, secondary), cache
}

func TestSearchMergesByRepositoryURL(t *testing.T) {
	primary := &fakeSource{
		name: "npm",
		records: []Record{
			{
				Name:          "@modelcontextprotocol/server-postgres",
				Version:       "0.6.2",
				RepositoryURL: "https://github.com/modelcontextprotocol/servers.git",
				Packages:      []Package{{Registry: "npm", Identifier: "@modelcontextprotocol/server-postgres", Version: "0.6.2"}},
			},
		},
	}
	secondary := &fakeSource{
		name: "pulse",
		records: []Record{
			{
				Name:          "postgres",
				RepositoryURL: "git+https://github.com/ModelContextProtocol/Servers",
				UsageCount:    4200,
				Verified:      true,
				AlternateID:   "pulse/postgres",
			},
		},
	}

	agg, _ := newTestAggregator(primary, secondary, time.Minute)
	result := agg.Search(context.Background(), "postgres", 10)

	if len(result.Records) != 1 {
		t.Fatalf("expected 1 merged record, got %d", len(result.Records))
	}

	got := result.Records[0]
	if got.Provenance != ProvenanceBoth {
		t.Errorf("provenance = %q, want %q", got.Provenance, ProvenanceBoth)
	}
	if got.UsageCount != 4200 || !got.Verified || got.AlternateID != "pulse/postgres" {
		t.Errorf("trust signals not imported: %+v", got)
	}
	// Primary keeps its installable package descriptors.
	wantPkgs := []Package{{Registry: "npm", Identifier: "@modelcontextprotocol/server-postgres", Version: "0.6.2"}}
	if diff := cmp.Diff(wantPkgs, got.Packages); diff != "" {
		t.Errorf("packages mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchMergesByAlternateID(t *testing.T) {
	primary := &fakeSource{
		name: "npm",
		records: []Record{
			{
				Name:     "mcp-server-git",
				Packages: []Package{{Registry: "npm", Identifier: "mcp-server-git"}},
			},
		},
	}
	secondary := &fakeSource{
		name: "pulse",
		records: []Record{
			{Name: "git", AlternateID: "mcp-server-git", Verified: true},
		},
	}

	agg, _ := newTestAggregator(primary, secondary, time.Minute)
	result := agg.Search(context.Background(), "git", 10)

	if len(result.Records) != 1 {
		t.Fatalf("expected 1 merged record, got %d", len(result.Records))
	}
	if result.Records[0].Provenance != ProvenanceBoth {
		t.Errorf("provenance = %q, want both", result.Records[0].Provenance)
	}
}

func TestSearchProvenanceOrderIsDeterministic(t *testing.T) {
	shared := Record{
		Name:          "shared",
		RepositoryURL: "https://github.com/acme/shared",
	}
	primaryOnly := Record{
		Name:          "solo-primary",
		RepositoryURL: "https://github.com/acme/solo-primary",
	}
	secondaryOnly := Record{
		Name:          "solo-secondary",
		RepositoryURL: "https://github.com/acme/solo-secondary",
	}

	// Delay each source in turn so both completion orders are exercised.
	for _, slowPrimary := range []bool{true, false} {
		primary := &fakeSource{name: "npm", records: []Record{primaryOnly, shared}}
		secondary := &fakeSource{name: "pulse", records: []Record{secondaryOnly, shared}}
		if slowPrimary {
			primary.delay = 20 * time.Millisecond
		} else {
			secondary.delay = 20 * time.Millisecond
		}

		agg, _ := newTestAggregator(primary, secondary, time.Minute)
		result := agg.Search(context.Background(), "q", 10)

		var got []Provenance
		for _, rec := range result.Records {
			got = append(got, rec.Provenance)
		}
		want := []Provenance{ProvenanceBoth, ProvenancePrimary, ProvenanceSecondary}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("slowPrimary=%v: order mismatch (-want +got):\n%s", slowPrimary, diff)
		}
	}
}

func TestSearchNoTwoRecordsShareDedupKey(t *testing.T) {
	primary := &fakeSource{
		name: "npm",
		records: []Record{
			{Name: "a", RepositoryURL: "https://github.com/acme/a"},
			{Name: "b", RepositoryURL: "https://github.com/acme/b"},
		},
	}
	secondary := &fakeSource{
		name: "pulse",
		records: []Record{
			{Name: "a2", RepositoryURL: "https://github.com/Acme/A.git"},
			{Name: "a3", RepositoryURL: "git+https://github.com/acme/a"},
			{Name: "c", RepositoryURL: "https://github.com/acme/c"},
			{Name: "c-dup", RepositoryURL: "https://github.com/acme/c"},
		},
	}

	agg, _ := newTestAggregator(primary, secondary, time.Minute)
	result := agg.Search(context.Background(), "q", 10)

	seen := make(map[string]string)
	for _, rec := range result.Records {
		key, ok := DedupKey(rec)
		if !ok {
			continue
		}
		if prev, dup := seen[key]; dup {
			t.Errorf("records %q and %q share dedup key %q", prev, rec.Name, key)
		}
		seen[key] = rec.Name
	}
}

func TestSearchSourceFailureIsNonFatal(t *testing.T) {
	primary := &fakeSource{
		name:    "npm",
		records: []Record{{Name: "a", RepositoryURL: "https://github.com/acme/a"}},
	}
	secondary := &fakeSource{name: "pulse", err: errors.New("boom")}

	agg, _ := newTestAggregator(primary, secondary, time.Minute)
	result := agg.Search(context.Background(), "q", 10)

	if len(result.Records) != 1 {
		t.Fatalf("expected surviving source's record, got %d records", len(result.Records))
	}
	if len(result.Failures) != 1 || result.Failures[0].Source != "pulse" {
		t.Errorf("expected one pulse failure, got %+v", result.Failures)
	}
	if result.FromCache {
		t.Error("non-empty live result must not be flagged as cached")
	}
}

func TestSearchCacheFallback(t *testing.T) {
	records := []Record{{Name: "a", RepositoryURL: "https://github.com/acme/a"}}

	now := time.Unix(1700000000, 0)
	clock := func() time.Time { return now }

	primary := &fakeSource{name: "npm", records: records}
	secondary := &fakeSource{name: "pulse"}
	cache := NewSearchCache(time.Minute).WithClock(clock)
	agg := NewAggregator(primary, cache, secondary)

	// Seed the cache with a successful search.
	if res := agg.Search(context.Background(), "PG  Server", 10); len(res.Records) != 1 {
		t.Fatalf("seed search failed: %+v", res)
	}

	// Both sources now fail; a normalized-equal query within TTL is served
	// from cache and flagged.
	primary.err = errors.New("down")
	secondary.err = errors.New("down")
	now = now.Add(30 * time.Second)

	res := agg.Search(context.Background(), "pg server", 10)
	if !res.FromCache {
		t.Fatal("expected cached fallback")
	}
	if res.CacheAge != 30*time.Second {
		t.Errorf("cache age = %v, want 30s", res.CacheAge)
	}
	if len(res.Records) != 1 || res.Records[0].Name != "a" {
		t.Errorf("unexpected cached records: %+v", res.Records)
	}

	// Past the TTL the entry is pruned and the search is empty.
	now = now.Add(2 * time.Minute)
	res = agg.Search(context.Background(), "pg server", 10)
	if res.FromCache || len(res.Records) != 0 {
		t.Errorf("expected empty result past TTL, got %+v", res)
	}
}

func TestSearchEmptyWithoutFailureSkipsCache(t *testing.T) {
	now := time.Unix(1700000000, 0)
	primary := &fakeSource{name: "npm", records: []Record{{Name: "a", RepositoryURL: "https://github.com/acme/a"}}}
	secondary := &fakeSource{name: "pulse"}
	cache := NewSearchCache(time.Minute).WithClock(func() time.Time { return now })
	agg := NewAggregator(primary, cache, secondary)

	agg.Search(context.Background(), "q", 10) // seed

	// Sources answer successfully with nothing: a true "no results".
	primary.records = nil
	res := agg.Search(context.Background(), "q", 10)
	if res.FromCache {
		t.Error("stale cache must not be served when no source failed")
	}
	if len(res.Records) != 0 {
		t.Errorf("expected empty result, got %+v", res.Records)
	}
}

func TestSearchTruncatesToLimit(t *testing.T) {
	var records []Record
	for _, name := range []string{"a", "b", "c", "d"} {
		records = append(records, Record{Name: name, RepositoryURL: "https://github.com/acme/" + name})
	}
	primary := &fakeSource{name: "npm", records: records}
	secondary := &fakeSource{name: "pulse"}

	agg, _ := newTestAggregator(primary, secondary, time.Minute)
	res := agg.Search(context.Background(), "q", 2)
	if len(res.Records) != 2 {
		t.Errorf("expected 2 records, got %d", len(res.Records))
	}
}

func TestGetPrefersPrimary(t *testing.T) {
	rec := Record{Name: "pg"}
	primary := &fakeSource{name: "npm", byName: map[string]*Record{"pg": &rec}}
	secondary := &fakeSource{name: "pulse", byName: map[string]*Record{"pg": {Name: "pg-secondary"}}}

	agg, _ := newTestAggregator(primary, secondary, time.Minute)

	got, err := agg.Get(context.Background(), "pg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "pg" {
		t.Errorf("got %q, want primary's record", got.Name)
	}
	if secondary.getCalls != 0 {
		t.Error("secondary must not be queried when the primary answers")
	}
}

func TestGetFallsBackToSecondary(t *testing.T) {
	primary := &fakeSource{name: "npm", byName: map[string]*Record{}}
	secondary := &fakeSource{name: "pulse", byName: map[string]*Record{"pg": {Name: "pg"}}}

	agg, _ := newTestAggregator(primary, secondary, time.Minute)

	got, err := agg.Get(context.Background(), "pg")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || got.Name != "pg" {
		t.Errorf("expected secondary's record, got %+v", got)
	}
}

func TestSearchCollapsesMonorepoPackagesInPrimary(t *testing.T) {
	// npm monorepo packages share one repository; the catalog returns them
	// as distinct records that must fold into one.
	primary := &fakeSource{
		name: "npm",
		records: []Record{
			{
				Name:          "@modelcontextprotocol/server-postgres",
				RepositoryURL: "https://github.com/modelcontextprotocol/servers",
				Packages:      []Package{{Registry: "npm", Identifier: "@modelcontextprotocol/server-postgres"}},
			},
			{
				Name:          "@modelcontextprotocol/server-git",
				RepositoryURL: "https://github.com/modelcontextprotocol/servers.git",
				Packages:      []Package{{Registry: "npm", Identifier: "@modelcontextprotocol/server-git"}},
			},
		},
	}
	secondary := &fakeSource{
		name: "pulse",
		records: []Record{
			{
				Name:          "servers",
				RepositoryURL: "git+https://github.com/ModelContextProtocol/Servers",
				UsageCount:    4200,
				Verified:      true,
			},
		},
	}

	agg, _ := newTestAggregator(primary, secondary, time.Minute)
	result := agg.Search(context.Background(), "servers", 10)

	if len(result.Records) != 1 {
		t.Fatalf("expected monorepo packages collapsed into 1 record, got %d: %+v",
			len(result.Records), result.Records)
	}

	got := result.Records[0]
	if got.Name != "@modelcontextprotocol/server-postgres" {
		t.Errorf("first record per key must win, got %q", got.Name)
	}
	if got.Provenance != ProvenanceBoth {
		t.Errorf("provenance = %s, want both", got.Provenance)
	}
	if got.UsageCount != 4200 || !got.Verified {
		t.Errorf("trust signals not imported: %+v", got)
	}
}

func TestSearchCollapsedDuplicateStillMatchesByAlternateID(t *testing.T) {
	// A secondary alternate id naming the dropped duplicate's package must
	// still land on the record kept for that repository.
	primary := &fakeSource{
		name: "npm",
		records: []Record{
			{
				Name:          "@modelcontextprotocol/server-postgres",
				RepositoryURL: "https://github.com/modelcontextprotocol/servers",
				Packages:      []Package{{Registry: "npm", Identifier: "@modelcontextprotocol/server-postgres"}},
			},
			{
				Name:          "@modelcontextprotocol/server-git",
				RepositoryURL: "https://github.com/modelcontextprotocol/servers",
				Packages:      []Package{{Registry: "npm", Identifier: "@modelcontextprotocol/server-git"}},
			},
		},
	}
	secondary := &fakeSource{
		name: "pulse",
		records: []Record{
			{Name: "git", AlternateID: "@modelcontextprotocol/server-git", Verified: true},
		},
	}

	agg, _ := newTestAggregator(primary, secondary, time.Minute)
	result := agg.Search(context.Background(), "git", 10)

	if len(result.Records) != 1 {
		t.Fatalf("expected 1 record, got %d: %+v", len(result.Records), result.Records)
	}
	if result.Records[0].Provenance != ProvenanceBoth || !result.Records[0].Verified {
		t.Errorf("secondary did not merge via the collapsed alias: %+v", result.Records[0])
	}
}
