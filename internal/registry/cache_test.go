package registry

import (
	"testing"
	"time"
)

func TestSearchCacheNeverStoresEmptyResults(t *testing.T) {
	cache := NewSearchCache(time.Minute)
	cache.Put("q", nil)
	if _, _, ok := cache.Lookup("q"); ok {
		t.Error("empty result must not be cached")
	}
}

func TestSearchCacheNormalizesQueries(t *testing.T) {
	cache := NewSearchCache(time.Minute)
	cache.Put("  Postgres   Server ", []Record{{Name: "pg"}})

	records, age, ok := cache.Lookup("postgres server")
	if !ok {
		t.Fatal("expected hit for normalized-equal query")
	}
	if age < 0 {
		t.Errorf("age must be non-negative, got %v", age)
	}
	if len(records) != 1 || records[0].Name != "pg" {
		t.Errorf("unexpected records: %+v", records)
	}
}

func TestSearchCacheExpiresAndPrunes(t *testing.T) {
	now := time.Unix(1700000000, 0)
	cache := NewSearchCache(time.Minute).WithClock(func() time.Time { return now })
	cache.Put("q", []Record{{Name: "pg"}})

	now = now.Add(61 * time.Second)
	if _, _, ok := cache.Lookup("q"); ok {
		t.Fatal("expected expiry past TTL")
	}

	// The expired entry was pruned, not just hidden.
	now = now.Add(-61 * time.Second)
	if _, _, ok := cache.Lookup("q"); ok {
		t.Error("pruned entry must not reappear")
	}
}
