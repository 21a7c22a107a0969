package registry

import "context"

// Source is the contract every concrete catalog client implements. A source
// owns its own transport, retry behavior, and vendor JSON parsing; it must
// return an error rather than partial garbage on a malformed response, and
// must bound its own timeouts.
type Source interface {
	// Name identifies the source in logs and provenance decisions.
	Name() string
	// Search returns up to limit records matching the query.
	Search(ctx context.Context, query string, limit int) ([]Record, error)
	// Get returns the record for an exact server or package name, or nil
	// if the source does not know it.
	Get(ctx context.Context, name string) (*Record, error)
}
