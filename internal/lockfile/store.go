package lockfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Store reads and mutates one lockfile path. Mutations are serialized by an
// in-process mutex keyed by the resolved absolute path and by an OS-level
// advisory lock on a sibling lock file, so concurrent callers within one
// process and across processes cannot lose updates.
type Store struct {
	path      string
	generator string
	now       func() time.Time
}

// In-process mutexes, one per resolved lockfile path.
var (
	pathLocksMu sync.Mutex
	pathLocks   = make(map[string]*sync.Mutex)
)

func lockForPath(path string) *sync.Mutex {
	pathLocksMu.Lock()
	defer pathLocksMu.Unlock()
	mu, ok := pathLocks[path]
	if !ok {
		mu = &sync.Mutex{}
		pathLocks[path] = mu
	}
	return mu
}

// NewStore creates a store for the lockfile at path. The generator tag is
// written into generated_by on every mutation.
func NewStore(path, generator string) (*Store, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving lockfile path: %w", err)
	}
	return &Store{path: abs, generator: generator, now: time.Now}, nil
}

// WithClock replaces the store's clock and returns the store.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Path returns the resolved absolute lockfile path.
func (s *Store) Path() string { return s.path }

// Load reads the current document. A missing or empty file is "no lockfile"
// and returns (nil, nil); a present but malformed file or an unsupported
// schema version is a hard error.
func (s *Store) Load() (*Document, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading lockfile: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if doc.LockfileVersion != Version {
		return nil, &UnsupportedVersionError{Found: doc.LockfileVersion}
	}

	if doc.Servers == nil {
		doc.Servers = make(map[string]Entry)
	}
	for name, entry := range doc.Servers {
		entry.Name = name
		// Entries written before the registry_type field default to npm.
		if entry.RegistryType == "" {
			entry.RegistryType = RegistryNPM
		}
		if entry.Tools == nil {
			entry.Tools = []string{}
		}
		doc.Servers[name] = entry
	}

	return &doc, nil
}

// Upsert adds or replaces the entry for entry.Name. An existing entry keeps
// its original installed_at timestamp; every other field is replaced and the
// tool-list hash recomputed.
func (s *Store) Upsert(entry Entry) error {
	if entry.Name == "" {
		return fmt.Errorf("lockfile entry has no server name")
	}

	return s.mutate(func(doc *Document) {
		normalizeEntry(&entry)

		if prev, ok := doc.Servers[entry.Name]; ok && !prev.InstalledAt.IsZero() {
			entry.InstalledAt = prev.InstalledAt
		} else if entry.InstalledAt.IsZero() {
			entry.InstalledAt = s.now().UTC().Truncate(time.Second)
		}

		doc.Servers[entry.Name] = entry
	})
}

// Remove deletes the entry for name. A name absent from the lockfile is a
// no-op reported through found=false, not an error.
func (s *Store) Remove(name string) (found bool, err error) {
	err = s.mutate(func(doc *Document) {
		if _, ok := doc.Servers[name]; ok {
			found = true
			delete(doc.Servers, name)
		}
	})
	return found, err
}

// SetVerified updates the verification status of an existing entry. A name
// absent from the lockfile is a silent no-op.
func (s *Store) SetVerified(name string, healthy bool, at time.Time) error {
	return s.mutate(func(doc *Document) {
		entry, ok := doc.Servers[name]
		if !ok {
			return
		}
		verifiedAt := at.UTC().Truncate(time.Second)
		entry.VerifiedAt = &verifiedAt
		entry.VerifiedHealthy = healthy
		doc.Servers[name] = entry
	})
}

// mutate performs one locked read-modify-write cycle: take both locks,
// re-read the current document, apply the change, and atomically replace
// the file. Both locks are released on every exit path.
func (s *Store) mutate(apply func(*Document)) error {
	mu := lockForPath(s.path)
	mu.Lock()
	defer mu.Unlock()

	release, err := acquireFileLock(s.path + ".flock")
	if err != nil {
		return fmt.Errorf("locking lockfile: %w", err)
	}
	defer release()

	doc, err := s.Load()
	if err != nil {
		return err
	}
	if doc == nil {
		doc = NewDocument(s.generator)
	}

	apply(doc)

	doc.LockfileVersion = Version
	doc.GeneratedBy = s.generator
	doc.GeneratedAt = s.now().UTC().Truncate(time.Second)

	return s.writeAtomic(doc)
}

// writeAtomic serializes the document deterministically and renames a
// same-directory temp file over the target path.
func (s *Store) writeAtomic(doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp lockfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp lockfile: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp lockfile: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("setting lockfile permissions: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing lockfile: %w", err)
	}
	return nil
}

// Marshal renders the document in its canonical form: sorted keys, 2-space
// indentation, trailing newline.
func Marshal(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("serializing lockfile: %w", err)
	}
	return append(data, '\n'), nil
}

// normalizeEntry sorts the list-valued fields and recomputes the tool hash
// so serialization is deterministic regardless of caller ordering.
func normalizeEntry(entry *Entry) {
	if entry.RegistryType == "" {
		entry.RegistryType = RegistryNPM
	}
	if entry.Tools == nil {
		entry.Tools = []string{}
	}
	sort.Strings(entry.Tools)
	if entry.Config.Args == nil {
		entry.Config.Args = []string{}
	}
	if entry.Config.EnvKeys == nil {
		entry.Config.EnvKeys = []string{}
	}
	sort.Strings(entry.Config.EnvKeys)
	entry.ToolsHash = ToolsHash(entry.Tools)
	entry.InstalledAt = entry.InstalledAt.UTC().Truncate(time.Second)
	if entry.VerifiedAt != nil {
		v := entry.VerifiedAt.UTC().Truncate(time.Second)
		entry.VerifiedAt = &v
	}
}
