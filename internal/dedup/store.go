// Package dedup tracks which listings have already been notified. The
// persisted set only grows; there is no eviction. For long-running
// deployments the state file keeps every identity ever notified.
package dedup

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/observability"
	"github.com/Yiming0576/Dadi360-Rental-Job-Monitor/internal/scraper"
)

// Set holds listing identities.
type Set map[string]struct{}

func (s Set) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// IdentityOf derives the dedup key. Two listings with the same title and
// link are the same posting; a changed title or link counts as a new
// listing, edited reposts included.
func IdentityOf(l *scraper.Listing) string {
	return l.Title + "-" + l.Link
}

// FilterNew returns the candidates whose identity is in neither known nor
// an earlier candidate, in encounter order, together with the union of
// known and the kept identities. known is not mutated.
func FilterNew(candidates []*scraper.Listing, known Set) ([]*scraper.Listing, Set) {
	updated := make(Set, len(known)+len(candidates))
	for id := range known {
		updated[id] = struct{}{}
	}

	var newListings []*scraper.Listing
	for _, candidate := range candidates {
		id := IdentityOf(candidate)
		if updated.Contains(id) {
			continue
		}
		updated[id] = struct{}{}
		newListings = append(newListings, candidate)
	}

	return newListings, updated
}

// FileStore persists a Set as a pretty-printed JSON string array, one
// file per listing domain. A store is owned by exactly one pipeline; no
// locking.
type FileStore struct {
	path   string
	logger *observability.Logger
}

func NewFileStore(path string, logger *observability.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Load reads the persisted identities. A missing or corrupt file yields
// an empty set; corruption must not halt operation (the cost is a
// possible one-time re-notification).
func (s *FileStore) Load() Set {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error("Failed to read state file, starting with empty set",
				"path", s.path,
				"error", err.Error(),
			)
		}
		return make(Set)
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		s.logger.Error("Failed to decode state file, starting with empty set",
			"path", s.path,
			"error", err.Error(),
		)
		return make(Set)
	}

	set := make(Set, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Save rewrites the state file in full. On failure the prior on-disk
// state stays in place.
func (s *FileStore) Save(ids Set) error {
	list := make([]string, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	sort.Strings(list)

	data, err := json.MarshalIndent(list, "", "    ")
	if err != nil {
		return err
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	return os.WriteFile(s.path, data, 0o644)
}
