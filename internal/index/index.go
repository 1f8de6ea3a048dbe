// Package index builds the in-memory lookup of entries already exported to
// the vault. An Index is built once per run and is read-only afterwards.
package index

import (
	"sort"

	"github.com/starford/dayone-export/internal/models"
)

// Record is one exported file that parsed as a managed entry.
type Record struct {
	Path     string
	Entry    models.Entry
	Checksum string
}

// Index maps entry ids to their exported files.
type Index struct {
	byID map[string]Record
}

// New returns an index holding records. When two records share an id the
// later one wins, matching the walk-order rule used by Build.
func New(records ...Record) *Index {
	idx := &Index{byID: make(map[string]Record, len(records))}
	for _, r := range records {
		idx.byID[r.Entry.Metadata.ID] = r
	}
	return idx
}

// Lookup returns the record for id.
func (i *Index) Lookup(id string) (Record, bool) {
	r, ok := i.byID[id]
	return r, ok
}

// Len returns the number of indexed entries.
func (i *Index) Len() int { return len(i.byID) }

// Records returns all records ordered by path.
func (i *Index) Records() []Record {
	out := make([]Record, 0, len(i.byID))
	for _, r := range i.byID {
		out = append(out, r)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Path < out[b].Path })
	return out
}

// CountByJournal returns the number of indexed entries per journal.
func (i *Index) CountByJournal() map[string]int {
	out := make(map[string]int)
	for _, r := range i.byID {
		out[r.Entry.Metadata.Journal]++
	}
	return out
}
