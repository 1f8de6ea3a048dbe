package source

import (
	"fmt"
	"strings"
	"time"

	"github.com/starford/dayone-export/internal/models"
)

// Filter selects which entries are exported.
type Filter struct {
	Journals []string // empty means all journals
	After    *Bound
	Before   *Bound
}

// Bound is a creation-time limit parsed from the command line.
type Bound struct {
	At       time.Time
	DateOnly bool
}

// ParseBound accepts YYYY-MM-DD or an RFC 3339 timestamp.
func ParseBound(s string) (*Bound, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return &Bound{At: t}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return &Bound{At: t, DateOnly: true}, nil
	}
	return nil, fmt.Errorf("source: invalid date %q, want YYYY-MM-DD or RFC 3339", s)
}

// Match reports whether e passes the filter. A date-only After excludes
// its whole day; a date-only Before includes its whole day. Timestamps are
// compared as exact instants.
func (f Filter) Match(e models.Entry) bool {
	if len(f.Journals) > 0 && !contains(f.Journals, e.Metadata.Journal) {
		return false
	}
	created := e.Metadata.CreatedAt
	if f.After != nil {
		after := f.After.At
		if f.After.DateOnly {
			if created.Before(after.AddDate(0, 0, 1)) {
				return false
			}
		} else if !created.After(after) {
			return false
		}
	}
	if f.Before != nil {
		before := f.Before.At
		if f.Before.DateOnly {
			if !created.Before(before.AddDate(0, 0, 1)) {
				return false
			}
		} else if created.After(before) {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
