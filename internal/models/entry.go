// Package models defines the journal entry types shared across the exporter.
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// NoteType marks files produced by this exporter.
const NoteType = "dayone-import"

// Frontmatter keys owned by the exporter.
const (
	KeyType       = "type"
	KeyJournal    = "journal"
	KeyID         = "dayoneId"
	KeyCreatedAt  = "createdAt"
	KeyModifiedAt = "lastModifiedAt"
	KeyLink       = "link"
)

// ReservedKeys lists the fixed frontmatter schema in render order.
var ReservedKeys = []string{KeyType, KeyJournal, KeyID, KeyCreatedAt, KeyModifiedAt, KeyLink}

// IsReserved reports whether key belongs to the fixed schema.
func IsReserved(key string) bool {
	for _, k := range ReservedKeys {
		if k == key {
			return true
		}
	}
	return false
}

// EntryMetadata is the frontmatter of an exported entry.
type EntryMetadata struct {
	NoteType   string
	Journal    string
	ID         string
	CreatedAt  time.Time
	ModifiedAt time.Time
	Link       string
	Extra      Extra
}

// NewEntryMetadata builds metadata for an entry read from the source.
// Timestamps are truncated to whole seconds so they survive an RFC 3339
// round trip unchanged.
func NewEntryMetadata(journal, id string, created, modified time.Time) EntryMetadata {
	return EntryMetadata{
		NoteType:   NoteType,
		Journal:    journal,
		ID:         id,
		CreatedAt:  created.Truncate(time.Second),
		ModifiedAt: modified.Truncate(time.Second),
		Link:       LinkFor(id),
	}
}

// LinkFor returns the Day One deep link for id.
func LinkFor(id string) string {
	return "dayone://view?entryId=" + id
}

// Managed reports whether the discriminator marks this as an exported entry.
func (m EntryMetadata) Managed() bool {
	return m.NoteType == NoteType
}

// Validate checks the fields needed to render the metadata.
func (m EntryMetadata) Validate() error {
	var errs []error
	if !m.Managed() {
		errs = append(errs, fmt.Errorf("type is %q, want %q", m.NoteType, NoteType))
	}
	if strings.TrimSpace(m.ID) == "" {
		errs = append(errs, errors.New("id is empty"))
	}
	if m.CreatedAt.IsZero() {
		errs = append(errs, errors.New("createdAt is zero"))
	}
	if m.ModifiedAt.IsZero() {
		errs = append(errs, errors.New("lastModifiedAt is zero"))
	}
	return errors.Join(errs...)
}

// SystemEqual compares the exporter-owned fields, ignoring Extra.
// Incoming entries never carry Extra, so including it would make every
// re-run look like a metadata change.
func (m EntryMetadata) SystemEqual(o EntryMetadata) bool {
	return m.NoteType == o.NoteType &&
		m.Journal == o.Journal &&
		m.ID == o.ID &&
		m.Link == o.Link &&
		m.CreatedAt.Equal(o.CreatedAt) &&
		m.ModifiedAt.Equal(o.ModifiedAt)
}

// Entry is one journal entry: metadata plus Markdown body.
type Entry struct {
	Metadata EntryMetadata
	Body     string
}

// Title derives a human-readable title from the first non-blank line of
// the body, falling back to the creation time.
func (e Entry) Title() string {
	line := firstLine(e.Body)

	if strings.HasPrefix(line, "#") {
		if t := strings.TrimSpace(strings.TrimLeft(line, "#")); t != "" {
			return t
		}
	} else if line != "" && isPlainText(line) {
		return line
	}

	return e.Metadata.CreatedAt.Format("15-04-05")
}

// Filename returns the date-prefixed, sanitized base name (no extension).
func (e Entry) Filename() string {
	title := sanitize(e.Title())
	if title == "" {
		title = e.Metadata.CreatedAt.Format("15-04-05")
	}
	return norm.NFC.String(e.Metadata.CreatedAt.Format("2006-01-02") + " " + title)
}

func firstLine(body string) string {
	for _, line := range strings.Split(strings.TrimSpace(body), "\n") {
		if l := strings.TrimSpace(line); l != "" {
			return l
		}
	}
	return ""
}

func isPlainText(s string) bool {
	for _, r := range s {
		if !unicode.IsSpace(r) && !unicode.IsLetter(r) && !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}

var filenameReplacer = strings.NewReplacer("/", " ", "\\", " ", ":", " ")

func sanitize(title string) string {
	return strings.TrimSpace(filenameReplacer.Replace(title))
}

// DirName turns a journal name into a single visible path segment.
func DirName(journal string) string {
	return norm.NFC.String(strings.TrimLeft(sanitize(journal), ". "))
}
