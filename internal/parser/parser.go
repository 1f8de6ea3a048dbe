// Package parser renders entries as Markdown files with YAML frontmatter and
// parses them back.
package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/dayone-export/internal/apperr"
	"github.com/starford/dayone-export/internal/models"
)

const delim = "---"

var (
	errNoFrontmatter   = errors.New("missing opening delimiter")
	errUnterminated    = errors.New("missing closing delimiter")
	errNotMapping      = errors.New("frontmatter is not a mapping")
	errDuplicateKey    = errors.New("duplicate frontmatter key")
	errMissingRequired = errors.New("missing required key")
	errAliasExpansion  = errors.New("alias expansion too large")
)

// maxResolvedNodes bounds alias expansion per value.
const maxResolvedNodes = 10000

// Render returns the file contents for e: a delimited YAML header, a blank
// line, the body and a trailing newline.
func Render(e models.Entry) ([]byte, error) {
	if err := e.Metadata.Validate(); err != nil {
		return nil, fmt.Errorf("parser: render: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(metadataNode(e.Metadata)); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("parser: encode frontmatter: %w", err)
	}

	buf.WriteString(delim + "\n\n")
	buf.WriteString(e.Body)
	buf.WriteString("\n")
	return buf.Bytes(), nil
}

// Parse reads a file produced by Render. Any file that is not a managed
// entry yields an error wrapping apperr.ErrNotManaged.
func Parse(data []byte) (*models.Entry, error) {
	header, body, err := splitFrontmatter(data)
	if err != nil {
		return nil, notManaged(err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(header, &doc); err != nil {
		return nil, notManaged(err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, notManaged(errNotMapping)
	}

	meta, err := decodeMetadata(doc.Content[0])
	if err != nil {
		return nil, notManaged(err)
	}
	if err := meta.Validate(); err != nil {
		return nil, notManaged(err)
	}

	return &models.Entry{Metadata: meta, Body: body}, nil
}

func notManaged(err error) error {
	return fmt.Errorf("parser: %w: %w", apperr.ErrNotManaged, err)
}

// splitFrontmatter requires the first line to be the delimiter and returns
// the header block and the body. One blank separator line after the closing
// delimiter and one trailing newline are dropped.
func splitFrontmatter(data []byte) ([]byte, string, error) {
	first, rest, found := bytes.Cut(data, []byte("\n"))
	if !found || !isDelim(first) {
		return nil, "", errNoFrontmatter
	}

	var header []byte
	for {
		line, next, more := bytes.Cut(rest, []byte("\n"))
		if isDelim(line) {
			if !more {
				next = nil
			}
			return header, trimBody(string(next)), nil
		}
		if !more {
			return nil, "", errUnterminated
		}
		header = append(header, line...)
		header = append(header, '\n')
		rest = next
	}
}

func isDelim(line []byte) bool {
	return string(bytes.TrimRight(line, "\r")) == delim
}

func trimBody(body string) string {
	switch {
	case strings.HasPrefix(body, "\r\n"):
		body = body[2:]
	case strings.HasPrefix(body, "\n"):
		body = body[1:]
	}
	switch {
	case strings.HasSuffix(body, "\r\n"):
		body = body[:len(body)-2]
	case strings.HasSuffix(body, "\n"):
		body = body[:len(body)-1]
	}
	return body
}

func metadataNode(m models.EntryMetadata) *yaml.Node {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	add := func(key string, value *yaml.Node) {
		n.Content = append(n.Content, strNode(key), value)
	}

	add(models.KeyType, strNode(m.NoteType))
	add(models.KeyJournal, strNode(m.Journal))
	add(models.KeyID, strNode(m.ID))
	add(models.KeyCreatedAt, timeNode(m.CreatedAt))
	add(models.KeyModifiedAt, timeNode(m.ModifiedAt))
	add(models.KeyLink, strNode(m.Link))

	for _, f := range m.Extra.Fields() {
		add(f.Key, f.Value)
	}
	return n
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func timeNode(t time.Time) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!timestamp", Value: t.Format(time.RFC3339Nano)}
}

func decodeMetadata(n *yaml.Node) (models.EntryMetadata, error) {
	var m models.EntryMetadata
	seen := make(map[string]bool, len(n.Content)/2)

	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if k.Kind != yaml.ScalarNode {
			return m, fmt.Errorf("non-scalar key at line %d", k.Line)
		}
		key := k.Value
		if seen[key] {
			return m, fmt.Errorf("%w: %s", errDuplicateKey, key)
		}
		seen[key] = true

		v, err := resolveAliases(v)
		if err != nil {
			return m, fmt.Errorf("key %s: %w", key, err)
		}

		if !models.IsReserved(key) {
			if err := m.Extra.SetNode(key, v); err != nil {
				return m, err
			}
			continue
		}

		if v.Kind != yaml.ScalarNode {
			return m, fmt.Errorf("key %s: expected scalar", key)
		}
		switch key {
		case models.KeyType:
			m.NoteType = v.Value
		case models.KeyJournal:
			m.Journal = v.Value
		case models.KeyID:
			m.ID = v.Value
		case models.KeyLink:
			m.Link = v.Value
		case models.KeyCreatedAt, models.KeyModifiedAt:
			t, err := time.Parse(time.RFC3339Nano, v.Value)
			if err != nil {
				return m, fmt.Errorf("key %s: %w", key, err)
			}
			if key == models.KeyCreatedAt {
				m.CreatedAt = t
			} else {
				m.ModifiedAt = t
			}
		}
	}

	for _, key := range models.ReservedKeys {
		if !seen[key] {
			return m, fmt.Errorf("%w: %s", errMissingRequired, key)
		}
	}
	return m, nil
}

// resolveAliases returns a deep copy of n with every alias replaced by a
// copy of its target and all anchors removed. Values are rendered one by
// one, so an alias whose anchor sits on another key would dangle.
func resolveAliases(n *yaml.Node) (*yaml.Node, error) {
	budget := maxResolvedNodes
	return copyResolved(n, &budget)
}

func copyResolved(n *yaml.Node, budget *int) (*yaml.Node, error) {
	if n == nil {
		return nil, nil
	}
	if *budget--; *budget < 0 {
		return nil, errAliasExpansion
	}
	if n.Kind == yaml.AliasNode {
		return copyResolved(n.Alias, budget)
	}

	c := *n
	c.Anchor = ""
	c.Alias = nil
	c.Content = nil
	for _, child := range n.Content {
		cc, err := copyResolved(child, budget)
		if err != nil {
			return nil, err
		}
		c.Content = append(c.Content, cc)
	}
	return &c, nil
}
