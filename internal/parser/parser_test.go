package parser

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/dayone-export/internal/apperr"
	"github.com/starford/dayone-export/internal/models"
)

func sample() models.Entry {
	return models.Entry{
		Metadata: models.NewEntryMetadata("Diary", "abc",
			time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
			time.Date(2023, 5, 2, 8, 30, 0, 0, time.UTC)),
		Body: "# Hello\nworld",
	}
}

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestRender_Golden(t *testing.T) {
	data, err := Render(sample())
	require.NoError(t, err)
	golden(t).Assert(t, "new_entry", data)
}

func TestRender_ExtraFieldsGolden(t *testing.T) {
	e := sample()
	require.NoError(t, e.Metadata.Extra.Set("reviewed", true))
	require.NoError(t, e.Metadata.Extra.Set("mood", "calm"))

	data, err := Render(e)
	require.NoError(t, err)
	golden(t).Assert(t, "extra_fields", data)
}

func TestRender_InvalidMetadata(t *testing.T) {
	e := sample()
	e.Metadata.ID = ""
	_, err := Render(e)
	require.Error(t, err)
}

func TestRender_QuotesAmbiguousScalars(t *testing.T) {
	e := sample()
	e.Metadata.Journal = "true"
	e.Metadata.ID = "12345"
	e.Metadata.Link = models.LinkFor("12345")

	data, err := Render(e)
	require.NoError(t, err)
	assert.Contains(t, string(data), `journal: "true"`)
	assert.Contains(t, string(data), `dayoneId: "12345"`)

	back, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, "true", back.Metadata.Journal)
	assert.Equal(t, "12345", back.Metadata.ID)
}

func TestRoundTrip(t *testing.T) {
	e := sample()
	require.NoError(t, e.Metadata.Extra.Set("tags", []string{"a", "b"}))
	require.NoError(t, e.Metadata.Extra.Set("rating", 4))
	e.Body = "\n  indented first line\n\nlast line\n"

	data, err := Render(e)
	require.NoError(t, err)

	back, err := Parse(data)
	require.NoError(t, err)

	assert.True(t, e.Metadata.SystemEqual(back.Metadata))
	assert.Equal(t, e.Body, back.Body)
	assert.Equal(t, []string{"tags", "rating"}, back.Metadata.Extra.Keys())

	var tags []string
	_, err = back.Metadata.Extra.Decode("tags", &tags)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tags)

	again, err := Render(*back)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestParse_ResolvesAliases(t *testing.T) {
	data := []byte(`---
type: dayone-import
journal: &j Diary
dayoneId: abc
createdAt: 2023-05-01T10:00:00Z
lastModifiedAt: 2023-05-02T08:30:00Z
link: dayone://view?entryId=abc
category: *j
base: &tags [travel, food]
tags: *tags
---

body
`)

	e, err := Parse(data)
	require.NoError(t, err)

	// Renaming the journal drops the anchor from the reserved key.
	e.Metadata.Journal = "Work"
	out, err := Render(*e)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "*")
	assert.NotContains(t, string(out), "&")

	back, err := Parse(out)
	require.NoError(t, err)
	assert.Equal(t, "Work", back.Metadata.Journal)

	var category string
	ok, err := back.Metadata.Extra.Decode("category", &category)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Diary", category)

	var tags []string
	_, err = back.Metadata.Extra.Decode("tags", &tags)
	require.NoError(t, err)
	assert.Equal(t, []string{"travel", "food"}, tags)
}

func TestParse_RejectsAliasBomb(t *testing.T) {
	var b strings.Builder
	b.WriteString("---\ntype: dayone-import\njournal: Diary\ndayoneId: abc\n")
	b.WriteString("createdAt: 2023-05-01T10:00:00Z\nlastModifiedAt: 2023-05-02T08:30:00Z\n")
	b.WriteString("link: dayone://view?entryId=abc\n")
	b.WriteString("l0: &l0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "l%d: &l%d [*l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d, *l%d]\n",
			i, i, i-1, i-1, i-1, i-1, i-1, i-1, i-1, i-1, i-1, i-1)
	}
	b.WriteString("---\n\nbody\n")

	_, err := Parse([]byte(b.String()))
	assert.ErrorIs(t, err, apperr.ErrNotManaged)
}

func TestParse_PreservesOffsets(t *testing.T) {
	input := "---\n" +
		"type: dayone-import\n" +
		"journal: Travel\n" +
		"dayoneId: XYZ\n" +
		"createdAt: 2023-05-01T12:00:00+02:00\n" +
		"lastModifiedAt: 2023-05-01T12:00:00.5+02:00\n" +
		"link: dayone://view?entryId=XYZ\n" +
		"---\n\nbody\n"

	e, err := Parse([]byte(input))
	require.NoError(t, err)
	assert.True(t, e.Metadata.CreatedAt.Equal(time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC)))
	assert.Equal(t, 500*time.Millisecond, e.Metadata.ModifiedAt.Sub(e.Metadata.CreatedAt))
	assert.Equal(t, "body", e.Body)
}

func TestParse_CRLF(t *testing.T) {
	input := "---\r\n" +
		"type: dayone-import\r\n" +
		"journal: Diary\r\n" +
		"dayoneId: abc\r\n" +
		"createdAt: 2023-05-01T10:00:00Z\r\n" +
		"lastModifiedAt: 2023-05-01T10:00:00Z\r\n" +
		"link: dayone://view?entryId=abc\r\n" +
		"---\r\n\r\ntext\r\n"

	e, err := Parse([]byte(input))
	require.NoError(t, err)
	assert.Equal(t, "abc", e.Metadata.ID)
	assert.Equal(t, "text", e.Body)
}

func TestParse_Rejects(t *testing.T) {
	valid := "type: dayone-import\njournal: Diary\ndayoneId: abc\n" +
		"createdAt: 2023-05-01T10:00:00Z\nlastModifiedAt: 2023-05-01T10:00:00Z\n" +
		"link: dayone://view?entryId=abc\n"

	tests := []struct {
		name  string
		input string
	}{
		{"no frontmatter", "# Just a note\n"},
		{"leading blank line", "\n---\n" + valid + "---\nbody\n"},
		{"unterminated", "---\n" + valid + "body\n"},
		{"invalid yaml", "---\n: invalid: yaml: {{{\n---\nbody\n"},
		{"not a mapping", "---\n- a\n- b\n---\nbody\n"},
		{"empty header", "---\n---\nbody\n"},
		{"foreign type", "---\n" + strings.Replace(valid, "dayone-import", "journal-note", 1) + "---\nbody\n"},
		{"missing id", "---\n" + strings.Replace(valid, "dayoneId: abc\n", "", 1) + "---\nbody\n"},
		{"empty id", "---\n" + strings.Replace(valid, "dayoneId: abc", "dayoneId:", 1) + "---\nbody\n"},
		{"bad timestamp", "---\n" + strings.Replace(valid, "createdAt: 2023-05-01T10:00:00Z", "createdAt: yesterday", 1) + "---\nbody\n"},
		{"duplicate key", "---\n" + valid + "journal: Other\n---\nbody\n"},
		{"nested reserved", "---\n" + strings.Replace(valid, "journal: Diary", "journal: [a]", 1) + "---\nbody\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input))
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrNotManaged), "got %v", err)
		})
	}
}

func TestSplitFrontmatter_BodyWithoutSeparator(t *testing.T) {
	header, body, err := splitFrontmatter([]byte("---\na: 1\n---\nbody"))
	require.NoError(t, err)
	assert.Equal(t, "a: 1\n", string(header))
	assert.Equal(t, "body", body)
}

func TestSplitFrontmatter_EmptyBody(t *testing.T) {
	_, body, err := splitFrontmatter([]byte("---\na: 1\n---"))
	require.NoError(t, err)
	assert.Equal(t, "", body)
}
