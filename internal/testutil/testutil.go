// Package testutil provides shared test helpers for setting up vaults and
// Day One databases.
package testutil

import (
	"database/sql"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dayone-export/internal/models"
	"github.com/starford/dayone-export/internal/parser"
	"github.com/starford/dayone-export/internal/storage"
)

// Logger returns a logger that discards output.
func Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestVault creates a temporary vault directory with a storage provider.
func TestVault(t *testing.T) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// Entry builds an incoming entry with the given identity and body.
func Entry(id, journal string, created, modified time.Time, body string) models.Entry {
	return models.Entry{
		Metadata: models.NewEntryMetadata(journal, id, created, modified),
		Body:     body,
	}
}

// WriteEntry renders e into the vault at path.
func WriteEntry(t *testing.T, store storage.Provider, path string, e models.Entry) {
	t.Helper()
	data, err := parser.Render(e)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Write(path, data); err != nil {
		t.Fatal(err)
	}
}

// DayOneRow is one synthetic row of the Day One ZENTRY table.
type DayOneRow struct {
	UUID     string
	Journal  string
	Markdown string
	Created  time.Time
	Modified time.Time
}

var coreDataEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

const dayOneSchemaSQL = `
CREATE TABLE ZJOURNAL (
	Z_PK  INTEGER PRIMARY KEY,
	ZNAME VARCHAR
);

CREATE TABLE ZENTRY (
	Z_PK           INTEGER PRIMARY KEY,
	ZJOURNAL       INTEGER,
	ZUUID          VARCHAR,
	ZMARKDOWNTEXT  VARCHAR,
	ZCREATIONDATE  TIMESTAMP,
	ZMODIFIEDDATE  TIMESTAMP
);
`

// DayOneDB writes a minimal Day One database containing rows and returns
// its path.
func DayOneDB(t *testing.T, rows ...DayOneRow) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "DayOne.sqlite")

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(dayOneSchemaSQL); err != nil {
		t.Fatalf("create schema: %v", err)
	}

	journals := map[string]int64{}
	for _, r := range rows {
		if _, ok := journals[r.Journal]; ok || r.Journal == "" {
			continue
		}
		res, err := db.Exec(`INSERT INTO ZJOURNAL (ZNAME) VALUES (?)`, r.Journal)
		if err != nil {
			t.Fatalf("insert journal: %v", err)
		}
		journals[r.Journal], _ = res.LastInsertId()
	}

	for _, r := range rows {
		var journal any
		if pk, ok := journals[r.Journal]; ok {
			journal = pk
		}
		_, err := db.Exec(`
			INSERT INTO ZENTRY (ZJOURNAL, ZUUID, ZMARKDOWNTEXT, ZCREATIONDATE, ZMODIFIEDDATE)
			VALUES (?, ?, ?, ?, ?)
		`, journal, r.UUID, r.Markdown, coreDataSeconds(r.Created), coreDataSeconds(r.Modified))
		if err != nil {
			t.Fatalf("insert entry: %v", err)
		}
	}
	return path
}

func coreDataSeconds(t time.Time) float64 {
	return t.Sub(coreDataEpoch).Seconds()
}
