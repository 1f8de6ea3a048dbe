// Package source reads journal entries from a Day One SQLite database.
package source

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/dayone-export/internal/apperr"
	"github.com/starford/dayone-export/internal/models"
)

// Day One stores Core Data timestamps: seconds since 2001-01-01 UTC.
var coreDataEpoch = time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC)

const entriesSQL = `
SELECT e.ZUUID,
       COALESCE(j.ZNAME, ''),
       COALESCE(e.ZMARKDOWNTEXT, ''),
       CAST(e.ZCREATIONDATE AS REAL),
       CAST(COALESCE(e.ZMODIFIEDDATE, e.ZCREATIONDATE) AS REAL)
FROM ZENTRY e
LEFT JOIN ZJOURNAL j ON e.ZJOURNAL = j.Z_PK
WHERE e.ZUUID IS NOT NULL AND e.ZCREATIONDATE IS NOT NULL`

// DB is a read-only handle on a Day One database.
type DB struct {
	conn *sql.DB
}

// Open opens the database at path read-only. Failures wrap
// apperr.ErrSourceUnavailable.
func Open(path string) (*DB, error) {
	dsn := "file:" + path + "?mode=ro&_query_only=true&_busy_timeout=5000"
	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("source: open %s: %w: %w", path, apperr.ErrSourceUnavailable, err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("source: ping %s: %w: %w", path, apperr.ErrSourceUnavailable, err)
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Entries returns all entries matching f, ordered by creation date.
func (db *DB) Entries(ctx context.Context, f Filter) ([]models.Entry, error) {
	query := entriesSQL
	var args []any
	if len(f.Journals) > 0 {
		query += " AND j.ZNAME IN (?" + strings.Repeat(", ?", len(f.Journals)-1) + ")"
		for _, j := range f.Journals {
			args = append(args, j)
		}
	}
	query += " ORDER BY e.ZCREATIONDATE, e.ZUUID"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("source: query entries: %w: %w", apperr.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var out []models.Entry
	seen := make(map[string]struct{})
	for rows.Next() {
		var (
			uuid, journal, markdown string
			created, modified       float64
		)
		if err := rows.Scan(&uuid, &journal, &markdown, &created, &modified); err != nil {
			return nil, fmt.Errorf("source: scan entry: %w: %w", apperr.ErrSourceUnavailable, err)
		}
		// Joins against tag tables can repeat an entry.
		if _, dup := seen[uuid]; dup {
			continue
		}
		seen[uuid] = struct{}{}

		e := models.Entry{
			Metadata: models.NewEntryMetadata(journal, uuid, fromCoreData(created), fromCoreData(modified)),
			Body:     Unescape(markdown),
		}
		if f.Match(e) {
			out = append(out, e)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("source: read entries: %w: %w", apperr.ErrSourceUnavailable, err)
	}
	return out, nil
}

// Journals returns the names of all journals in the database.
func (db *DB) Journals(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT ZNAME FROM ZJOURNAL WHERE ZNAME IS NOT NULL ORDER BY ZNAME`)
	if err != nil {
		return nil, fmt.Errorf("source: query journals: %w: %w", apperr.ErrSourceUnavailable, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

func fromCoreData(secs float64) time.Time {
	return coreDataEpoch.Add(time.Duration(secs * float64(time.Second))).Truncate(time.Second)
}

// Unescape removes the backslashes Day One puts in front of Markdown
// punctuation. A double backslash yields one literal backslash.
func Unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '\\' && i+1 < len(s) && isASCIIPunct(s[i+1]) {
			i++
			c = s[i]
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isASCIIPunct(c byte) bool {
	return (c >= '!' && c <= '/') || (c >= ':' && c <= '@') || (c >= '[' && c <= '`') || (c >= '{' && c <= '~')
}
