package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/dayone-export/internal/apperr"
	"github.com/starford/dayone-export/internal/checksum"
	"github.com/starford/dayone-export/internal/parser"
	"github.com/starford/dayone-export/internal/storage"
)

// Build walks the vault and indexes every file that parses as a managed
// entry. Files that are not managed entries, or cannot be read, are
// skipped with a log record; they may be unrelated notes that share the
// vault. Listing the vault itself must succeed.
func Build(ctx context.Context, store storage.Provider, logger *slog.Logger) (*Index, error) {
	files, err := store.List("")
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	idx := New()
	skipped, unreadable := 0, 0
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := store.Read(f.Path)
		if err != nil {
			unreadable++
			logger.Warn("index: skipped unreadable file", slog.String("path", f.Path), slog.String("error", err.Error()))
			continue
		}

		e, err := parser.Parse(data)
		if err != nil {
			if !errors.Is(err, apperr.ErrNotManaged) {
				return nil, fmt.Errorf("index: %s: %w", f.Path, err)
			}
			skipped++
			logger.Debug("index: skipped unmanaged file", slog.String("path", f.Path), slog.String("reason", err.Error()))
			continue
		}

		id := e.Metadata.ID
		if prev, ok := idx.byID[id]; ok {
			logger.Warn("index: duplicate entry id, later file wins",
				slog.String("id", id),
				slog.String("path", f.Path),
				slog.String("shadowed", prev.Path))
		}
		idx.byID[id] = Record{Path: f.Path, Entry: *e, Checksum: checksum.Sum(data)}
	}

	logger.Info("index: scan complete",
		slog.Int("files", len(files)),
		slog.Int("entries", idx.Len()),
		slog.Int("unmanaged", skipped),
		slog.Int("unreadable", unreadable))
	return idx, nil
}
