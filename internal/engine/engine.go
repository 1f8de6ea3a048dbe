// Package engine reconciles incoming journal entries with the files already
// exported to the vault.
//
// For each incoming entry, in order:
//   - no exported file with the same id: create a new, collision-free file
//   - content updates enabled and the source copy is newer: overwrite the
//     file with the source copy, dropping local edits and extra fields
//   - exporter-owned metadata differs: rewrite the file keeping the local
//     body and extra fields
//   - otherwise: leave the file alone
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"unicode"

	"github.com/starford/dayone-export/internal/apperr"
	"github.com/starford/dayone-export/internal/checksum"
	"github.com/starford/dayone-export/internal/index"
	"github.com/starford/dayone-export/internal/models"
	"github.com/starford/dayone-export/internal/naming"
	"github.com/starford/dayone-export/internal/parser"
	"github.com/starford/dayone-export/internal/storage"
)

const extension = "md"

// Action is the decision taken for one incoming entry.
type Action int

const (
	ActionNone Action = iota
	ActionCreate
	ActionUpdateContent
	ActionUpdateMetadata
)

func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdateContent:
		return "update-content"
	case ActionUpdateMetadata:
		return "update-metadata"
	default:
		return "none"
	}
}

// Policy configures reconciliation.
type Policy struct {
	// OutputDir receives new entries (vault-relative, "" for the root).
	OutputDir string
	// UpdateContentOnNewer overwrites files whose source entry is newer.
	UpdateContentOnNewer bool
	// GroupByJournal places new entries under OutputDir/<journal>.
	GroupByJournal bool
}

// Effect records what happened to one entry.
type Effect struct {
	Action  Action
	ID      string
	Journal string
	Path    string
}

// Result summarises a reconciliation run.
type Result struct {
	Effects         []Effect
	Created         int
	ContentUpdated  int
	MetadataUpdated int
	Unchanged       int
}

// Writes returns the number of files written (or planned, in a dry run).
func (r *Result) Writes() int {
	return r.Created + r.ContentUpdated + r.MetadataUpdated
}

func (r *Result) add(eff Effect) {
	r.Effects = append(r.Effects, eff)
	switch eff.Action {
	case ActionCreate:
		r.Created++
	case ActionUpdateContent:
		r.ContentUpdated++
	case ActionUpdateMetadata:
		r.MetadataUpdated++
	default:
		r.Unchanged++
	}
}

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-entry decisions.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithDryRun makes the engine plan every action without writing.
func WithDryRun(dryRun bool) Option {
	return func(e *Engine) { e.dryRun = dryRun }
}

// Engine applies a Policy to incoming entries.
type Engine struct {
	store  storage.Provider
	policy Policy
	logger *slog.Logger
	dryRun bool
}

// New creates an engine writing through store.
func New(store storage.Provider, policy Policy, opts ...Option) *Engine {
	e := &Engine{store: store, policy: policy, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type plan struct {
	action   Action
	path     string
	entry    models.Entry
	content  []byte
	checksum string // checksum of the file being replaced
}

// Reconcile processes incoming in order against idx. It stops at the first
// failure; files written before it stay on disk. Cancellation is honoured
// between entries. The returned Result covers every entry processed so far,
// also when an error is returned.
func (e *Engine) Reconcile(ctx context.Context, incoming []models.Entry, idx *index.Index) (*Result, error) {
	res := &Result{}
	claimed := naming.Claimed{}

	for _, in := range incoming {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		p, err := e.plan(in, idx, claimed)
		if err != nil {
			return res, err
		}

		if p.action != ActionNone && !e.dryRun {
			if err := e.apply(p); err != nil {
				return res, err
			}
		}

		eff := Effect{Action: p.action, ID: in.Metadata.ID, Journal: in.Metadata.Journal, Path: p.path}
		res.add(eff)
		e.log(eff)
	}
	return res, nil
}

func (e *Engine) plan(in models.Entry, idx *index.Index, claimed naming.Claimed) (plan, error) {
	id := in.Metadata.ID
	rec, found := idx.Lookup(id)

	switch {
	case !found:
		content, err := render(in, "")
		if err != nil {
			return plan{}, err
		}
		p, err := naming.Resolve(e.store, claimed, e.dirFor(in), in.Filename(), extension)
		if err != nil {
			return plan{}, &apperr.EntryError{ID: id, Kind: apperr.ErrWriteFailure, Err: err}
		}
		return plan{action: ActionCreate, path: p, entry: in, content: content}, nil

	case e.policy.UpdateContentOnNewer && rec.Entry.Metadata.ModifiedAt.Before(in.Metadata.ModifiedAt):
		content, err := render(in, rec.Path)
		if err != nil {
			return plan{}, err
		}
		return plan{action: ActionUpdateContent, path: rec.Path, entry: in, content: content, checksum: rec.Checksum}, nil
	}

	merged := Merge(rec.Entry, in)
	if merged.Metadata.SystemEqual(rec.Entry.Metadata) {
		return plan{action: ActionNone, path: rec.Path, entry: rec.Entry}, nil
	}
	content, err := render(merged, rec.Path)
	if err != nil {
		return plan{}, err
	}
	return plan{action: ActionUpdateMetadata, path: rec.Path, entry: merged, content: content, checksum: rec.Checksum}, nil
}

// Merge combines the exporter-owned metadata of incoming with the local
// body and extra fields of existing. The modification time never moves
// backwards.
func Merge(existing, incoming models.Entry) models.Entry {
	meta := incoming.Metadata
	meta.Extra = existing.Metadata.Extra.Clone()
	if existing.Metadata.ModifiedAt.After(meta.ModifiedAt) {
		meta.ModifiedAt = existing.Metadata.ModifiedAt
	}
	return models.Entry{
		Metadata: meta,
		Body:     strings.TrimLeftFunc(existing.Body, unicode.IsSpace),
	}
}

func (e *Engine) dirFor(in models.Entry) string {
	dir := e.policy.OutputDir
	if e.policy.GroupByJournal {
		if j := models.DirName(in.Metadata.Journal); j != "" {
			dir = path.Join(dir, j)
		}
	}
	return dir
}

func (e *Engine) apply(p plan) error {
	id := p.entry.Metadata.ID

	if p.action != ActionCreate {
		current, err := e.store.Read(p.path)
		if err != nil {
			return &apperr.EntryError{ID: id, Path: p.path, Kind: apperr.ErrWriteFailure, Err: err}
		}
		if !checksum.Equal(current, p.checksum) {
			return &apperr.EntryError{ID: id, Path: p.path, Kind: apperr.ErrConflict,
				Err: fmt.Errorf("file changed since the vault was scanned")}
		}
	}

	if err := e.store.Write(p.path, p.content); err != nil {
		return &apperr.EntryError{ID: id, Path: p.path, Kind: apperr.ErrWriteFailure, Err: err}
	}

	if p.action == ActionCreate || p.action == ActionUpdateContent {
		if err := e.store.SetModTime(p.path, p.entry.Metadata.ModifiedAt); err != nil {
			return &apperr.EntryError{ID: id, Path: p.path, Kind: apperr.ErrWriteFailure, Err: err}
		}
	}
	return nil
}

func (e *Engine) log(eff Effect) {
	attrs := []any{
		slog.String("id", eff.ID),
		slog.String("journal", eff.Journal),
		slog.String("path", eff.Path),
		slog.String("action", eff.Action.String()),
	}
	switch {
	case eff.Action == ActionNone:
		e.logger.Debug("engine: unchanged", attrs...)
	case e.dryRun:
		e.logger.Info("engine: planned", attrs...)
	default:
		e.logger.Info("engine: written", attrs...)
	}
}

func render(en models.Entry, filePath string) ([]byte, error) {
	content, err := parser.Render(en)
	if err != nil {
		return nil, &apperr.EntryError{ID: en.Metadata.ID, Path: filePath, Kind: apperr.ErrFormatFailure, Err: err}
	}
	return content, nil
}
