// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/gosuri/uitable"
	"golang.org/x/sync/errgroup"

	"github.com/starford/dayone-export/internal/engine"
	"github.com/starford/dayone-export/internal/index"
	"github.com/starford/dayone-export/internal/models"
	"github.com/starford/dayone-export/internal/source"
	"github.com/starford/dayone-export/internal/storage"
	pkgconfig "github.com/starford/dayone-export/pkg/config"
)

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{
		stdout:    os.Stdout,
		logOutput: os.Stderr,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	if err := pkgconfig.Validate(cfg); err != nil {
		return err
	}

	logger := newLogger(app.logOutput, cfg.App)
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("database", cfg.Source.Database),
		slog.String("vault_path", cfg.Vault.Path),
		slog.String("output", cfg.Vault.Output),
		slog.Any("journals", cfg.Source.Journals),
		slog.Bool("dry_run", cfg.Export.DryRun),
		slog.String("log_level", cfg.App.LogLevel.String()))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewFS(cfg.Vault.Path)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}

	if cfg.Export.ListExisting {
		idx, err := index.Build(ctx, store, logger)
		if err != nil {
			return err
		}
		return writeExisting(app.stdout, idx)
	}

	var outputDir string
	if cfg.Vault.Output != "" {
		if outputDir, err = store.Rel(cfg.Vault.Output); err != nil {
			return fmt.Errorf("resolve output dir: %w", err)
		}
	}

	filter, err := cfg.Source.Filter()
	if err != nil {
		return err
	}

	exp := &exporter{
		cfg:       cfg,
		store:     store,
		filter:    filter,
		outputDir: outputDir,
		stdout:    app.stdout,
		logger:    logger,
	}

	if err := exp.run(ctx); err != nil {
		logger.Error("Export failed", slog.String("error", err.Error()))
		return err
	}

	if !cfg.Export.Watch {
		return nil
	}
	return source.Watch(ctx, cfg.Source.Database, cfg.Export.Debounce, logger, exp.run)
}

func newLogger(w io.Writer, cfg ApplicationConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	if cfg.LogFormat == LogFormatText {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// exporter performs one full pass: read the source, scan the vault,
// reconcile.
type exporter struct {
	cfg       *Config
	store     *storage.FS
	filter    source.Filter
	outputDir string
	stdout    io.Writer
	logger    *slog.Logger
}

func (x *exporter) run(ctx context.Context) error {
	db, err := source.Open(x.cfg.Source.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	x.warnUnknownJournals(ctx, db)

	var (
		entries []models.Entry
		idx     *index.Index
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		entries, err = db.Entries(gCtx, x.filter)
		return err
	})

	g.Go(func() error {
		var err error
		idx, err = index.Build(gCtx, x.store, x.logger)
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}

	x.logger.Info("Source loaded", slog.Int("entries", len(entries)))

	if x.cfg.Export.ListStats {
		if err := writeStats(x.stdout, idx, entries); err != nil {
			return err
		}
	}

	eng := engine.New(x.store, engine.Policy{
		OutputDir:            x.outputDir,
		UpdateContentOnNewer: x.cfg.Export.UpdateContent,
		GroupByJournal:       x.cfg.Export.GroupByJournal,
	}, engine.WithLogger(x.logger), engine.WithDryRun(x.cfg.Export.DryRun))

	res, err := eng.Reconcile(ctx, entries, idx)
	if res != nil {
		x.logger.Info("Export finished",
			slog.Int("created", res.Created),
			slog.Int("content_updated", res.ContentUpdated),
			slog.Int("metadata_updated", res.MetadataUpdated),
			slog.Int("unchanged", res.Unchanged),
			slog.Bool("dry_run", x.cfg.Export.DryRun))
	}
	return err
}

func (x *exporter) warnUnknownJournals(ctx context.Context, db *source.DB) {
	if len(x.filter.Journals) == 0 {
		return
	}
	known, err := db.Journals(ctx)
	if err != nil {
		x.logger.Warn("list journals failed", slog.String("error", err.Error()))
		return
	}
	set := make(map[string]struct{}, len(known))
	for _, j := range known {
		set[j] = struct{}{}
	}
	for _, j := range x.filter.Journals {
		if _, ok := set[j]; !ok {
			x.logger.Warn("journal not found in database", slog.String("journal", j))
		}
	}
}

func writeExisting(w io.Writer, idx *index.Index) error {
	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("JOURNAL", "ID", "PATH")
	for _, r := range idx.Records() {
		tbl.AddRow(r.Entry.Metadata.Journal, r.Entry.Metadata.ID, r.Path)
	}
	_, err := fmt.Fprintln(w, tbl)
	return err
}

func writeStats(w io.Writer, idx *index.Index, entries []models.Entry) error {
	existing := idx.CountByJournal()
	incoming := make(map[string]int)
	for _, e := range entries {
		incoming[e.Metadata.Journal]++
	}

	names := make([]string, 0, len(existing)+len(incoming))
	for j := range existing {
		names = append(names, j)
	}
	for j := range incoming {
		if _, ok := existing[j]; !ok {
			names = append(names, j)
		}
	}
	sort.Strings(names)

	tbl := uitable.New()
	tbl.Separator = "  "
	tbl.AddRow("JOURNAL", "EXISTING", "INCOMING")
	var totalExisting, totalIncoming int
	for _, j := range names {
		tbl.AddRow(journalLabel(j), existing[j], incoming[j])
		totalExisting += existing[j]
		totalIncoming += incoming[j]
	}
	tbl.AddRow("TOTAL", totalExisting, totalIncoming)
	_, err := fmt.Fprintln(w, tbl)
	return err
}

func journalLabel(j string) string {
	if j == "" {
		return "(none)"
	}
	return j
}
