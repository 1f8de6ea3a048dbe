package source

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits after the last change before
// triggering a run. Day One writes the database in bursts.
const DefaultDebounce = 2 * time.Second

// RunFunc performs one complete export.
type RunFunc func(ctx context.Context) error

// Watch watches the database file (and its -wal/-journal siblings) and
// calls run after changes settle, until ctx is cancelled. Runs never
// overlap. A failing run is logged and watching continues.
func Watch(ctx context.Context, dbPath string, debounce time.Duration, logger *slog.Logger, run RunFunc) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory: SQLite replaces and recreates sidecar files.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("database", abs))

	var timer *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
		} else {
			timer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			logger.Info("watcher: database changed, exporting")
			if err := run(ctx); err != nil {
				logger.Error("watcher: export failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isDatabaseFile(abs, ev.Name) || ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// isDatabaseFile ignores the -shm index, which readers (including our own
// exports) touch.
func isDatabaseFile(dbPath, name string) bool {
	switch name {
	case dbPath, dbPath + "-wal", dbPath + "-journal":
		return true
	}
	return false
}
