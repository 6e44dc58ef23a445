// Package watch triggers rebuilds when the source tree changes.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/notepub/internal/scanner"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 200 * time.Millisecond

// Options configures the watcher.
type Options struct {
	Scan     scanner.Options
	Debounce time.Duration
}

// RebuildFunc runs one build. Its error is logged; the watcher keeps going.
type RebuildFunc func(ctx context.Context) error

// Watch starts an fsnotify watcher on root and calls rebuild once per burst
// of changes to candidate files until ctx is cancelled.
//
// New directories created at runtime are added to the watch list, hidden
// and templates directories are never watched. Renames and removals trigger
// a rebuild so that stale output is dropped from the manifest.
func Watch(ctx context.Context, root string, opts Options, logger *slog.Logger, rebuild RebuildFunc) error {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := addDirsRecursive(w, root, opts.Scan); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("root", root))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(opts.Debounce)
			timerCh = timer.C
		} else {
			timer.Reset(opts.Debounce)
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

		case <-timerCh:
			logger.Debug("watcher: rebuilding")
			if err := rebuild(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("watcher: rebuild failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			rel, relErr := filepath.Rel(root, ev.Name)
			if relErr != nil {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(ev.Name); statErr == nil && info.IsDir() {
					if scanner.IsExcludedDir(rel, opts.Scan) {
						continue
					}
					if addErr := addDirsRecursive(w, ev.Name, opts.Scan); addErr != nil {
						logger.Warn("watcher: add new dir failed",
							slog.String("path", rel),
							slog.String("error", addErr.Error()))
					} else {
						logger.Debug("watcher: watching new dir", slog.String("path", rel))
					}
					// Files may already be inside the new directory.
					schedule()
					continue
				}
			}

			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if scanner.IsExcluded(rel, opts.Scan) {
				continue
			}
			// A removed directory shows up as one event without an extension.
			if !scanner.Matches(ev.Name, opts.Scan) && ev.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("watcher: change", slog.String("path", filepath.ToSlash(rel)), slog.String("op", ev.Op.String()))
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds dir and all its non-excluded subdirectories.
func addDirsRecursive(w *fsnotify.Watcher, dir string, opts scanner.Options) error {
	root := dir
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root {
			if rel, relErr := filepath.Rel(root, p); relErr == nil && scanner.IsExcludedDir(rel, opts) {
				return filepath.SkipDir
			}
		}
		return w.Add(p)
	})
}
