package source

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/nao1215/codeflip/internal/model"
)

// DefaultDebounce groups bursts of file events into one change set.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to input documents.
type Watcher struct {
	debounce time.Duration
	logger   *slog.Logger

	// skip are absolute directories that are never watched.
	skip []string

	// extra are files outside the input formats that also trigger a
	// change, such as the project file.
	extra []string
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period after the last event before changes
// are reported.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// WithWatchLogger sets the logger.
func WithWatchLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithSkipDirs excludes directories, typically the output directory.
func WithSkipDirs(dirs ...string) WatcherOption {
	return func(w *Watcher) {
		for _, d := range dirs {
			if d == "" {
				continue
			}
			if abs, err := filepath.Abs(d); err == nil {
				w.skip = append(w.skip, abs)
			}
		}
	}
}

// WithExtraFiles adds files whose changes are reported even though they
// are not documents.
func WithExtraFiles(files ...string) WatcherOption {
	return func(w *Watcher) {
		for _, f := range files {
			if f == "" {
				continue
			}
			if abs, err := filepath.Abs(f); err == nil {
				w.extra = append(w.extra, abs)
			}
		}
	}
}

// NewWatcher creates a Watcher.
func NewWatcher(opts ...WatcherOption) *Watcher {
	w := &Watcher{
		debounce: DefaultDebounce,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches paths until ctx is done and calls onChange with the sorted
// set of changed files after each burst of events. Directories are watched
// recursively, including directories created later. onChange runs on the
// calling goroutine, so calls never overlap.
func (w *Watcher) Run(ctx context.Context, paths []string, onChange func(changed []string)) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		_ = fw.Close() //nolint:errcheck // Best effort cleanup
	}()

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("failed to stat %s: %w", p, err)
		}
		if info.IsDir() {
			if err := w.addTree(fw, p); err != nil {
				return err
			}
			continue
		}
		if err := fw.Add(filepath.Dir(p)); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
	}
	for _, f := range w.extra {
		if err := fw.Add(filepath.Dir(f)); err != nil {
			w.logger.Warn("cannot watch file", "path", f, "error", err)
		}
	}

	pending := make(map[string]bool)
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(fw, ev.Name); err != nil {
						w.logger.Warn("cannot watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if ev.Op == fsnotify.Chmod || !w.relevant(ev.Name) {
				continue
			}
			w.logger.Debug("file changed", "path", ev.Name, "op", ev.Op.String())
			pending[ev.Name] = true

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			clear(pending)
			slices.Sort(changed)
			onChange(changed)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// addTree watches dir and its subdirectories.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && isExcludedDir(d.Name()) {
			return filepath.SkipDir
		}
		if under(path, w.skip) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
		return nil
	})
}

// relevant reports whether a change to path should be reported.
func (w *Watcher) relevant(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	if slices.Contains(w.extra, abs) {
		return true
	}
	if under(abs, w.skip) {
		return false
	}
	_, ok := model.FormatOf(path)
	return ok
}
